// Package codec covers the crypto boundary of the client: address
// validation, script-to-address derivation and transaction hex encoding.
// Everything else in the repository treats addresses and transactions as
// opaque values produced here.
package codec

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/utxokit/utxokit/internal/models"
)

// ToAddress is the single coercion point from raw strings to validated
// addresses. Every entry point that accepts an address string goes through
// it; a string that does not decode for the given network never reaches an
// adapter.
func ToAddress(raw string, network models.Network) (btcutil.Address, error) {
	if raw == "" {
		return nil, models.NewInvalidArgument("address cannot be empty")
	}
	addr, err := btcutil.DecodeAddress(raw, network.Params())
	if err != nil {
		return nil, models.NewInvalidArgument("invalid address %q: %s", raw, err)
	}
	if !addr.IsForNet(network.Params()) {
		return nil, models.NewInvalidArgument("address %q is not a %s address", raw, network)
	}
	return addr, nil
}

// ToAddresses validates a list of raw address strings.
func ToAddresses(raw []string, network models.Network) ([]btcutil.Address, error) {
	if len(raw) == 0 {
		return nil, models.NewInvalidArgument("address list cannot be empty")
	}
	addrs := make([]btcutil.Address, 0, len(raw))
	for _, r := range raw {
		addr, err := ToAddress(r, network)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// ScriptToAddress derives the owning address of an output from its locking
// script. Used when a provider returns scripts rather than addresses.
func ScriptToAddress(script []byte, network models.Network) (btcutil.Address, error) {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, network.Params())
	if err != nil {
		return nil, fmt.Errorf("failed to extract address from script: %w", err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("script pays to no extractable address")
	}
	return addrs[0], nil
}

// AddressScript builds the locking script paying to the address. Used when a
// provider returns addresses without scripts.
func AddressScript(addr btcutil.Address) ([]byte, error) {
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to build script for %s: %w", addr.EncodeAddress(), err)
	}
	return script, nil
}

// IsHex reports whether s is a non-empty, even-length hex string.
func IsHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// ValidTxID reports whether s is exactly a 64-character hex transaction hash.
func ValidTxID(s string) bool {
	return len(s) == 64 && IsHex(s)
}

// DecodeTransaction parses a raw transaction from its hex encoding.
func DecodeTransaction(txHex string) (*wire.MsgTx, error) {
	if !IsHex(txHex) {
		return nil, models.NewInvalidArgument("transaction is not valid hex")
	}
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, models.NewInvalidArgument("transaction is not valid hex: %s", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, models.NewInvalidArgument("transaction does not deserialize: %s", err)
	}
	return tx, nil
}

// EncodeTransactionHex serializes a transaction handle to its hex encoding.
func EncodeTransactionHex(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// TxID returns the hash of a transaction in the usual reversed-hex form.
func TxID(tx *wire.MsgTx) string {
	return tx.TxHash().String()
}
