package models

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Network identifies the chain the client talks to.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// DefaultNetwork is used when neither the config nor the adapter
// constructor supplies a network.
const DefaultNetwork = Mainnet

// Params returns the chain parameters for the network.
func (n Network) Params() *chaincfg.Params {
	if n == Testnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// Valid reports whether the network is one of the supported shorthands.
func (n Network) Valid() bool {
	return n == Mainnet || n == Testnet
}

// UnspentOutput is the canonical record every adapter normalizes provider
// responses into. (TxID, Vout) is unique within any result set; overlapping
// provider responses are collapsed keeping the first observed record.
type UnspentOutput struct {
	// TxID is the funding transaction hash as a 64-character hex string.
	TxID string `json:"txid"`
	// Vout is the output index within the funding transaction.
	Vout uint32 `json:"vout"`
	// Amount is the output value in satoshis.
	Amount int64 `json:"amount"`
	// PkScript is the locking script of the output.
	PkScript []byte `json:"pk_script"`
	// Address is the address the locking script pays to.
	Address btcutil.Address `json:"-"`
	// Confirmed is false while the funding transaction is still in the mempool.
	// Unconfirmed outputs are spendable candidates; callers that need
	// confirmed-only filter on this field.
	Confirmed bool `json:"confirmed"`
}

// Outpoint returns the dedup key for the output.
func (u UnspentOutput) Outpoint() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.Vout)
}

// FeeEstimate is one fee tier offered by a provider. Providers supply a small
// ordered set of tiers; FeePerKB is non-increasing as TargetBlocks grows.
type FeeEstimate struct {
	// TargetBlocks is the number of blocks within which a transaction paying
	// FeePerKB is expected to confirm.
	TargetBlocks int `json:"target_blocks"`
	// FeePerKB is the fee rate in satoshis per kilobyte.
	FeePerKB int64 `json:"fee_per_kb"`
}

// BroadcastResult is the outcome of a successful broadcast. AlreadyKnown is
// set when the provider reported the transaction as already present on the
// network; that is a success variant, not a failure, and callers must not
// retry it.
type BroadcastResult struct {
	TxID         string `json:"txid"`
	AlreadyKnown bool   `json:"already_known"`
}

// ProviderConfig carries the construction parameters of an adapter. It is
// read once by the constructor and never mutated afterwards.
type ProviderConfig struct {
	// Network selects mainnet or testnet. Empty means DefaultNetwork.
	Network Network
	// BaseURL overrides the provider's canonical endpoint. When empty the
	// adapter derives the canonical URL for Network.
	BaseURL string
	// AuthToken is sent as an API key header by providers that require one.
	AuthToken string
	// HTTPClient is the injected transport. Nil means a plain net/http client;
	// timeout and retry policy belong to whoever supplies it.
	HTTPClient HTTPClient
}
