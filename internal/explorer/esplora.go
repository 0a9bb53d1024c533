package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/utxokit/utxokit/internal/codec"
	"github.com/utxokit/utxokit/internal/models"
	"github.com/utxokit/utxokit/pkg/logger"
)

const (
	esploraName       = "esplora"
	esploraMainnetURL = "https://blockstream.info/api"
	esploraTestnetURL = "https://blockstream.info/testnet/api"
)

// Esplora is the per-address adapter: the backend answers one address per
// call, so multi-address lookups fan out concurrently and merge. It is also
// the only adapter that can fetch a transaction by id.
type Esplora struct {
	logger     *logger.Logger
	network    models.Network
	baseURL    string
	httpClient models.HTTPClient
}

var (
	_ models.Provider          = (*Esplora)(nil)
	_ models.TransactionGetter = (*Esplora)(nil)
)

// NewEsplora creates an Esplora adapter, deriving the canonical endpoint from
// the network when no base URL is given.
func NewEsplora(cfg models.ProviderConfig, log *logger.Logger) (*Esplora, error) {
	network, baseURL, err := resolveEndpoint(cfg, esploraMainnetURL, esploraTestnetURL)
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}
	return &Esplora{
		logger:     log,
		network:    network,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

func (e *Esplora) Name() string {
	return esploraName
}

func (e *Esplora) Network() models.Network {
	return e.network
}

type esploraUtxo struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

// GetUnspentOutputs fans one request per address out concurrently and merges
// the results. The first failing sub-request fails the whole call.
func (e *Esplora) GetUnspentOutputs(ctx context.Context, addrs []btcutil.Address) ([]models.UnspentOutput, error) {
	if err := checkAddresses(addrs, e.network); err != nil {
		return nil, err
	}
	return fanOut(ctx, addrs, e.addressUnspent)
}

// addressUnspent fetches and normalizes the outputs of a single address. The
// backend returns no scripts, so the locking script is rebuilt from the
// queried address.
func (e *Esplora) addressUnspent(ctx context.Context, addr btcutil.Address) ([]models.UnspentOutput, error) {
	url := fmt.Sprintf("%s/address/%s/utxo", e.baseURL, addr.EncodeAddress())
	status, body, err := request(ctx, e.httpClient, esploraName, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, &models.ProviderError{Provider: esploraName, StatusCode: status, Body: body}
	}

	var raw []esploraUtxo
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &models.MalformedResponseError{Provider: esploraName, Err: err}
	}

	script, err := codec.AddressScript(addr)
	if err != nil {
		return nil, err
	}

	outs := make([]models.UnspentOutput, 0, len(raw))
	for _, u := range raw {
		outs = append(outs, models.UnspentOutput{
			TxID:      u.TxID,
			Vout:      u.Vout,
			Amount:    u.Value,
			PkScript:  script,
			Address:   addr,
			Confirmed: u.Status.Confirmed,
		})
	}
	return outs, nil
}

// Broadcast submits the raw hex to the backend. Esplora relays bitcoind's
// error strings, so the duplicate predicate matches those.
func (e *Esplora) Broadcast(ctx context.Context, txHex string) (*models.BroadcastResult, error) {
	tx, err := codec.DecodeTransaction(txHex)
	if err != nil {
		return nil, err
	}

	status, body, err := request(ctx, e.httpClient, esploraName, http.MethodPost, e.baseURL+"/tx", nil, strings.NewReader(txHex))
	if err != nil {
		return nil, err
	}
	if !success(status) {
		if e.alreadyKnown(body) {
			e.logger.Debug("Transaction already known to the network ", "txid ", codec.TxID(tx))
			return &models.BroadcastResult{TxID: codec.TxID(tx), AlreadyKnown: true}, nil
		}
		return nil, &models.ProviderError{Provider: esploraName, StatusCode: status, Body: body}
	}

	txid := strings.TrimSpace(string(body))
	if !codec.ValidTxID(txid) {
		return nil, &models.MalformedResponseError{Provider: esploraName, Err: fmt.Errorf("broadcast response %q is not a txid", txid)}
	}
	return &models.BroadcastResult{TxID: txid}, nil
}

// alreadyKnown matches the bitcoind RPC wordings Esplora relays for
// duplicate submissions.
func (e *Esplora) alreadyKnown(body []byte) bool {
	text := strings.ToLower(string(body))
	return strings.Contains(text, "txn-already-in-mempool") ||
		strings.Contains(text, "txn-already-known") ||
		strings.Contains(text, "already in block chain")
}

// EstimateFee reads the per-block-count estimate table and picks the entry
// satisfying the confirmation target. Rates arrive as sat/vB and are reported
// per kilobyte.
func (e *Esplora) EstimateFee(ctx context.Context, targetBlocks int) (*models.FeeEstimate, error) {
	if targetBlocks < 0 {
		return nil, models.NewInvalidArgument("confirmation target cannot be negative: %d", targetBlocks)
	}

	status, body, err := request(ctx, e.httpClient, esploraName, http.MethodGet, e.baseURL+"/fee-estimates", nil, nil)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, &models.ProviderError{Provider: esploraName, StatusCode: status, Body: body}
	}

	var table map[string]float64
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, &models.MalformedResponseError{Provider: esploraName, Err: err}
	}

	tiers := make([]models.FeeEstimate, 0, len(table))
	for key, rate := range table {
		blocks, err := strconv.Atoi(key)
		if err != nil {
			// Tolerate unknown keys for forward compatibility.
			continue
		}
		tiers = append(tiers, models.FeeEstimate{
			TargetBlocks: blocks,
			FeePerKB:     int64(rate * 1000),
		})
	}
	if len(tiers) == 0 {
		return nil, &models.MalformedResponseError{Provider: esploraName, Err: fmt.Errorf("fee estimate table carries no numeric targets")}
	}
	return selectTier(tiers, targetBlocks)
}

// GetTransaction fetches and decodes a transaction by id.
func (e *Esplora) GetTransaction(ctx context.Context, txid string) (*wire.MsgTx, error) {
	if !codec.ValidTxID(txid) {
		return nil, models.NewInvalidArgument("txid must be a 64-character hex hash, got %q", txid)
	}

	url := fmt.Sprintf("%s/tx/%s/hex", e.baseURL, txid)
	status, body, err := request(ctx, e.httpClient, esploraName, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, &models.ProviderError{Provider: esploraName, StatusCode: status, Body: body}
	}

	tx, err := codec.DecodeTransaction(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, &models.MalformedResponseError{Provider: esploraName, Err: err}
	}
	return tx, nil
}
