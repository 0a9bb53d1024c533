package explorer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/utxokit/utxokit/internal/codec"
	"github.com/utxokit/utxokit/internal/models"
	"github.com/utxokit/utxokit/pkg/logger"
)

const (
	mattercloudName       = "mattercloud"
	mattercloudMainnetURL = "https://api.mattercloud.net/api/v3/main"
	mattercloudTestnetURL = "https://api.mattercloud.net/api/v3/test"
)

// MatterCloud is the rich-query adapter: one call resolves many addresses,
// the response splits outputs into confirmed and unconfirmed lists, and fees
// come as named fast/medium/slow buckets.
type MatterCloud struct {
	logger     *logger.Logger
	network    models.Network
	baseURL    string
	apiKey     string
	httpClient models.HTTPClient
}

var _ models.Provider = (*MatterCloud)(nil)

// NewMatterCloud creates a MatterCloud adapter. An empty network means the
// library default; an empty base URL derives the canonical endpoint for the
// network; an explicit base URL must not contradict the network.
func NewMatterCloud(cfg models.ProviderConfig, log *logger.Logger) (*MatterCloud, error) {
	network, baseURL, err := resolveEndpoint(cfg, mattercloudMainnetURL, mattercloudTestnetURL)
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}
	return &MatterCloud{
		logger:     log,
		network:    network,
		baseURL:    baseURL,
		apiKey:     cfg.AuthToken,
		httpClient: httpClient,
	}, nil
}

func (m *MatterCloud) Name() string {
	return mattercloudName
}

func (m *MatterCloud) Network() models.Network {
	return m.network
}

func (m *MatterCloud) headers() map[string]string {
	if m.apiKey == "" {
		return nil
	}
	return map[string]string{"api_key": m.apiKey}
}

// Wire types. Unknown fields in provider responses are ignored on purpose.
type mcUnspent struct {
	TxID     string `json:"txid"`
	Vout     uint32 `json:"vout"`
	Satoshis int64  `json:"satoshis"`
	Script   string `json:"script"`
	Address  string `json:"address"`
}

type mcUtxoResponse struct {
	Confirmed   []mcUnspent `json:"confirmed"`
	Unconfirmed []mcUnspent `json:"unconfirmed"`
}

type mcBroadcastResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

type mcFeeQuote struct {
	Blocks   int   `json:"blocks"`
	FeePerKB int64 `json:"feePerKb"`
}

type mcFeeResponse struct {
	Fast   mcFeeQuote `json:"fast"`
	Medium mcFeeQuote `json:"medium"`
	Slow   mcFeeQuote `json:"slow"`
}

// GetUnspentOutputs resolves all addresses in a single bulk call. Confirmed
// and unconfirmed outputs are both returned; unconfirmed ones are spendable
// candidates unless the caller filters them.
func (m *MatterCloud) GetUnspentOutputs(ctx context.Context, addrs []btcutil.Address) ([]models.UnspentOutput, error) {
	if err := checkAddresses(addrs, m.network); err != nil {
		return nil, err
	}

	encoded := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		encoded = append(encoded, addr.EncodeAddress())
	}
	reqBody, err := json.Marshal(map[string]string{"addrs": strings.Join(encoded, ",")})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	status, body, err := request(ctx, m.httpClient, mattercloudName, http.MethodPost, m.baseURL+"/addrs/utxo", m.headers(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, &models.ProviderError{Provider: mattercloudName, StatusCode: status, Body: body}
	}

	var resp mcUtxoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.MalformedResponseError{Provider: mattercloudName, Err: err}
	}

	// A missing unconfirmed (or confirmed) list is an empty list, not an error.
	confirmed, err := m.normalizeOutputs(resp.Confirmed, true)
	if err != nil {
		return nil, err
	}
	unconfirmed, err := m.normalizeOutputs(resp.Unconfirmed, false)
	if err != nil {
		return nil, err
	}
	return flatten(confirmed, unconfirmed), nil
}

// normalizeOutputs translates raw entries into canonical records. The owning
// address is derived from the locking script when the provider omits the
// address field.
func (m *MatterCloud) normalizeOutputs(raw []mcUnspent, confirmed bool) ([]models.UnspentOutput, error) {
	outs := make([]models.UnspentOutput, 0, len(raw))
	for _, u := range raw {
		script, err := hex.DecodeString(u.Script)
		if err != nil {
			return nil, &models.MalformedResponseError{Provider: mattercloudName, Err: fmt.Errorf("output %s:%d carries non-hex script", u.TxID, u.Vout)}
		}

		var addr btcutil.Address
		if u.Address != "" {
			addr, err = codec.ToAddress(u.Address, m.network)
		} else {
			addr, err = codec.ScriptToAddress(script, m.network)
		}
		if err != nil {
			return nil, &models.MalformedResponseError{Provider: mattercloudName, Err: fmt.Errorf("output %s:%d: %w", u.TxID, u.Vout, err)}
		}

		outs = append(outs, models.UnspentOutput{
			TxID:      u.TxID,
			Vout:      u.Vout,
			Amount:    u.Satoshis,
			PkScript:  script,
			Address:   addr,
			Confirmed: confirmed,
		})
	}
	return outs, nil
}

// Broadcast submits a raw transaction. A provider response reporting the
// transaction as already present on the network is a success with
// AlreadyKnown set, never an error.
func (m *MatterCloud) Broadcast(ctx context.Context, txHex string) (*models.BroadcastResult, error) {
	tx, err := codec.DecodeTransaction(txHex)
	if err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(map[string]string{"rawtx": txHex})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	status, body, err := request(ctx, m.httpClient, mattercloudName, http.MethodPost, m.baseURL+"/tx/send", m.headers(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	if !success(status) {
		if m.alreadyKnown(body) {
			m.logger.Debug("Transaction already known to the network ", "txid ", codec.TxID(tx))
			return &models.BroadcastResult{TxID: codec.TxID(tx), AlreadyKnown: true}, nil
		}
		return nil, &models.ProviderError{Provider: mattercloudName, StatusCode: status, Body: body}
	}

	var resp mcBroadcastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.MalformedResponseError{Provider: mattercloudName, Err: err}
	}
	if resp.Result == "" {
		return nil, &models.MalformedResponseError{Provider: mattercloudName, Err: fmt.Errorf("broadcast response carries no txid")}
	}
	return &models.BroadcastResult{TxID: resp.Result}, nil
}

// alreadyKnown is the provider-specific duplicate-broadcast predicate. Other
// adapters carry their own wording.
func (m *MatterCloud) alreadyKnown(body []byte) bool {
	text := strings.ToLower(string(body))
	return strings.Contains(text, "txn-already-known") ||
		strings.Contains(text, "already in the mempool")
}

// EstimateFee fetches the named fee buckets and picks the tier satisfying the
// confirmation target.
func (m *MatterCloud) EstimateFee(ctx context.Context, targetBlocks int) (*models.FeeEstimate, error) {
	if targetBlocks < 0 {
		return nil, models.NewInvalidArgument("confirmation target cannot be negative: %d", targetBlocks)
	}

	status, body, err := request(ctx, m.httpClient, mattercloudName, http.MethodGet, m.baseURL+"/fee/quotes", m.headers(), nil)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, &models.ProviderError{Provider: mattercloudName, StatusCode: status, Body: body}
	}

	var resp mcFeeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.MalformedResponseError{Provider: mattercloudName, Err: err}
	}

	tiers := []models.FeeEstimate{
		{TargetBlocks: resp.Fast.Blocks, FeePerKB: resp.Fast.FeePerKB},
		{TargetBlocks: resp.Medium.Blocks, FeePerKB: resp.Medium.FeePerKB},
		{TargetBlocks: resp.Slow.Blocks, FeePerKB: resp.Slow.FeePerKB},
	}
	return selectTier(tiers, targetBlocks)
}
