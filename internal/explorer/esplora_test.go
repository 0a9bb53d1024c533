package explorer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utxokit/utxokit/internal/codec"
	"github.com/utxokit/utxokit/internal/models"
)

func newEsplora(t *testing.T, baseURL string) *Esplora {
	t.Helper()
	e, err := NewEsplora(models.ProviderConfig{
		Network: models.Mainnet,
		BaseURL: baseURL,
	}, testLogger())
	require.NoError(t, err)
	return e
}

func TestEsploraCanonicalURLRoundTrip(t *testing.T) {
	fromNetwork, err := NewEsplora(models.ProviderConfig{Network: models.Testnet}, testLogger())
	require.NoError(t, err)

	fromURL, err := NewEsplora(models.ProviderConfig{Network: models.Testnet, BaseURL: esploraTestnetURL}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, fromNetwork.baseURL, fromURL.baseURL)
	assert.Equal(t, models.Testnet, fromNetwork.Network())
}

func TestEsploraRejectsUnknownNetwork(t *testing.T) {
	_, err := NewEsplora(models.ProviderConfig{Network: "regtest"}, testLogger())
	require.Error(t, err)

	var invalidArg *models.InvalidArgumentError
	assert.True(t, errors.As(err, &invalidArg))
}

func TestEsploraUnspentFansOutPerAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/address/" + mainnetAddr1 + "/utxo":
			fmt.Fprint(w, `[
				{"txid": "aa", "vout": 0, "value": 100, "status": {"confirmed": true}},
				{"txid": "cc", "vout": 2, "value": 300, "status": {"confirmed": false}}
			]`)
		case "/address/" + mainnetAddr2 + "/utxo":
			fmt.Fprint(w, `[
				{"txid": "bb", "vout": 1, "value": 200, "status": {"confirmed": true}}
			]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newEsplora(t, srv.URL)
	outs, err := e.GetUnspentOutputs(context.Background(), mainnetAddrs(t, mainnetAddr1, mainnetAddr2))
	require.NoError(t, err)
	require.Len(t, outs, 3)

	byOutpoint := make(map[string]models.UnspentOutput, len(outs))
	for _, out := range outs {
		byOutpoint[out.Outpoint()] = out
	}

	require.Contains(t, byOutpoint, "aa:0")
	require.Contains(t, byOutpoint, "bb:1")
	require.Contains(t, byOutpoint, "cc:2")

	// Unconfirmed outputs are included as spendable candidates.
	assert.False(t, byOutpoint["cc:2"].Confirmed)

	// The locking script is rebuilt from the queried address.
	assert.Equal(t, mainnetAddr1, byOutpoint["aa:0"].Address.EncodeAddress())
	wantScript, err := codec.AddressScript(mustAddr(t, mainnetAddr1, models.Mainnet))
	require.NoError(t, err)
	assert.Equal(t, wantScript, byOutpoint["aa:0"].PkScript)
}

func TestEsploraUnspentOneFailureFailsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/address/"+mainnetAddr2+"/utxo" {
			http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"txid": "aa", "vout": 0, "value": 100, "status": {"confirmed": true}}]`)
	}))
	defer srv.Close()

	e := newEsplora(t, srv.URL)
	outs, err := e.GetUnspentOutputs(context.Background(), mainnetAddrs(t, mainnetAddr1, mainnetAddr2))
	require.Error(t, err)
	assert.Nil(t, outs)

	var providerErr *models.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusServiceUnavailable, providerErr.StatusCode)
}

func TestEsploraUnspentMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unexpected": "shape"}`)
	}))
	defer srv.Close()

	e := newEsplora(t, srv.URL)
	_, err := e.GetUnspentOutputs(context.Background(), mainnetAddrs(t, mainnetAddr1))
	require.Error(t, err)

	var malformed *models.MalformedResponseError
	assert.True(t, errors.As(err, &malformed))
}

func TestEsploraBroadcast(t *testing.T) {
	tx, err := codec.DecodeTransaction(rawTxHex)
	require.NoError(t, err)
	txid := codec.TxID(tx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/tx", r.URL.Path)
		fmt.Fprint(w, txid)
	}))
	defer srv.Close()

	e := newEsplora(t, srv.URL)
	result, err := e.Broadcast(context.Background(), rawTxHex)
	require.NoError(t, err)
	assert.Equal(t, txid, result.TxID)
	assert.False(t, result.AlreadyKnown)
}

func TestEsploraBroadcastAlreadyInMempool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `sendrawtransaction RPC error: {"code":-27,"message":"txn-already-in-mempool"}`)
	}))
	defer srv.Close()

	tx, err := codec.DecodeTransaction(rawTxHex)
	require.NoError(t, err)

	e := newEsplora(t, srv.URL)
	result, err := e.Broadcast(context.Background(), rawTxHex)
	require.NoError(t, err)
	assert.True(t, result.AlreadyKnown)
	assert.Equal(t, codec.TxID(tx), result.TxID)
}

func TestEsploraBroadcastRejectionIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `sendrawtransaction RPC error: {"code":-26,"message":"min relay fee not met"}`)
	}))
	defer srv.Close()

	e := newEsplora(t, srv.URL)
	_, err := e.Broadcast(context.Background(), rawTxHex)
	require.Error(t, err)

	var providerErr *models.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Contains(t, string(providerErr.Body), "min relay fee")
}

func TestEsploraBroadcastRejectsBadHexBeforeNetwork(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	e := newEsplora(t, srv.URL)
	_, err := e.Broadcast(context.Background(), "0102zz")
	require.Error(t, err)

	var invalidArg *models.InvalidArgumentError
	assert.True(t, errors.As(err, &invalidArg))
	assert.Zero(t, calls.Load())
}

func TestEsploraFeeEstimatePicksSatisfyingTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fee-estimates", r.URL.Path)
		fmt.Fprint(w, `{"1": 90.0, "3": 50.5, "7": 10.0, "144": 1.0, "weird": 5}`)
	}))
	defer srv.Close()

	e := newEsplora(t, srv.URL)

	tests := []struct {
		target  int
		wantFee int64
	}{
		{target: 1, wantFee: 90000},
		{target: 2, wantFee: 90000},
		{target: 3, wantFee: 50500},
		{target: 6, wantFee: 50500},
		{target: 7, wantFee: 10000},
		{target: 200, wantFee: 1000},
	}
	for _, tt := range tests {
		estimate, err := e.EstimateFee(context.Background(), tt.target)
		require.NoError(t, err, "target %d", tt.target)
		assert.Equal(t, tt.wantFee, estimate.FeePerKB, "target %d", tt.target)
	}
}

func TestEsploraFeeEstimateBelowLowestClampsToFastest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"3": 50.0, "7": 10.0}`)
	}))
	defer srv.Close()

	e := newEsplora(t, srv.URL)
	estimate, err := e.EstimateFee(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, estimate.TargetBlocks)
}

func TestEsploraGetTransaction(t *testing.T) {
	tx, err := codec.DecodeTransaction(rawTxHex)
	require.NoError(t, err)
	txid := codec.TxID(tx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tx/"+txid+"/hex", r.URL.Path)
		fmt.Fprint(w, rawTxHex)
	}))
	defer srv.Close()

	e := newEsplora(t, srv.URL)
	got, err := e.GetTransaction(context.Background(), txid)
	require.NoError(t, err)
	assert.Equal(t, txid, codec.TxID(got))
}

func TestEsploraGetTransactionRejectsBadTxID(t *testing.T) {
	e := newEsplora(t, "http://unused.invalid")

	for _, txid := range []string{"", "abc", "zz" + rawTxHex[:62]} {
		_, err := e.GetTransaction(context.Background(), txid)
		require.Error(t, err, "txid %q", txid)

		var invalidArg *models.InvalidArgumentError
		assert.True(t, errors.As(err, &invalidArg), "txid %q", txid)
	}
}
