package models

import (
	"context"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// HTTPClient is the injected transport boundary. Adapters build requests and
// interpret status codes and bodies; connection pooling, TLS and timeouts are
// the client's business.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider is the unified capability set every explorer backend implements.
// Callers treat any implementation interchangeably.
type Provider interface {
	// Name returns the provider's short identifier for logs and errors.
	Name() string

	// Network returns the network the adapter was constructed for.
	Network() Network

	// GetUnspentOutputs returns the unspent outputs of one or more addresses,
	// deduplicated by (txid, vout). The list must be non-empty and every
	// address must belong to the adapter's network.
	GetUnspentOutputs(ctx context.Context, addrs []btcutil.Address) ([]UnspentOutput, error)

	// Broadcast submits a raw transaction in hex form. A transaction the
	// network already knows yields a BroadcastResult with AlreadyKnown set
	// rather than an error.
	Broadcast(ctx context.Context, txHex string) (*BroadcastResult, error)

	// EstimateFee maps a "confirm within targetBlocks" request onto the
	// closest fee tier the provider offers.
	EstimateFee(ctx context.Context, targetBlocks int) (*FeeEstimate, error)
}

// TransactionGetter is implemented by providers that can fetch a transaction
// by id.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, txid string) (*wire.MsgTx, error)
}
