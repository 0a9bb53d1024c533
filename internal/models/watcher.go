package models

import "context"

// WatcherI is the application surface: the unified client operations plus the
// address-watching loop built on top of them. The HTTP API and the CLI both
// talk to this interface.
type WatcherI interface {
	// Start runs the polling loop until Stop is called.
	Start()

	// Stop terminates the polling loop.
	Stop()

	// WatchAddress registers an address for polling. The address is validated
	// against the service network before it is stored.
	WatchAddress(address, label string) error

	// UnspentOutputs validates the raw addresses and resolves their unspent
	// outputs through the provider.
	UnspentOutputs(ctx context.Context, addresses []string) ([]UnspentOutput, error)

	// Broadcast submits a raw transaction and journals the classified outcome.
	Broadcast(ctx context.Context, txHex string) (*BroadcastResult, error)

	// EstimateFee returns the fee tier satisfying the confirmation target.
	EstimateFee(ctx context.Context, targetBlocks int) (*FeeEstimate, error)

	// Transaction fetches a raw transaction in hex form by id, on providers
	// that support it.
	Transaction(ctx context.Context, txid string) (string, error)
}
