package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/utxokit/utxokit/internal/codec"
	"github.com/utxokit/utxokit/internal/config"
	"github.com/utxokit/utxokit/internal/models"
	"github.com/utxokit/utxokit/pkg/logger"
)

// Watcher is the main struct of the application. It exposes the unified
// client operations over whichever provider the config selected and runs the
// polling loop that turns new outputs on watched addresses into
// notifications.
type Watcher struct {
	logger *logger.Logger
	config *config.Config

	repo        models.Repository
	provider    models.Provider
	notificator models.NotificationService

	stop chan struct{}
}

// NewWatcher creates a new Watcher instance
func NewWatcher(
	repo models.Repository,
	provider models.Provider,
	notificator models.NotificationService,
	logger *logger.Logger,
	config *config.Config,
) models.WatcherI {
	return &Watcher{
		repo:        repo,
		provider:    provider,
		logger:      logger,
		notificator: notificator,
		config:      config,
		stop:        make(chan struct{}),
	}
}

// Start runs the polling loop. A failed poll is logged and retried on the
// next tick; the fail-fast rule applies inside one aggregation, not across
// ticks.
func (w *Watcher) Start() {
	w.logger.Info("Starting watcher ", "provider ", w.provider.Name(), "interval ", w.config.PollInterval)
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.poll(); err != nil {
				w.logger.Error("Poll failed ", "error ", err)
			}
		case <-w.stop:
			w.logger.Info("Watcher stopped")
			return
		}
	}
}

// Stop terminates the polling loop.
func (w *Watcher) Stop() {
	close(w.stop)
}

// poll resolves the unspent outputs of every watched address and notifies
// about outpoints not seen before.
func (w *Watcher) poll() error {
	watches, err := w.repo.GetWatchedAddresses()
	if err != nil {
		return fmt.Errorf("failed to load watched addresses: %w", err)
	}
	if len(watches) == 0 {
		return nil
	}

	labels := make(map[string]string, len(watches))
	raw := make([]string, 0, len(watches))
	for _, watch := range watches {
		raw = append(raw, watch.Address)
		labels[watch.Address] = watch.Label
	}

	outputs, err := w.UnspentOutputs(context.Background(), raw)
	if err != nil {
		return fmt.Errorf("failed to resolve watched outputs: %w", err)
	}

	for _, output := range outputs {
		seen, err := w.repo.IsOutputSeen(output.Outpoint())
		if err != nil {
			w.logger.Error("Failed to check seen output ", "outpoint ", output.Outpoint(), "error ", err)
			continue
		}
		if seen {
			continue
		}

		address := output.Address.EncodeAddress()
		err = w.repo.MarkOutputSeen(&models.SeenOutput{
			Outpoint:   output.Outpoint(),
			Address:    address,
			Amount:     output.Amount,
			ObservedAt: time.Now().Unix(),
		})
		if err != nil {
			w.logger.Error("Failed to mark output seen ", "outpoint ", output.Outpoint(), "error ", err)
			continue
		}

		w.logger.Info("New output on watched address ", "outpoint ", output.Outpoint(), "address ", address)
		notification := &models.Notification{
			Address: address,
			Label:   labels[address],
			TxID:    output.TxID,
			Vout:    output.Vout,
			Amount:  output.Amount,
			Network: string(w.provider.Network()),
		}
		go w.notificator.SendNotification(notification)
	}

	return nil
}

// WatchAddress validates and registers an address for polling.
func (w *Watcher) WatchAddress(address, label string) error {
	addr, err := codec.ToAddress(address, w.provider.Network())
	if err != nil {
		return err
	}

	watched, err := w.repo.IsWatched(addr.EncodeAddress())
	if err != nil {
		return err
	}
	if watched {
		return nil
	}

	return w.repo.AddWatchedAddress(&models.WatchedAddress{
		Address:   addr.EncodeAddress(),
		Network:   string(w.provider.Network()),
		Label:     label,
		CreatedAt: time.Now().Unix(),
	})
}

// UnspentOutputs validates the raw address strings against the provider
// network and resolves them.
func (w *Watcher) UnspentOutputs(ctx context.Context, addresses []string) ([]models.UnspentOutput, error) {
	addrs, err := codec.ToAddresses(addresses, w.provider.Network())
	if err != nil {
		return nil, err
	}
	return w.provider.GetUnspentOutputs(ctx, addrs)
}

// Broadcast submits a raw transaction and journals the classified outcome.
// An already-known transaction is journaled as such and returned as success.
func (w *Watcher) Broadcast(ctx context.Context, txHex string) (*models.BroadcastResult, error) {
	result, err := w.provider.Broadcast(ctx, txHex)
	if err != nil {
		return nil, err
	}

	record := &models.BroadcastRecord{
		TxID:         result.TxID,
		Provider:     w.provider.Name(),
		AlreadyKnown: result.AlreadyKnown,
		CreatedAt:    time.Now().Unix(),
	}
	if err := w.repo.RecordBroadcast(record); err != nil {
		// The transaction is on the network; a journaling failure must not
		// look like a broadcast failure.
		w.logger.Error("Failed to journal broadcast ", "txid ", result.TxID, "error ", err)
	}
	return result, nil
}

// EstimateFee proxies to the provider's fee tier selection.
func (w *Watcher) EstimateFee(ctx context.Context, targetBlocks int) (*models.FeeEstimate, error) {
	return w.provider.EstimateFee(ctx, targetBlocks)
}

// Transaction fetches a raw transaction by id on providers that support it.
func (w *Watcher) Transaction(ctx context.Context, txid string) (string, error) {
	getter, ok := w.provider.(models.TransactionGetter)
	if !ok {
		return "", fmt.Errorf("provider %s does not support transaction lookup", w.provider.Name())
	}
	tx, err := getter.GetTransaction(ctx, txid)
	if err != nil {
		return "", err
	}
	return codec.EncodeTransactionHex(tx)
}
