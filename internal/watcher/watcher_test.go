package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utxokit/utxokit/internal/codec"
	"github.com/utxokit/utxokit/internal/config"
	"github.com/utxokit/utxokit/internal/models"
	"github.com/utxokit/utxokit/pkg/logger"
)

const (
	mainnetAddr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	testnetAddr = "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn"

	// Transaction from block 170, the oldest non-coinbase transaction.
	rawTxHex = "01000000016dbddb085b1d8af75184f0bc01fad58d1266e9b63b50881990e4b40d6aee3629000000008b483045022100f3581e1972ae8ac7c7367a7a253bc1135223adb9a468bb3a59233f45bc578380022059af01ca17d00e41837a1d58e97aa31bae584edec28d35bd96923690913bae9a0141049c02bfc97ef236ce6d8fe5d94013c721e915982acd2b12b65d9b7d59e20a842005f8fc4e02532e873d37b96f09d6d4511ada8f14042f46614a4c70c0f14beff5ffffffff02404b4c00000000001976a9141aa0cd1cbea6e7458a7abad512a9d9ea1afb225e88ac80fae9c7000000001976a9140eab5bea436a0484cfab12485efda0b78b4ecc5288ac00000000"
)

type fakeRepo struct {
	mu sync.Mutex

	watches    []*models.WatchedAddress
	seen       map[string]*models.SeenOutput
	broadcasts map[string]*models.BroadcastRecord

	addCalls  int
	recordErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		seen:       make(map[string]*models.SeenOutput),
		broadcasts: make(map[string]*models.BroadcastRecord),
	}
}

func (r *fakeRepo) AddWatchedAddress(watch *models.WatchedAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addCalls++
	r.watches = append(r.watches, watch)
	return nil
}

func (r *fakeRepo) GetWatchedAddresses() ([]*models.WatchedAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watches, nil
}

func (r *fakeRepo) IsWatched(address string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, watch := range r.watches {
		if watch.Address == address {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) MarkOutputSeen(output *models.SeenOutput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[output.Outpoint] = output
	return nil
}

func (r *fakeRepo) IsOutputSeen(outpoint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[outpoint]
	return ok, nil
}

func (r *fakeRepo) RecordBroadcast(record *models.BroadcastRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	r.broadcasts[record.TxID] = record
	return nil
}

func (r *fakeRepo) GetBroadcastRecord(txid string) (*models.BroadcastRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.broadcasts[txid]
	if !ok {
		return nil, errors.New("not found")
	}
	return record, nil
}

func (r *fakeRepo) Close() error { return nil }

type fakeProvider struct {
	network models.Network

	outputs      []models.UnspentOutput
	outputsErr   error
	broadcastRes *models.BroadcastResult
	broadcastErr error
	fee          *models.FeeEstimate
}

func (p *fakeProvider) Name() string            { return "fake" }
func (p *fakeProvider) Network() models.Network { return p.network }

func (p *fakeProvider) GetUnspentOutputs(ctx context.Context, addrs []btcutil.Address) ([]models.UnspentOutput, error) {
	if p.outputsErr != nil {
		return nil, p.outputsErr
	}
	return p.outputs, nil
}

func (p *fakeProvider) Broadcast(ctx context.Context, txHex string) (*models.BroadcastResult, error) {
	if p.broadcastErr != nil {
		return nil, p.broadcastErr
	}
	return p.broadcastRes, nil
}

func (p *fakeProvider) EstimateFee(ctx context.Context, targetBlocks int) (*models.FeeEstimate, error) {
	return p.fee, nil
}

type fakeTxProvider struct {
	fakeProvider
	tx *wire.MsgTx
}

func (p *fakeTxProvider) GetTransaction(ctx context.Context, txid string) (*wire.MsgTx, error) {
	return p.tx, nil
}

type recordingNotificator struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (n *recordingNotificator) SendNotification(notification *models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *recordingNotificator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func newTestWatcher(repo models.Repository, provider models.Provider, notificator models.NotificationService) *Watcher {
	cfg := &config.Config{PollInterval: time.Minute}
	return NewWatcher(repo, provider, notificator, logger.NewNop(), cfg).(*Watcher)
}

func mustAddr(t *testing.T, raw string) btcutil.Address {
	t.Helper()
	addr, err := codec.ToAddress(raw, models.Mainnet)
	require.NoError(t, err)
	return addr
}

func TestWatchAddressRegistersOnce(t *testing.T) {
	repo := newFakeRepo()
	w := newTestWatcher(repo, &fakeProvider{network: models.Mainnet}, &recordingNotificator{})

	require.NoError(t, w.WatchAddress(mainnetAddr, "cold storage"))
	require.NoError(t, w.WatchAddress(mainnetAddr, "cold storage"))

	assert.Equal(t, 1, repo.addCalls)
	require.Len(t, repo.watches, 1)
	assert.Equal(t, mainnetAddr, repo.watches[0].Address)
	assert.Equal(t, "cold storage", repo.watches[0].Label)
}

func TestWatchAddressRejectsWrongNetwork(t *testing.T) {
	repo := newFakeRepo()
	w := newTestWatcher(repo, &fakeProvider{network: models.Mainnet}, &recordingNotificator{})

	err := w.WatchAddress(testnetAddr, "")
	require.Error(t, err)

	var invalidArg *models.InvalidArgumentError
	assert.True(t, errors.As(err, &invalidArg))
	assert.Zero(t, repo.addCalls)
}

func TestUnspentOutputsValidatesBeforeProvider(t *testing.T) {
	provider := &fakeProvider{network: models.Mainnet, outputsErr: errors.New("must not be reached")}
	w := newTestWatcher(newFakeRepo(), provider, &recordingNotificator{})

	var invalidArg *models.InvalidArgumentError

	_, err := w.UnspentOutputs(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &invalidArg))

	_, err = w.UnspentOutputs(context.Background(), []string{testnetAddr})
	require.Error(t, err)
	assert.True(t, errors.As(err, &invalidArg))
}

func TestBroadcastJournalsResult(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{
		network:      models.Mainnet,
		broadcastRes: &models.BroadcastResult{TxID: "deadbeef", AlreadyKnown: true},
	}
	w := newTestWatcher(repo, provider, &recordingNotificator{})

	result, err := w.Broadcast(context.Background(), rawTxHex)
	require.NoError(t, err)
	assert.True(t, result.AlreadyKnown)

	record, err := repo.GetBroadcastRecord("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "fake", record.Provider)
	assert.True(t, record.AlreadyKnown)
}

func TestBroadcastJournalFailureIsNotABroadcastFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.recordErr = errors.New("database is down")
	provider := &fakeProvider{
		network:      models.Mainnet,
		broadcastRes: &models.BroadcastResult{TxID: "deadbeef"},
	}
	w := newTestWatcher(repo, provider, &recordingNotificator{})

	result, err := w.Broadcast(context.Background(), rawTxHex)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", result.TxID)
}

func TestBroadcastErrorIsNotJournaled(t *testing.T) {
	repo := newFakeRepo()
	boom := &models.ProviderError{Provider: "fake", StatusCode: 400}
	w := newTestWatcher(repo, &fakeProvider{network: models.Mainnet, broadcastErr: boom}, &recordingNotificator{})

	_, err := w.Broadcast(context.Background(), rawTxHex)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, repo.broadcasts)
}

func TestPollNotifiesNewOutputsOnce(t *testing.T) {
	repo := newFakeRepo()
	addr := mustAddr(t, mainnetAddr)
	provider := &fakeProvider{
		network: models.Mainnet,
		outputs: []models.UnspentOutput{
			{TxID: "aa", Vout: 0, Amount: 100, Address: addr, Confirmed: true},
			{TxID: "bb", Vout: 1, Amount: 200, Address: addr, Confirmed: false},
		},
	}
	notificator := &recordingNotificator{}
	w := newTestWatcher(repo, provider, notificator)
	require.NoError(t, w.WatchAddress(mainnetAddr, "savings"))

	require.NoError(t, w.poll())
	require.Eventually(t, func() bool {
		return notificator.count() == 2
	}, time.Second, 10*time.Millisecond)

	// A second pass over the same outputs stays quiet.
	require.NoError(t, w.poll())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, notificator.count())

	notificator.mu.Lock()
	defer notificator.mu.Unlock()
	for _, sent := range notificator.sent {
		assert.Equal(t, mainnetAddr, sent.Address)
		assert.Equal(t, "savings", sent.Label)
		assert.Equal(t, string(models.Mainnet), sent.Network)
	}
}

func TestPollWithoutWatchesSkipsProvider(t *testing.T) {
	provider := &fakeProvider{network: models.Mainnet, outputsErr: errors.New("must not be reached")}
	w := newTestWatcher(newFakeRepo(), provider, &recordingNotificator{})

	require.NoError(t, w.poll())
}

func TestPollSurfacesProviderFailure(t *testing.T) {
	repo := newFakeRepo()
	boom := &models.ProviderError{Provider: "fake", StatusCode: 503}
	w := newTestWatcher(repo, &fakeProvider{network: models.Mainnet, outputsErr: boom}, &recordingNotificator{})
	require.NoError(t, w.WatchAddress(mainnetAddr, ""))

	err := w.poll()
	require.ErrorIs(t, err, boom)
}

func TestTransactionRequiresCapableProvider(t *testing.T) {
	w := newTestWatcher(newFakeRepo(), &fakeProvider{network: models.Mainnet}, &recordingNotificator{})

	_, err := w.Transaction(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support")
}

func TestTransactionRoundTrip(t *testing.T) {
	tx, err := codec.DecodeTransaction(rawTxHex)
	require.NoError(t, err)

	provider := &fakeTxProvider{
		fakeProvider: fakeProvider{network: models.Mainnet},
		tx:           tx,
	}
	w := newTestWatcher(newFakeRepo(), provider, &recordingNotificator{})

	got, err := w.Transaction(context.Background(), codec.TxID(tx))
	require.NoError(t, err)
	assert.Equal(t, rawTxHex, got)
}

func TestEstimateFeeProxiesProvider(t *testing.T) {
	provider := &fakeProvider{
		network: models.Mainnet,
		fee:     &models.FeeEstimate{TargetBlocks: 3, FeePerKB: 1000},
	}
	w := newTestWatcher(newFakeRepo(), provider, &recordingNotificator{})

	estimate, err := w.EstimateFee(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), estimate.FeePerKB)
}
