package models

// WatchedAddress is an address the watcher polls for new outputs.
type WatchedAddress struct {
	// Address is the watched address in its string encoding.
	Address string `json:"address" gorm:"column:address;primaryKey"`
	// Network is the network the address belongs to.
	Network string `json:"network" gorm:"column:network"`
	// Label is an optional human-readable tag carried into notifications.
	Label string `json:"label" gorm:"column:label"`
	// CreatedAt is the Unix timestamp the watch was registered.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at;index"`
}

// SeenOutput records an outpoint the watcher has already notified about.
// This is notification dedup state, not a UTXO index; lookups always go to
// the providers.
type SeenOutput struct {
	// Outpoint is the "txid:vout" dedup key.
	Outpoint string `json:"outpoint" gorm:"column:outpoint;primaryKey"`
	// Address is the watched address the output pays to.
	Address string `json:"address" gorm:"column:address;index"`
	// Amount is the output value in satoshis.
	Amount int64 `json:"amount" gorm:"column:amount"`
	// ObservedAt is the Unix timestamp the output was first seen.
	ObservedAt int64 `json:"observed_at" gorm:"column:observed_at;index"`
}

// BroadcastRecord journals one broadcast attempt and its classified outcome.
type BroadcastRecord struct {
	// TxID is the transaction hash of the broadcast transaction.
	TxID string `json:"txid" gorm:"column:txid;primaryKey"`
	// Provider is the adapter the transaction was submitted through.
	Provider string `json:"provider" gorm:"column:provider"`
	// AlreadyKnown is true when the network already had the transaction.
	AlreadyKnown bool `json:"already_known" gorm:"column:already_known"`
	// CreatedAt is the Unix timestamp of the attempt.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at;index"`
}

// Repository persists the watchlist, the watcher's dedup state and the
// broadcast journal.
type Repository interface {
	AddWatchedAddress(*WatchedAddress) error
	GetWatchedAddresses() ([]*WatchedAddress, error)
	IsWatched(address string) (bool, error)

	MarkOutputSeen(*SeenOutput) error
	IsOutputSeen(outpoint string) (bool, error)

	RecordBroadcast(*BroadcastRecord) error
	GetBroadcastRecord(txid string) (*BroadcastRecord, error)

	Close() error
}
