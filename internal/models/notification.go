package models

import "fmt"

// NotificationService delivers watch events to the configured channels.
type NotificationService interface {
	SendNotification(notification *Notification)
}

// Notification describes one newly funded output on a watched address.
type Notification struct {
	Address string `json:"address"`
	Label   string `json:"label"`
	TxID    string `json:"txid"`
	Vout    uint32 `json:"vout"`
	Amount  int64  `json:"amount"`
	Network string `json:"network"`
}

func (n *Notification) String() string {
	who := n.Address
	if n.Label != "" {
		who = fmt.Sprintf("%s (%s)", n.Label, n.Address)
	}
	return fmt.Sprintf("New output for %s: %d sat in %s:%d [%s]", who, n.Amount, n.TxID, n.Vout, n.Network)
}
