package notificator

import (
	"runtime/debug"

	"github.com/utxokit/utxokit/internal/models"
	"github.com/utxokit/utxokit/pkg/logger"
)

// Notificator fans one watch event out to every configured channel. Channels
// that were not configured are nil and skipped.
type Notificator struct {
	logger *logger.Logger

	TelegramNotificator *TelegramNotificator
	EmailNotificator    *EmailNotificator
}

func NewNotificator(logger *logger.Logger, telNotif *TelegramNotificator, emailNotif *EmailNotificator) *Notificator {
	return &Notificator{logger: logger, TelegramNotificator: telNotif, EmailNotificator: emailNotif}
}

// safeCall runs a function with panic recovery so one broken channel cannot
// take the watcher down.
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (n *Notificator) SendNotification(notification *models.Notification) {
	message := notification.String()

	if n.TelegramNotificator != nil {
		n.safeCall(func() { n.TelegramNotificator.SendNotification(message) }, "telegramNotification")
	}
	if n.EmailNotificator != nil {
		n.safeCall(func() { n.EmailNotificator.SendNotification(message) }, "emailNotification")
	}
	if n.TelegramNotificator == nil && n.EmailNotificator == nil {
		n.logger.Info("Watch event ", "notification ", message)
	}
}
