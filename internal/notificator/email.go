package notificator

import (
	"fmt"
	"net/smtp"

	"github.com/utxokit/utxokit/pkg/logger"
)

// EmailNotificator delivers watch events to one configured recipient.
type EmailNotificator struct {
	logger *logger.Logger

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string
	Recipient    string

	SMTPAuth smtp.Auth
}

func NewEmailNotificator(logger *logger.Logger, host string, port int, user, password, sender, recipient string) *EmailNotificator {
	auth := smtp.PlainAuth(
		"",
		user,
		password,
		host,
	)

	return &EmailNotificator{
		logger:       logger,
		SMTPAuth:     auth,
		SMTPHost:     host,
		SMTPPort:     port,
		SMTPUser:     user,
		SMTPPassword: password,
		SMTPSender:   sender,
		Recipient:    recipient,
	}
}

func (e *EmailNotificator) SendNotification(message string) {
	addr := fmt.Sprintf("%s:%d", e.SMTPHost, e.SMTPPort)
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: utxokit watch event\r\n\r\n%s\r\n",
		e.SMTPSender, e.Recipient, message)

	err := smtp.SendMail(addr, e.SMTPAuth, e.SMTPSender, []string{e.Recipient}, []byte(body))
	if err != nil {
		e.logger.Error("Failed to send email notification: ", err)
	}
}
