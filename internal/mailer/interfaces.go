package mailer

import (
	"context"

	"github.com/yuki-disu/PPD-back/pkg/config"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Service interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the delivery backend from configuration: dev mode logs,
// a MailerSend key selects the API, anything else goes through SMTP.
func New(cfg config.EmailConfig) Service {
	switch {
	case cfg.DevMode:
		logger.Info("Email dev mode enabled, messages are printed instead of sent")
		return NewDevMailer()
	case cfg.MailerSendKey != "":
		return NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	default:
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
}
