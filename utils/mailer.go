package utils

import (
	"fmt"

	"accelerator/config"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// Mailer sends outreach email over SMTP. It implements ChannelSender.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Send(msg OutreachMessage) (string, error) {
	if msg.To == "" {
		return "", fmt.Errorf("email message missing recipient")
	}

	messageID := uuid.New().String()

	mail := gomail.NewMessage()
	mail.SetHeader("From", fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromEmail))
	mail.SetHeader("To", msg.To)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", messageID, m.cfg.Host))
	mail.SetBody("text/html", msg.Body)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := d.DialAndSend(mail); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}

	return messageID, nil
}
