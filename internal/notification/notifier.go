package notification

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"NetFocus/internal/config"
	"NetFocus/internal/model"
)

// EmailNotifier delivers alert summaries by SMTP. Bodies are HTML; the
// alerter's cluster tables depend on that.
type EmailNotifier struct {
	cfg        config.SMTPConfig
	auth       smtp.Auth
	recipients []string
}

// NewEmailNotifier creates a notifier for the configured recipients. The To
// field may list several addresses separated by commas.
func NewEmailNotifier(cfg config.SMTPConfig) model.Notifier {
	recipients := strings.Split(cfg.To, ",")
	for i := range recipients {
		recipients[i] = strings.TrimSpace(recipients[i])
	}
	// PlainAuth refuses to send credentials to a server it does not trust.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailNotifier{cfg: cfg, auth: auth, recipients: recipients}
}

// Send delivers one HTML mail to every configured recipient.
func (n *EmailNotifier) Send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	var msg strings.Builder
	msg.WriteString("To: " + strings.Join(n.recipients, ", ") + "\r\n")
	msg.WriteString("From: " + n.cfg.From + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(addr, n.auth, n.cfg.From, n.recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
