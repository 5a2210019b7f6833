// Package notify contains the concrete delivery channels used by the
// notification dispatcher.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

const emailSubject = "Cryptocurrency Alert Notification"

// SMTPSender delivers alert messages over SMTP
type SMTPSender struct {
	host string
	port int
	auth smtp.Auth
	from string
}

// NewSMTPSender creates an SMTP sender. Empty username disables
// authentication, which suits local debug servers like mailpit.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{host: host, port: port, auth: auth, from: from}
}

// SendEmail delivers the message to the given recipient
func (s *SMTPSender) SendEmail(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", emailSubject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(message)
	b.WriteString("\r\n")

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, s.auth, s.from, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
