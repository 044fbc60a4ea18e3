package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"agency_portal/internal/config"
)

// Sender delivers a fully formatted message (headers and body).
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender sends through net/smtp with PLAIN auth.
type SMTPSender struct {
	from string
	auth smtp.Auth
	addr string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSender returns an SMTP sender, or a LoggingSender when no SMTP host is
// configured.
func NewSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Printf("[email][sender] SMTP host not configured, using logging sender")
		return &LoggingSender{From: cfg.SmtpFromAddress}
	}
	return &SMTPSender{
		from: cfg.SmtpFromAddress,
		auth: smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost),
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
		send: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		log.Printf("[email][smtp] send failed to=%v err=%v", to, err)
		return fmt.Errorf("smtp error: %w", err)
	}
	log.Printf("[email][smtp] sent to=%v subject=%q", to, subject)
	return nil
}

// LoggingSender logs messages instead of sending them.
type LoggingSender struct {
	From string
}

func (s *LoggingSender) Send(_ context.Context, to []string, subject string, rawMessage []byte) error {
	log.Printf("[email][logging] from=%s to=%v subject=%q\n%s", s.From, to, subject, rawMessage)
	return nil
}
