package handlers

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/randalmurphal/alertflow/pkg/alertflow/rule"
)

// SMTPConfig configures email delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailHandler sends alerts as plain-text email over SMTP.
type EmailHandler struct {
	cfg SMTPConfig

	// send is swappable for tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailHandler creates an email handler.
func NewEmailHandler(cfg SMTPConfig) *EmailHandler {
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	return &EmailHandler{
		cfg:  cfg,
		send: smtp.SendMail,
	}
}

// HandleAlert implements rule.Handler.
func (h *EmailHandler) HandleAlert(_ context.Context, alert *rule.Alert) error {
	if len(h.cfg.To) == 0 {
		return fmt.Errorf("no recipients configured")
	}

	var auth smtp.Auth
	if h.cfg.Username != "" {
		auth = smtp.PlainAuth("", h.cfg.Username, h.cfg.Password, h.cfg.Host)
	}

	msg := buildMessage(h.cfg.From, h.cfg.To, alert)
	addr := fmt.Sprintf("%s:%d", h.cfg.Host, h.cfg.Port)

	if err := h.send(addr, auth, h.cfg.From, h.cfg.To, msg); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, alert *rule.Alert) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: [%s] %s\r\n", strings.ToUpper(alert.Level.String()), alert.RuleName)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Rule: %s\r\n", alert.RuleName)
	fmt.Fprintf(&b, "Level: %s\r\n", alert.Level)
	fmt.Fprintf(&b, "Source: %s\r\n", alert.Source)
	fmt.Fprintf(&b, "Time: %s\r\n", alert.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Message: %s\r\n", alert.Message)
	fmt.Fprintf(&b, "Related events: %d\r\n", len(alert.Events))
	return []byte(b.String())
}
