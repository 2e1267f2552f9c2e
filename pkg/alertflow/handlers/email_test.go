package handlers

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailHandlerSends(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)

	h := NewEmailHandler(SMTPConfig{
		Host: "mail.example.com",
		Port: 587,
		From: "alerts@example.com",
		To:   []string{"ops@example.com", "oncall@example.com"},
	})
	h.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, h.HandleAlert(context.Background(), testAlert()))

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "alerts@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com", "oncall@example.com"}, gotTo)

	body := string(gotMsg)
	assert.Contains(t, body, "Subject: [CRITICAL] high-errors")
	assert.Contains(t, body, "To: ops@example.com, oncall@example.com")
	assert.Contains(t, body, "Rule: high-errors")
	assert.Contains(t, body, "Source: node-1")
	assert.Contains(t, body, "Message: error rate exceeded")
}

func TestEmailHandlerDefaultPort(t *testing.T) {
	var gotAddr string
	h := NewEmailHandler(SMTPConfig{
		Host: "mail.example.com",
		From: "alerts@example.com",
		To:   []string{"ops@example.com"},
	})
	h.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		return nil
	}

	require.NoError(t, h.HandleAlert(context.Background(), testAlert()))
	assert.Equal(t, "mail.example.com:25", gotAddr)
}

func TestEmailHandlerNoRecipients(t *testing.T) {
	h := NewEmailHandler(SMTPConfig{Host: "mail.example.com", From: "a@b"})
	require.Error(t, h.HandleAlert(context.Background(), testAlert()))
}

func TestEmailHandlerSendFailure(t *testing.T) {
	h := NewEmailHandler(SMTPConfig{
		Host: "mail.example.com",
		From: "alerts@example.com",
		To:   []string{"ops@example.com"},
	})
	h.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}

	err := h.HandleAlert(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send alert email")
}
