// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

// Package mail delivers transactional email. SMTP is the production
// transport; Log substitutes for it in development so reset links land in
// the server log instead of a mailbox.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/samber/oops"
)

// SMTP sends HTML mail through a plain SMTP relay.
type SMTP struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTP creates an SMTP mailer. addr is "host:port"; auth may be nil for
// an open relay.
func NewSMTP(addr, from string, auth smtp.Auth) *SMTP {
	return &SMTP{addr: addr, from: from, auth: auth}
}

// Send delivers htmlBody to a single recipient.
func (m *SMTP) Send(_ context.Context, to, htmlBody string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	msg.WriteString("Subject: Reset your password\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("addr", m.addr).
			Wrap(err)
	}
	return nil
}

// Log writes messages to the logger instead of delivering them.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging mailer.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "mail")}
}

// Send logs the message.
func (m *Log) Send(_ context.Context, to, htmlBody string) error {
	m.logger.Info("outgoing mail", "to", to, "body", htmlBody)
	return nil
}
