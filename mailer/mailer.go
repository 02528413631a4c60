// Package mailer sends transactional email. The SMTP implementation
// filters recipients through a suppression list and mirrors a copy to
// an operational address when one is configured.
package mailer

import (
	"context"
	"strings"
)

// Logger is implemented by the application logger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Message is one outbound email.
type Message struct {
	Subject    string
	HTML       string
	Recipients []string
}

// Mailer delivers messages. Implementations are best-effort from the
// caller's point of view; a failed send never unwinds business state.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Noop swallows every message. Used in tests and when mail is not
// configured.
type Noop struct {
	logger Logger
}

func NewNoop(logger Logger) *Noop {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Noop{logger: logger}
}

func (n *Noop) Send(ctx context.Context, msg Message) error {
	n.logger.Debug("mail disabled, dropping message subject=%q recipients=%d", msg.Subject, len(msg.Recipients))
	return nil
}

// prepareRecipients deduplicates case-insensitively and removes
// suppressed addresses. Order of first appearance is preserved.
func prepareRecipients(recipients, suppression []string) []string {
	suppressed := make(map[string]struct{}, len(suppression))
	for _, addr := range suppression {
		suppressed[strings.ToLower(strings.TrimSpace(addr))] = struct{}{}
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(recipients))
	for _, addr := range recipients {
		key := strings.ToLower(strings.TrimSpace(addr))
		if key == "" {
			continue
		}
		if _, ok := suppressed[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(addr))
	}

	return out
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Warn(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}
