package mailer

import (
	"context"

	"github.com/goliatone/go-errors"
	mail "github.com/wneessen/go-mail"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// OpsMirror receives a best-effort copy of every message when set.
	OpsMirror string
	// Suppression lists addresses that bounced or complained; they are
	// dropped before send.
	Suppression []string
}

// SMTP is the go-mail backed Mailer.
type SMTP struct {
	config Config
	logger Logger
}

func NewSMTP(cfg Config, logger Logger) (*SMTP, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp mailer requires host and from address", errors.CategoryOperation)
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = noopLogger{}
	}

	return &SMTP{config: cfg, logger: logger}, nil
}

// Send delivers the message to every non-suppressed recipient and
// mirrors it to the ops address. A mirror failure is logged, never
// returned.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	recipients := prepareRecipients(msg.Recipients, s.config.Suppression)
	if len(recipients) == 0 {
		s.logger.Warn("mail message had no deliverable recipients subject=%q", msg.Subject)
		return nil
	}

	if err := s.deliver(ctx, msg, recipients); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "smtp delivery failed").
			WithMetadata(map[string]any{"subject": msg.Subject, "recipients": len(recipients)})
	}

	if s.config.OpsMirror != "" {
		if err := s.deliver(ctx, msg, []string{s.config.OpsMirror}); err != nil {
			s.logger.Error("ops mirror delivery failed subject=%q error=%v", msg.Subject, err)
		}
	}

	return nil
}

func (s *SMTP) deliver(ctx context.Context, msg Message, to []string) error {
	m := mail.NewMsg()
	if err := m.From(s.config.From); err != nil {
		return err
	}
	if err := m.To(to...); err != nil {
		return err
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	opts := []mail.Option{
		mail.WithPort(s.config.Port),
	}
	if s.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}

	client, err := mail.NewClient(s.config.Host, opts...)
	if err != nil {
		return err
	}

	return client.DialAndSendWithContext(ctx, m)
}
