// Package mailer provides the outbound email transport used by the
// notification delivery worker. The SMTP implementation wraps
// github.com/wneessen/go-mail; a disabled transport stands in when no SMTP
// host is configured, so environments without a mail relay still drain the
// notification queue.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/mwhitlock/tasktrack-api/internal/config"
)

// Message is one outbound email. A nil To falls back to the configured
// default recipient; with neither present the send fails.
type Message struct {
	To      *string
	Subject string
	Body    string
}

// Transport delivers a single message. Implementations must be safe for
// concurrent use.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// NewTransport builds the transport matching the mail configuration.
// An empty host selects the disabled transport.
func NewTransport(cfg config.MailConfig, logger *slog.Logger) (Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Host == "" {
		logger.Info("mail transport disabled, notifications will be logged only")
		return &disabledTransport{logger: logger.With(slog.String("component", "mailer"))}, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &smtpTransport{
		client:    client,
		from:      cfg.From,
		defaultTo: cfg.DefaultTo,
		logger:    logger.With(slog.String("component", "mailer")),
	}, nil
}

type smtpTransport struct {
	client    *mail.Client
	from      string
	defaultTo string
	logger    *slog.Logger
}

var _ Transport = (*smtpTransport)(nil)

func (t *smtpTransport) Send(ctx context.Context, msg Message) error {
	to := t.defaultTo
	if msg.To != nil && *msg.To != "" {
		to = *msg.To
	}
	if to == "" {
		return fmt.Errorf("no recipient for message %q", msg.Subject)
	}

	m := mail.NewMsg()
	if err := m.From(t.from); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", t.from, err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", to, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	t.logger.Debug("mail sent",
		slog.String("to", to),
		slog.String("subject", msg.Subject))
	return nil
}

// disabledTransport treats every send as delivered. The notification log
// still records the full subject and body, so nothing is lost beyond the
// actual SMTP hop.
type disabledTransport struct {
	logger *slog.Logger
}

var _ Transport = (*disabledTransport)(nil)

func (t *disabledTransport) Send(_ context.Context, msg Message) error {
	to := "(unset)"
	if msg.To != nil && *msg.To != "" {
		to = *msg.To
	}
	t.logger.Info("mail suppressed, transport disabled",
		slog.String("to", to),
		slog.String("subject", msg.Subject))
	return nil
}
