// Package notify sends user-facing notifications such as the welcome email.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Notifier delivers notifications. Callers treat failures as non-fatal.
type Notifier interface {
	SendWelcome(ctx context.Context, email, firstName string) error
}

// SMTPConfig holds outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppName  string
}

// SMTPNotifier sends mail through an SMTP relay.
type SMTPNotifier struct {
	cfg SMTPConfig
}

// NewSMTPNotifier creates a notifier; no connection is made until a send.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.AppName == "" {
		cfg.AppName = "Gipity"
	}
	return &SMTPNotifier{cfg: cfg}
}

// SendWelcome emails a greeting to a newly confirmed user.
func (n *SMTPNotifier) SendWelcome(ctx context.Context, email, firstName string) error {
	msg, err := n.welcomeMessage(email, firstName)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) welcomeMessage(email, firstName string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(fmt.Sprintf("Welcome to %s", n.cfg.AppName))

	greeting := "Hi"
	if firstName != "" {
		greeting = "Hi " + firstName
	}
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"%s,\n\nYour email address is confirmed and your %s account is ready.\n\nHappy note-taking!\n",
		greeting, n.cfg.AppName,
	))
	return msg, nil
}

// LogNotifier records notifications instead of sending them. Used when SMTP
// is not configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// SendWelcome logs the notification.
func (n *LogNotifier) SendWelcome(_ context.Context, email, _ string) error {
	n.log.Info().Str("email", email).Msg("smtp not configured, welcome email skipped")
	return nil
}
