// Package email sends operator notifications through Resend.
//
// Bodies are rendered from HTML templates embedded in the binary.
package email

import (
	"bytes"
	"context"
	"fmt"

	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// DefaultFrom is used when integration.email_from is not set.
const DefaultFrom = "Instrument Relay <onboarding@resend.dev>"

// sender is the part of resend.EmailsSvc the client uses.
type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Client wraps the Resend client and a logger.
type Client struct {
	emails sender
	from   string
	logger *zerolog.Logger
}

// NewClient creates an email Client from the integration config.
func NewClient(cfg *config.Config, logger *zerolog.Logger) *Client {
	from := cfg.Integration.EmailFrom
	if from == "" {
		from = DefaultFrom
	}
	return &Client{
		emails: resend.NewClient(cfg.Integration.ResendAPIKey).Emails,
		from:   from,
		logger: logger,
	}
}

// Render executes tmpl with data.
func Render(tmpl Template, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl.file(), data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", tmpl)
	}
	return body.String(), nil
}

// SendEmail renders tmpl with data and sends it to to.
func (c *Client) SendEmail(ctx context.Context, to, subject string, tmpl Template, data any) error {
	html, err := Render(tmpl, data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	sent, err := c.emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Debug().
		Str("template", string(tmpl)).
		Str("to", to).
		Str("email_id", sent.Id).
		Msg("email sent")
	return nil
}
