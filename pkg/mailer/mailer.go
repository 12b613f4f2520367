package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Mailer sends transactional email. Implementations must be best-effort safe:
// callers treat failures as non-fatal and only log them.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// NoopMailer is used when no email provider is configured.
type NoopMailer struct{}

func (NoopMailer) Send(ctx context.Context, to, subject, html string) error {
	log.Printf("[mailer] email disabled, skipping %q to %s", subject, to)
	return nil
}

type resendMailer struct {
	apiKey string
	from   string
	client *http.Client
}

// NewResendMailer builds a Mailer backed by the Resend REST API. Returns a
// NoopMailer when RESEND_API_KEY is not set so local development works without
// an email account.
func NewResendMailer() Mailer {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		log.Println("WARNING: RESEND_API_KEY is not set, emails are disabled")
		return NoopMailer{}
	}

	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = "Skippy <hello@skippy.dog>"
	}

	return &resendMailer{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *resendMailer) Send(ctx context.Context, to, subject, html string) error {
	payload, err := json.Marshal(map[string]any{
		"from":    m.from,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.resend.com/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call resend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
