package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/narrinai/companion/internal/metrics"
)

// Message is one outgoing transactional email.
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	Markdown string // body in markdown; rendered to HTML before send
	Template string // template label for metrics
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

type httpSender struct {
	config  *Config
	client  *http.Client
	metrics *metrics.Metrics
}

// NewSender creates a SendGrid-backed Sender. metrics may be nil.
func NewSender(config *Config, m *metrics.Metrics) (Sender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &httpSender{
		config:  config,
		client:  &http.Client{Timeout: 15 * time.Second},
		metrics: m,
	}, nil
}

// sendGrid v3 mail/send request body.
type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *httpSender) Send(ctx context.Context, msg *Message) error {
	if msg.ToEmail == "" {
		return errors.New("recipient email is required")
	}

	html, err := RenderMarkdown(msg.Markdown)
	if err != nil {
		s.metrics.ObserveEmail(msg.Template, "render_error")
		return errors.Wrap(err, "failed to render email body")
	}

	body := sendRequest{
		Personalizations: []personalization{{To: []address{{Email: msg.ToEmail, Name: msg.ToName}}}},
		From:             address{Email: s.config.FromEmail, Name: s.config.FromName},
		Subject:          msg.Subject,
		Content:          []content{{Type: "text/html", Value: html}},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/mail/send", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.ObserveEmail(msg.Template, "error")
		return errors.Wrap(err, "mail send request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.metrics.ObserveEmail(msg.Template, "error")
		return errors.Errorf("mail provider returned status %d: %s", resp.StatusCode, string(detail))
	}
	s.metrics.ObserveEmail(msg.Template, "ok")
	return nil
}
