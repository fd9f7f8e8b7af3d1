package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"donation-service/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.EmailSender = (*Sender)(nil)

// Sender delivers templated mail through a transactional-mail HTTP API.
// Templates are rendered locally; the API receives the finished HTML body.
type Sender struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
	tmpl   *template.Template
}

func NewSender(apiURL, apiKey, from string) (*Sender, error) {
	tmpl, err := template.New("email").Parse(templates)
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Sender{
		apiURL: apiURL,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{},
		tmpl:   tmpl,
	}, nil
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (s *Sender) SendTemplated(ctx context.Context, to, subject, templateName string, data any) error {
	var body bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("render template %s: %w", templateName, err)
	}

	payload, err := json.Marshal(sendRequest{From: s.from, To: to, Subject: subject, HTML: body.String()})
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail api status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
