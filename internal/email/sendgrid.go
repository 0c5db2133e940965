package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/pricesheets-backend/pkg/config"
)

const sendPath = "/v3/mail/send"

type sendgridClient struct {
	apiKey     string
	fromAddr   string
	fromName   string
	endpoint   string
	httpClient *http.Client
}

// NewSendgridSender returns a Sender backed by the SendGrid v3 mail API.
func NewSendgridSender(cfg config.SendgridConfig) (Sender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key required")
	}
	if cfg.DefaultFrom == "" {
		return nil, errors.New("sendgrid from address required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.sendgrid.com"
	}
	return &sendgridClient{
		apiKey:     cfg.APIKey,
		fromAddr:   cfg.DefaultFrom,
		fromName:   cfg.FromName,
		endpoint:   base + sendPath,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

type sgErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

func (c *sendgridClient) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	body := sgRequest{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To, Name: msg.ToName}}}},
		From:             sgAddress{Email: c.fromAddr, Name: c.fromName},
		Subject:          msg.Subject,
	}
	// SendGrid requires text/plain before text/html.
	if msg.Text != "" {
		body.Content = append(body.Content, sgContent{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		body.Content = append(body.Content, sgContent{Type: "text/html", Value: msg.HTML})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var parsed sgErrorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Errors) > 0 {
		return fmt.Errorf("email: sendgrid status %d: %s", resp.StatusCode, parsed.Errors[0].Message)
	}
	return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(raw))
}
