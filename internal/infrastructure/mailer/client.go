// Package mailer delivers plain-text mail through an HTTP mail API.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client posts messages to a Mailgun-style /messages endpoint with the API
// key as basic-auth password.
type Client struct {
	httpClient *http.Client
	apiBase    string
	apiKey     string
	sender     string
}

func NewClient(apiBase, apiKey, sender string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    apiBase,
		apiKey:     apiKey,
		sender:     sender,
	}
}

func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if c.apiBase == "" {
		return errors.New("mailer: api base not configured")
	}

	form := url.Values{}
	form.Set("from", c.sender)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("text", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/messages", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailer: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
