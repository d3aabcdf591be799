// Package stripe talks to the card processor's HTTP API.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIBase is the production API endpoint.
const DefaultAPIBase = "https://api.stripe.com"

const maxResponseBytes = 1 << 20

type Client struct {
	httpClient *http.Client
	apiBase    string
	secretKey  string
}

func NewClient(apiBase, secretKey string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    apiBase,
		secretKey:  secretKey,
	}
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent requests a card payment intent for the given amount in minor
// units and returns the client secret the storefront hands to the browser.
// Gateway rejections are returned as-is; there is no local retry.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	form.Set("payment_method_types[]", "card")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("stripe: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stripe: create intent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("stripe: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("stripe: %s", apiErr.Error.Message)
		}
		return "", fmt.Errorf("stripe: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var intent intentResponse
	if err := json.Unmarshal(body, &intent); err != nil {
		return "", fmt.Errorf("stripe: decode response: %w", err)
	}
	if intent.ClientSecret == "" {
		return "", fmt.Errorf("stripe: response missing client secret")
	}
	return intent.ClientSecret, nil
}
