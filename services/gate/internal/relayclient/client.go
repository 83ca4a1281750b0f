// Package relayclient posts entry notifications to the notify service.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/logger"
)

// Payload is the flat shape the relay accepts.
type Payload struct {
	Name        string    `json:"name"`
	HouseNumber string    `json:"house_number"`
	UserType    string    `json:"user_type"`
	EntryType   string    `json:"entry_type"`
	Timestamp   time.Time `json:"timestamp"`
	SelfieURL   string    `json:"selfie_url,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

type Result struct {
	Success        bool `json:"success"`
	PhotoDelivered bool `json:"photo_delivered"`
}

type Client struct {
	http   *http.Client
	url    string
	apiKey string
}

func New(cfg config.RelayConfig) *Client {
	return &Client{
		http:   &http.Client{},
		url:    cfg.NotifyURL,
		apiKey: cfg.APIKey,
	}
}

// Notify posts p and returns an error for transport failures and non-2xx
// answers. The caller bounds the call with its context.
func (c *Client) Notify(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if id, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay answered %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err == nil && !res.PhotoDelivered && p.SelfieURL != "" {
		logger.WarnContext(ctx, "Relay delivered text without photo", "name", p.Name)
	}
	return nil
}
