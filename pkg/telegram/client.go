// Package telegram is a small Bot API client covering the two calls the
// gate needs: sendMessage and sendPhoto.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	methodSendMessage = "sendMessage"
	methodSendPhoto   = "sendPhoto"

	// Telegram rejects longer texts and captions.
	maxMessageLength = 4096
	maxCaptionLength = 1024
)

var ErrNotConfigured = errors.New("telegram bot token or chat id missing")

// APIError is a non-ok answer from the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Permanent reports whether retrying the same request cannot succeed.
func (e *APIError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type sendPhotoRequest struct {
	ChatID    string `json:"chat_id"`
	Photo     string `json:"photo"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	chatID   string
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewClient(cfg config.TelegramConfig) *Client {
	c := &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.APIBaseURL, "/"),
		token:    cfg.BotToken,
		chatID:   cfg.ChatID,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
	for _, m := range []string{methodSendMessage, methodSendPhoto} {
		c.breakers[m] = newBreaker(m)
	}
	return c
}

// Each method gets its own breaker so a failing photo host cannot block text.
func newBreaker(method string) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "telegram." + method,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Permanent()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Configured reports whether both the bot token and chat id are set.
func (c *Client) Configured() bool {
	return c.token != "" && c.chatID != ""
}

// SendMessage posts an HTML formatted text to the configured chat.
func (c *Client) SendMessage(ctx context.Context, html string) error {
	err := c.call(ctx, methodSendMessage, sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  truncate(html, maxMessageLength),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	metrics.RecordRelayDelivery("text", err)
	return err
}

// SendPhoto asks Telegram to fetch photoURL and post it with a caption.
func (c *Client) SendPhoto(ctx context.Context, photoURL, caption string) error {
	err := c.call(ctx, methodSendPhoto, sendPhotoRequest{
		ChatID:    c.chatID,
		Photo:     photoURL,
		Caption:   truncate(caption, maxCaptionLength),
		ParseMode: "HTML",
	})
	metrics.RecordRelayDelivery("photo", err)
	return err
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	_, err := c.breakers[method].Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, method, payload)
	})
	return err
}

func (c *Client) post(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return &APIError{Method: method, Code: resp.StatusCode, Description: "unparseable response"}
	}
	if apiResp.OK {
		return nil
	}

	apiErr := &APIError{Method: method, Code: apiResp.ErrorCode, Description: apiResp.Description}
	if apiErr.Code == 0 {
		apiErr.Code = resp.StatusCode
	}
	if apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
		apiErr.RetryAfter = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
	}
	return apiErr
}

// EscapeHTML escapes the characters Telegram's HTML parse mode reserves.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// truncate cuts s to max runes. A cut landing inside an entity or tag backs
// off to before it so Telegram can still parse the HTML.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := string(r[:max-1])
	if i := strings.LastIndexByte(cut, '&'); i >= 0 && !strings.Contains(cut[i:], ";") {
		cut = cut[:i]
	}
	if i := strings.LastIndexByte(cut, '<'); i >= 0 && !strings.Contains(cut[i:], ">") {
		cut = cut[:i]
	}
	return cut + "…"
}
