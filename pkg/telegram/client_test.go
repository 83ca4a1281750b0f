package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.TelegramConfig{
		BotToken:   "123:abc",
		ChatID:     "-100",
		APIBaseURL: srv.URL,
		Timeout:    2 * time.Second,
	})
}

func TestSendMessage(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	})

	require.NoError(t, c.SendMessage(context.Background(), "<b>hi</b>"))
	assert.Equal(t, "-100", got["chat_id"])
	assert.Equal(t, "<b>hi</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendPhotoAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sendPhoto"))
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`))
	})

	err := c.SendPhoto(context.Background(), "https://cdn/x.jpg", "Entry photo for Ali")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.Code)
	assert.Equal(t, 3*time.Second, apiErr.RetryAfter)
	assert.False(t, apiErr.Permanent())
}

func TestNotConfigured(t *testing.T) {
	c := NewClient(config.TelegramConfig{APIBaseURL: "http://unused"})
	assert.False(t, c.Configured())
	assert.ErrorIs(t, c.SendMessage(context.Background(), "x"), ErrNotConfigured)
}

func TestBadRequestsDoNotTripBreaker(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: wrong file identifier"}`))
	})

	for i := 0; i < 8; i++ {
		_ = c.SendPhoto(context.Background(), "nope", "")
	}
	assert.Equal(t, int32(8), atomic.LoadInt32(&hits))
}

func TestServerErrorsTripOnlyThatMethod(t *testing.T) {
	var photoHits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendPhoto") {
			atomic.AddInt32(&photoHits, 1)
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"ok":false,"error_code":502,"description":"Bad Gateway"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})

	for i := 0; i < 7; i++ {
		_ = c.SendPhoto(context.Background(), "https://cdn/x.jpg", "")
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&photoHits))
	assert.NoError(t, c.SendMessage(context.Background(), "still works"))
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", EscapeHTML("a <b> & c"))
}

func TestTruncateKeepsEntitiesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "aaaaaaaaaa…", truncate("aaaaaaaaaa&amp;", 13))
	assert.Equal(t, "aaaa…", truncate("aaaa<b>bold</b>", 7))
	assert.Equal(t, "ééé…", truncate("éééééé", 4))
}
