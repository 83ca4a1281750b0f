package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/telegram"
	"github.com/diagnosis/smartgate/services/notify/internal/relay"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTelegram records Bot API calls and answers the methods in fail with
// that status code.
type fakeTelegram struct {
	mu    sync.Mutex
	calls map[string][]map[string]any
	fail  map[string]int
}

func newFakeTelegram(t *testing.T, fail map[string]int) (*fakeTelegram, *httptest.Server) {
	t.Helper()
	f := &fakeTelegram{calls: map[string][]map[string]any{}, fail: fail}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)

		f.mu.Lock()
		f.calls[method] = append(f.calls[method], payload)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if code, ok := f.fail[method]; ok {
			w.WriteHeader(code)
			_, _ = fmt.Fprintf(w, `{"ok":false,"error_code":%d,"description":"simulated failure"}`, code)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls["sendMessage"] {
		out = append(out, c["text"].(string))
	}
	return out
}

func newRouter(cfg config.TelegramConfig) http.Handler {
	h := New(relay.New(telegram.NewClient(cfg), time.UTC))
	h.now = func() time.Time { return time.Date(2025, 3, 14, 6, 30, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Use(AllowAnyOrigin)
	r.Options("/notify-telegram", Preflight)
	r.Post("/notify-telegram", h.NotifyTelegram)
	return r
}

func configured(srv *httptest.Server) config.TelegramConfig {
	return config.TelegramConfig{BotToken: "123:abc", ChatID: "-100", APIBaseURL: srv.URL, Timeout: 2 * time.Second}
}

func post(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/notify-telegram", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestNotifyFlatPayload(t *testing.T) {
	tg, srv := newFakeTelegram(t, nil)
	router := newRouter(configured(srv))

	rec := post(t, router, `{"name":"Ali","house_number":"12A","user_type":"visitor","selfie_url":"https://cdn.test/a.jpg"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res relay.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.True(t, res.PhotoDelivered)

	texts := tg.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Ali")
	assert.Contains(t, texts[0], "12A")
	require.Len(t, tg.calls["sendPhoto"], 1)
	assert.Equal(t, "Entry photo for Ali", tg.calls["sendPhoto"][0]["caption"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotifyEmptyPayload(t *testing.T) {
	tg, srv := newFakeTelegram(t, nil)
	router := newRouter(configured(srv))

	rec := post(t, router, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	texts := tg.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Unknown Visitor")
	assert.Contains(t, texts[0], "-")
	assert.Empty(t, tg.calls["sendPhoto"])
}

func TestNotifyPhotoFailureStillSucceeds(t *testing.T) {
	_, srv := newFakeTelegram(t, map[string]int{"sendPhoto": http.StatusBadRequest})
	router := newRouter(configured(srv))

	rec := post(t, router, `{"name":"Ali","selfie_url":"https://cdn.test/missing.jpg"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res relay.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.False(t, res.PhotoDelivered)
}

func TestNotifyTextFailureIsBadGateway(t *testing.T) {
	_, srv := newFakeTelegram(t, map[string]int{"sendMessage": http.StatusInternalServerError})
	router := newRouter(configured(srv))

	rec := post(t, router, `{"name":"Ali"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestNotifyMissingConfiguration(t *testing.T) {
	router := newRouter(config.TelegramConfig{APIBaseURL: "http://127.0.0.1:0"})

	rec := post(t, router, `{"name":"Ali"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Telegram configuration missing"}`, rec.Body.String())
}

func TestNotifyInvalidJSON(t *testing.T) {
	_, srv := newFakeTelegram(t, nil)
	router := newRouter(configured(srv))

	rec := post(t, router, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreflight(t *testing.T) {
	router := newRouter(config.TelegramConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/notify-telegram", nil)
	req.Header.Set("Origin", "https://gate.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "content-type")
}
