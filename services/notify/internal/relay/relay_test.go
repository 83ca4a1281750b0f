package relay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 6, 30, 0, 0, time.UTC)

type fakeSender struct {
	configured bool
	messages   []string
	photos     []string
	captions   []string
	textErr    error
	photoErr   error
}

func (f *fakeSender) Configured() bool { return f.configured }

func (f *fakeSender) SendMessage(_ context.Context, html string) error {
	f.messages = append(f.messages, html)
	return f.textErr
}

func (f *fakeSender) SendPhoto(_ context.Context, photoURL, caption string) error {
	f.photos = append(f.photos, photoURL)
	f.captions = append(f.captions, caption)
	return f.photoErr
}

func TestNormalizeFlatAndLegacyShapesAgree(t *testing.T) {
	flat, err := Normalize([]byte(`{"name":"Ali","house_number":"12A"}`), fixedNow)
	require.NoError(t, err)
	legacy, err := Normalize([]byte(`{"record":{"users":{"name":"Ali","house_number":"12A"}}}`), fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "Ali", flat.Name)
	assert.Equal(t, "12A", flat.HouseNumber)
	assert.Equal(t, flat.Name, legacy.Name)
	assert.Equal(t, flat.HouseNumber, legacy.HouseNumber)
	assert.Equal(t, FormatMessage(flat, time.UTC), FormatMessage(legacy, time.UTC))
}

func TestNormalizePrecedence(t *testing.T) {
	body := []byte(`{
		"name": "",
		"record": {
			"name": "From Record",
			"entry_type": "forced_by_guard",
			"notes": "gate left open",
			"users": {"name": "From Users", "house_number": 7, "user_type": "vendor"}
		},
		"house_number": "",
		"selfie_url": "https://cdn.test/a.jpg"
	}`)

	e, err := Normalize(body, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "From Record", e.Name)
	assert.Equal(t, "7", e.HouseNumber)
	assert.Equal(t, "vendor", e.Category)
	assert.True(t, e.Forced())
	assert.Equal(t, "gate left open", e.Notes)
	assert.Equal(t, "https://cdn.test/a.jpg", e.PhotoURL)
	assert.Equal(t, []string{"flat", "record", "record.users"}, Shapes(body))
}

func TestNormalizeEmptyPayloadUsesFallbacks(t *testing.T) {
	e, err := Normalize([]byte(`{}`), fixedNow)
	require.NoError(t, err)

	assert.Equal(t, FallbackName, e.Name)
	assert.Equal(t, FallbackHouse, e.HouseNumber)
	assert.Equal(t, FallbackCategory, e.Category)
	assert.Equal(t, FallbackEntryType, e.EntryType)
	assert.Equal(t, fixedNow, e.Timestamp)
	assert.Empty(t, e.PhotoURL)
}

func TestNormalizeToleratesOddValues(t *testing.T) {
	e, err := Normalize([]byte(`{"name":null,"house_number":true,"record":"oops","timestamp":"not a time","notes":{"x":1}}`), fixedNow)
	require.NoError(t, err)

	assert.Equal(t, FallbackName, e.Name)
	assert.Equal(t, "true", e.HouseNumber)
	assert.Equal(t, fixedNow, e.Timestamp)
	assert.Empty(t, e.Notes)
}

func TestNormalizeTimestamps(t *testing.T) {
	tests := map[string]string{
		"rfc3339":  `{"timestamp":"2025-03-14T06:30:00Z"}`,
		"postgres": `{"record":{"timestamp":"2025-03-14 06:30:00.000000+00"}}`,
		"millis":   `{"timestamp":1741933800000}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			e, err := Normalize([]byte(body), time.Time{})
			require.NoError(t, err)
			assert.True(t, fixedNow.Equal(e.Timestamp), e.Timestamp)
		})
	}
}

func TestNormalizeRejectsNonObjects(t *testing.T) {
	for _, body := range []string{``, `[]`, `"text"`, `{`} {
		_, err := Normalize([]byte(body), fixedNow)
		assert.ErrorIs(t, err, ErrInvalidPayload, body)
	}
}

func TestFormatMessage(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kuala_Lumpur")
	require.NoError(t, err)

	msg := FormatMessage(Event{
		Name: "Ali <Boss>", HouseNumber: "12A", Category: "resident_unpaid",
		EntryType: "normal", Timestamp: fixedNow, Notes: "Tel & plate",
	}, loc)

	assert.Contains(t, msg, "New Entry Detected")
	assert.Contains(t, msg, "<b>Name:</b> Ali &lt;Boss&gt;")
	assert.Contains(t, msg, "<b>Category:</b> Resident Unpaid")
	assert.Contains(t, msg, "Normal Entry")
	assert.Contains(t, msg, "14 Mar 2025, 02:30 PM")
	assert.Contains(t, msg, "<b>Notes:</b> Tel &amp; plate")

	forced := FormatMessage(Event{Name: "X", HouseNumber: "-", Category: "-", EntryType: "forced_by_guard", Timestamp: fixedNow}, loc)
	assert.Contains(t, forced, "Forced Entry")
	assert.NotContains(t, forced, "Notes")
}

func TestFormatMessageCapitalizesMultibyteCategory(t *testing.T) {
	e, err := Normalize([]byte(`{"name":"Zoé","user_type":"état_résident"}`), fixedNow)
	require.NoError(t, err)

	msg := FormatMessage(e, time.UTC)
	assert.True(t, utf8.ValidString(msg))
	assert.Contains(t, msg, "<b>Category:</b> État Résident")
}

func TestFormatMessageClipsLongFieldsBeforeEscaping(t *testing.T) {
	e := Event{
		Name:        strings.Repeat("é<", 1000),
		HouseNumber: strings.Repeat("9", 500),
		Category:    "vendor",
		EntryType:   "normal",
		Timestamp:   fixedNow,
		Notes:       strings.Repeat("&", 5000),
	}

	msg := FormatMessage(e, time.UTC)
	assert.True(t, utf8.ValidString(msg))
	assert.LessOrEqual(t, utf8.RuneCountInString(msg), 4096)
	assert.True(t, strings.HasSuffix(msg, "&amp;…"), msg[len(msg)-20:])
	assert.NotContains(t, msg, "&lt…")

	caption := PhotoCaption(e)
	assert.True(t, utf8.ValidString(caption))
	assert.LessOrEqual(t, utf8.RuneCountInString(caption), 1024)
	assert.True(t, strings.HasSuffix(caption, "&lt;…"))
}

func TestDeliverEmptyPayload(t *testing.T) {
	sender := &fakeSender{configured: true}
	e, err := Normalize([]byte(`{}`), fixedNow)
	require.NoError(t, err)

	res, err := New(sender, time.UTC).Deliver(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.PhotoDelivered)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0], "Unknown Visitor")
	assert.Contains(t, sender.messages[0], "<b>House:</b> -")
	assert.Empty(t, sender.photos)
}

func TestDeliverPhotoFailureStillSucceeds(t *testing.T) {
	sender := &fakeSender{configured: true, photoErr: errors.New("connection reset")}

	res, err := New(sender, time.UTC).Deliver(context.Background(), Event{Name: "Ali", PhotoURL: "https://cdn.test/a.jpg", Timestamp: fixedNow})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.PhotoDelivered)
	assert.Equal(t, []string{"Entry photo for Ali"}, sender.captions)
}

func TestDeliverPhotoSuccess(t *testing.T) {
	sender := &fakeSender{configured: true}

	res, err := New(sender, time.UTC).Deliver(context.Background(), Event{Name: "Ali", PhotoURL: "https://cdn.test/a.jpg", Timestamp: fixedNow})
	require.NoError(t, err)
	assert.True(t, res.PhotoDelivered)
	assert.Equal(t, []string{"https://cdn.test/a.jpg"}, sender.photos)
}

func TestDeliverTextFailureFails(t *testing.T) {
	sender := &fakeSender{configured: true, textErr: errors.New("bad gateway")}

	_, err := New(sender, time.UTC).Deliver(context.Background(), Event{Name: "Ali", PhotoURL: "https://cdn.test/a.jpg"})
	require.Error(t, err)
	assert.Empty(t, sender.photos)
}

func TestDeliverUnconfigured(t *testing.T) {
	_, err := New(&fakeSender{}, time.UTC).Deliver(context.Background(), Event{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
