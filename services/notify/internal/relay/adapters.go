package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPayload = errors.New("payload is not a JSON object")

// fields is one JSON object with its values left raw so each can be read
// leniently.
type fields map[string]json.RawMessage

// adapter maps one historical payload shape onto Event. applies reports
// whether the shape is present in the payload.
type adapter struct {
	name    string
	applies func(root fields) bool
	extract func(root fields) Event
}

// Shapes in precedence order: the first adapter to supply a field wins.
var adapters = []adapter{
	{name: "flat", applies: func(fields) bool { return true }, extract: extractFlat},
	{name: "record", applies: hasRecord, extract: extractRecord},
	{name: "record.users", applies: hasRecordUsers, extract: extractRecordUsers},
}

// Normalize reads any known payload shape into an Event with fallbacks
// applied. Only a body that is not a JSON object is an error.
func Normalize(body []byte, now time.Time) (Event, error) {
	root, ok := object(body)
	if !ok {
		return Event{}, ErrInvalidPayload
	}

	var event Event
	for _, a := range adapters {
		if a.applies(root) {
			event.merge(a.extract(root))
		}
	}
	event.applyFallbacks(now)
	return event, nil
}

// Shapes reports which adapters matched, for logging.
func Shapes(body []byte) []string {
	root, ok := object(body)
	if !ok {
		return nil
	}
	var names []string
	for _, a := range adapters {
		if a.applies(root) {
			names = append(names, a.name)
		}
	}
	return names
}

func extractFlat(root fields) Event {
	return entryFields(root)
}

func extractRecord(root fields) Event {
	record, _ := object(root["record"])
	return entryFields(record)
}

func extractRecordUsers(root fields) Event {
	record, _ := object(root["record"])
	users, _ := object(record["users"])
	return Event{
		Name:        users.str("name", "full_name"),
		HouseNumber: users.str("house_number"),
		Category:    users.str("user_type", "category"),
	}
}

func entryFields(f fields) Event {
	return Event{
		Name:        f.str("name"),
		HouseNumber: f.str("house_number"),
		Category:    f.str("user_type", "category"),
		EntryType:   f.str("entry_type"),
		Timestamp:   f.timestamp("timestamp", "created_at"),
		PhotoURL:    f.str("selfie_url", "photo_url"),
		Notes:       f.str("notes"),
	}
}

func hasRecord(root fields) bool {
	_, ok := object(root["record"])
	return ok
}

func hasRecordUsers(root fields) bool {
	record, ok := object(root["record"])
	if !ok {
		return false
	}
	_, ok = object(record["users"])
	return ok
}

func object(raw json.RawMessage) (fields, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	return f, true
}

// str returns the first key holding a non-blank scalar. Numbers and
// booleans are rendered as text, so "house_number": 12 reads as "12".
func (f fields) str(keys ...string) string {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok {
			continue
		}
		if s := scalar(raw); s != "" {
			return s
		}
	}
	return ""
}

func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return ""
		}
		return strconv.FormatBool(b)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	default:
		return ""
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
}

// timestamp parses the first key holding a recognisable timestamp. Unix
// seconds and milliseconds are accepted too.
func (f fields) timestamp(keys ...string) time.Time {
	for _, k := range keys {
		s := f.str(k)
		if s == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			if n > 1e12 {
				return time.UnixMilli(n)
			}
			return time.Unix(n, 0)
		}
	}
	return time.Time{}
}
