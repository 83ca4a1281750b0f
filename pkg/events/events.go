package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("smartgate"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

// Connect returns a NATS bus, or a no-op bus when url is empty.
func Connect(url string) (EventBus, error) {
	if url == "" {
		logger.Info("NATS_URL not set, events disabled")
		return NoopBus{}, nil
	}
	return NewNATSEventBus(url)
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

func toMessage(msg *nats.Msg) *Message {
	now := time.Now()
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: now,
		ID:        fmt.Sprintf("%d", now.UnixNano()),
	}
}

// NoopBus drops published events and never delivers any.
type NoopBus struct{}

func (NoopBus) Publish(context.Context, string, interface{}) error { return nil }
func (NoopBus) Subscribe(string, func(*Message)) error             { return nil }
func (NoopBus) Close() error                                       { return nil }

const (
	EntryCreated = "entry.created"
	EntryDeleted = "entry.deleted"
)

type EntryEvent struct {
	EntryID     int64     `json:"entry_id"`
	EntryType   string    `json:"entry_type"`
	UserType    string    `json:"user_type"`
	Name        string    `json:"name"`
	HouseNumber string    `json:"house_number"`
	CreatedAt   time.Time `json:"created_at"`
}

func DecodeEntryEvent(msg *Message) (EntryEvent, error) {
	var ev EntryEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return ev, fmt.Errorf("decode %s: %w", msg.Subject, err)
	}
	return ev, nil
}
