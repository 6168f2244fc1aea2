// Package events carries committed order and table changes to live
// subscribers: staff screens over WebSocket and, optionally, NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is a change notification, published only after the transaction that
// produced it has committed.
type Event struct {
	Type        string          `json:"type"`
	StoreID     uuid.UUID       `json:"store_id"`
	OrderID     *uuid.UUID      `json:"order_id,omitempty"`
	TableNumber *int32          `json:"table_number,omitempty"`
	Status      string          `json:"status,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
