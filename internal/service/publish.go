package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
	"github.com/kiwari-pos/order-engine/internal/events"
	"go.uber.org/zap"
)

// publishOrder notifies subscribers of a committed order change, followed by
// a table event when the change touched a table. Delivery failures are logged
// and never fail the operation.
func (s *OrderService) publishOrder(ctx context.Context, eventType string, r *OrderResult) {
	if r == nil {
		return
	}
	id := r.Order.ID
	e := events.Event{
		Type:       eventType,
		StoreID:    r.Order.StoreID,
		OrderID:    &id,
		Status:     r.Order.Status,
		OccurredAt: time.Now().UTC(),
	}
	if r.Order.TableNumber.Valid {
		n := r.Order.TableNumber.Int32
		e.TableNumber = &n
	}
	e.Payload = s.marshal(r.Order)
	s.publish(ctx, e)

	if r.Table != nil {
		s.publishTable(ctx, *r.Table)
	}
}

func (s *OrderService) publishTable(ctx context.Context, t database.DiningTable) {
	n := t.Number
	e := events.Event{
		Type:        enum.EventTableChanged,
		StoreID:     t.StoreID,
		TableNumber: &n,
		Status:      t.Status,
		Payload:     s.marshal(t),
		OccurredAt:  time.Now().UTC(),
	}
	if t.CurrentOrderID.Valid {
		id := uuid.UUID(t.CurrentOrderID.Bytes)
		e.OrderID = &id
	}
	s.publish(ctx, e)
}

func (s *OrderService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish event failed",
			zap.String("type", e.Type),
			zap.String("store_id", e.StoreID.String()),
			zap.Error(err),
		)
	}
}

func (s *OrderService) marshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("marshal event payload", zap.Error(err))
		return nil
	}
	return data
}
