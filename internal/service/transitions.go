package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
	"go.uber.org/zap"
)

// SetStatus moves an order forward. Setting Cancelled runs the merchant
// cancellation so stock is restored.
func (s *OrderService) SetStatus(ctx context.Context, storeID, orderID uuid.UUID, status string) (*OrderResult, error) {
	if !IsValidOrderStatus(status) {
		return nil, newDomainError(KindInvalidRequest, "invalid status %q", status)
	}
	if status == enum.OrderStatusCancelled {
		return s.CancelOrder(ctx, storeID, orderID, "")
	}

	var result *OrderResult
	var from string
	err := s.inTx(ctx, func(store OrderStore) error {
		order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: orderID, StoreID: storeID})
		if err != nil {
			return notFound(err, "order")
		}
		from = order.Status
		if err := checkTransition(order, status); err != nil {
			return err
		}
		st, err := store.GetStore(ctx, order.StoreID)
		if err != nil {
			return notFound(err, "store")
		}

		order, err = applyOrderStatus(ctx, store, order, dispatchTarget(st, order, status))
		if err != nil {
			return err
		}
		result, err = s.finishOrder(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("from", from),
		zap.String("to", result.Order.Status),
	)
	s.publishOrder(ctx, enum.EventOrderStatusChanged, result)
	return result, nil
}

// checkTransition rejects moves out of closed orders, backward moves and
// statuses that do not apply to the order's fulfillment mode.
func checkTransition(o database.Order, status string) error {
	if isClosed(o.Status) {
		return newDomainError(KindOrderClosed, "order is %s", strings.ToLower(o.Status))
	}
	if StatusRank(status) < StatusRank(o.Status) {
		return newDomainError(KindInvalidTransition, "cannot move order from %s back to %s", o.Status, status)
	}
	switch status {
	case enum.OrderStatusOutForDelivery:
		if o.IsPickup || isTableBound(o) {
			return newDomainError(KindInvalidTransition, "only delivery orders go out for delivery")
		}
	case enum.OrderStatusCompleted:
		if !o.IsPickup && !isTableBound(o) {
			return newDomainError(KindInvalidTransition, "delivery orders finish as %s", enum.OrderStatusDelivered)
		}
	}
	return nil
}

// applyOrderStatus persists status and raises every live item ranked below it
// to the matching item status. Delivered and Completed therefore force all
// live items to Delivered.
func applyOrderStatus(ctx context.Context, store OrderStore, o database.Order, status string) (database.Order, error) {
	if o.Status != status {
		updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: o.ID, Status: status})
		if err != nil {
			return database.Order{}, fmt.Errorf("update order status: %w", err)
		}
		o = updated
	}

	target := itemStatusFor(status)
	items, err := store.ListOrderItemsByOrder(ctx, o.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("list order items: %w", err)
	}
	for _, it := range items {
		if it.Status == enum.ItemStatusCancelled || StatusRank(it.Status) >= StatusRank(target) {
			continue
		}
		if _, err := store.UpdateOrderItemStatus(ctx, database.UpdateOrderItemStatusParams{ID: it.ID, Status: target}); err != nil {
			return database.Order{}, fmt.Errorf("update order item status: %w", err)
		}
	}
	return o, nil
}

// SetItemStatus changes one line item and re-derives the order status from
// all of its items. Cancelling an item returns its stock.
func (s *OrderService) SetItemStatus(ctx context.Context, storeID, itemID uuid.UUID, status string) (*OrderResult, error) {
	if !IsValidItemStatus(status) {
		return nil, newDomainError(KindInvalidRequest, "invalid item status %q", status)
	}

	var result *OrderResult
	err := s.inTx(ctx, func(store OrderStore) error {
		item, err := store.GetOrderItem(ctx, itemID)
		if err != nil {
			return notFound(err, "order item")
		}
		order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: item.OrderID, StoreID: storeID})
		if err != nil {
			return notFound(err, "order item")
		}
		if isClosed(order.Status) {
			return newDomainError(KindOrderClosed, "order is %s", strings.ToLower(order.Status))
		}
		if item.Status == enum.ItemStatusCancelled {
			return newDomainError(KindAlreadyCancelled, "item %s is already cancelled", item.Name)
		}
		if item.Status == status {
			result, err = s.finishOrder(ctx, store, order)
			return err
		}
		st, err := store.GetStore(ctx, order.StoreID)
		if err != nil {
			return notFound(err, "store")
		}

		if status == enum.ItemStatusCancelled {
			if err := reverseItem(ctx, store, order, item, enum.StockMovementItemRestore); err != nil {
				return err
			}
		}
		if _, err := store.UpdateOrderItemStatus(ctx, database.UpdateOrderItemStatusParams{ID: item.ID, Status: status}); err != nil {
			return fmt.Errorf("update order item status: %w", err)
		}

		order, err = recomputeTotals(ctx, store, order)
		if err != nil {
			return err
		}
		items, err := store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		derived := settleDerived(st, order, DeriveOrderStatus(items, acceptsAutomatically(st, order)))
		if derived != order.Status {
			order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: order.ID, Status: derived})
			if err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
		}

		result, err = s.finishOrder(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	evt := enum.EventOrderUpdated
	if result.Order.Status == enum.OrderStatusCancelled {
		evt = enum.EventOrderCancelled
	}
	s.publishOrder(ctx, evt, result)
	return result, nil
}
