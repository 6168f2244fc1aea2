package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStatus_ForwardRaisesItems(t *testing.T) {
	fx := newFixture(t)
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), deliveryOrder(fx, productItem(p, 1), productItem(p, 2)))
	require.NoError(t, err)

	got, err := fx.svc.SetStatus(context.Background(), fx.store.ID, res.Order.ID, enum.OrderStatusInPreparation)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusInPreparation, got.Order.Status)
	for _, it := range got.Items {
		assert.Equal(t, enum.ItemStatusInPreparation, it.Item.Status)
	}

	got, err = fx.svc.SetStatus(context.Background(), fx.store.ID, res.Order.ID, enum.OrderStatusOutForDelivery)
	require.NoError(t, err)
	for _, it := range got.Items {
		assert.Equal(t, enum.ItemStatusReady, it.Item.Status)
	}

	got, err = fx.svc.SetStatus(context.Background(), fx.store.ID, res.Order.ID, enum.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusDelivered, got.Order.Status)
	for _, it := range got.Items {
		assert.Equal(t, enum.ItemStatusDelivered, it.Item.Status)
	}
	assert.Contains(t, fx.pub.types(), enum.EventOrderStatusChanged)
}

func TestSetStatus_ForceDeliveredLeavesCancelledItems(t *testing.T) {
	fx := newFixture(t)
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), deliveryOrder(fx, productItem(p, 1), productItem(p, 1)))
	require.NoError(t, err)
	_, err = fx.svc.SetItemStatus(context.Background(), fx.store.ID, res.Items[0].Item.ID, enum.ItemStatusCancelled)
	require.NoError(t, err)

	got, err := fx.svc.SetStatus(context.Background(), fx.store.ID, res.Order.ID, enum.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enum.ItemStatusCancelled, got.Items[0].Item.Status)
	assert.Equal(t, enum.ItemStatusDelivered, got.Items[1].Item.Status)
}

func TestSetStatus_Rejections(t *testing.T) {
	fx := newFixture(t)
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), deliveryOrder(fx, productItem(p, 1)))
	require.NoError(t, err)
	id := res.Order.ID

	_, err = fx.svc.SetStatus(context.Background(), fx.store.ID, id, "LOST")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = fx.svc.SetStatus(context.Background(), fx.store.ID, id, enum.OrderStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition, "delivery orders do not complete")

	_, err = fx.svc.SetStatus(context.Background(), fx.store.ID, id, enum.OrderStatusReady)
	require.NoError(t, err)
	_, err = fx.svc.SetStatus(context.Background(), fx.store.ID, id, enum.OrderStatusInPreparation)
	assert.ErrorIs(t, err, ErrInvalidTransition, "no backward moves")

	_, err = fx.svc.SetStatus(context.Background(), uuid.New(), id, enum.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.svc.SetStatus(context.Background(), fx.store.ID, id, enum.OrderStatusCancelled)
	require.NoError(t, err)
	_, err = fx.svc.SetStatus(context.Background(), fx.store.ID, id, enum.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrOrderClosed)
}

func TestSetStatus_PickupRules(t *testing.T) {
	fx := newFixture(t, func(s *database.Store) { s.AutoDispatch = true })
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), CreateOrderRequest{
		StoreID: fx.store.ID, IsPickup: true, Items: []OrderItemRequest{productItem(p, 1)},
	})
	require.NoError(t, err)

	_, err = fx.svc.SetStatus(context.Background(), fx.store.ID, res.Order.ID, enum.OrderStatusOutForDelivery)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := fx.svc.SetStatus(context.Background(), fx.store.ID, res.Order.ID, enum.OrderStatusReady)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusReady, got.Order.Status, "pickup orders are never dispatched")

	got, err = fx.svc.SetStatus(context.Background(), fx.store.ID, res.Order.ID, enum.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCompleted, got.Order.Status)
	assert.Equal(t, enum.ItemStatusDelivered, got.Items[0].Item.Status)
}

func TestSetStatus_AutoDispatch(t *testing.T) {
	fx := newFixture(t, func(s *database.Store) { s.AutoDispatch = true })
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), deliveryOrder(fx, productItem(p, 1)))
	require.NoError(t, err)

	got, err := fx.svc.SetStatus(context.Background(), fx.store.ID, res.Order.ID, enum.OrderStatusReady)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusOutForDelivery, got.Order.Status)
	assert.Equal(t, enum.ItemStatusReady, got.Items[0].Item.Status)
}

func TestSetStatus_CancelledRestoresStock(t *testing.T) {
	fx := newFixture(t)
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), deliveryOrder(fx, productItem(p, 3)))
	require.NoError(t, err)

	got, err := fx.svc.SetStatus(context.Background(), fx.store.ID, res.Order.ID, enum.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCancelled, got.Order.Status)
	assert.Equal(t, int32(10), fx.stockOf(p.ID))
}

func TestSetItemStatus_DerivesOrderStatus(t *testing.T) {
	fx := newFixture(t, func(s *database.Store) { s.AutoAccept = true })
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), deliveryOrder(fx, productItem(p, 1), productItem(p, 1)))
	require.NoError(t, err)
	require.Equal(t, enum.OrderStatusInPreparation, res.Order.Status)
	first, second := res.Items[0].Item.ID, res.Items[1].Item.ID

	got, err := fx.svc.SetItemStatus(context.Background(), fx.store.ID, first, enum.ItemStatusReady)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusInPreparation, got.Order.Status)

	got, err = fx.svc.SetItemStatus(context.Background(), fx.store.ID, second, enum.ItemStatusReady)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusReady, got.Order.Status)

	got, err = fx.svc.SetItemStatus(context.Background(), fx.store.ID, first, enum.ItemStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusReady, got.Order.Status)

	got, err = fx.svc.SetItemStatus(context.Background(), fx.store.ID, second, enum.ItemStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusDelivered, got.Order.Status)
}

func TestSetItemStatus_PickupFinishesCompleted(t *testing.T) {
	fx := newFixture(t)
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), CreateOrderRequest{
		StoreID: fx.store.ID, IsPickup: true, SendToKitchen: ptr(true), Items: []OrderItemRequest{productItem(p, 1)},
	})
	require.NoError(t, err)

	got, err := fx.svc.SetItemStatus(context.Background(), fx.store.ID, res.Items[0].Item.ID, enum.ItemStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCompleted, got.Order.Status)
}

func TestSetItemStatus_AutoDispatchOnDerivedReady(t *testing.T) {
	fx := newFixture(t, func(s *database.Store) { s.AutoDispatch = true })
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), deliveryOrder(fx, productItem(p, 1)))
	require.NoError(t, err)

	got, err := fx.svc.SetItemStatus(context.Background(), fx.store.ID, res.Items[0].Item.ID, enum.ItemStatusReady)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusOutForDelivery, got.Order.Status)
}

func TestSetItemStatus_CancelRestoresItemStock(t *testing.T) {
	fx := newFixture(t)
	tea := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	ice := fx.product(uuid.New(), "Es", 100, ptr[int32](10))
	cake := fx.product(uuid.New(), "Kue", 1500, ptr[int32](4))
	res, err := fx.svc.CreateOrder(context.Background(), deliveryOrder(fx, productItem(tea, 2, ice), productItem(cake, 1)))
	require.NoError(t, err)
	require.Equal(t, int64(2*500+2*100+1500+1000), res.Order.Total)

	got, err := fx.svc.SetItemStatus(context.Background(), fx.store.ID, res.Items[0].Item.ID, enum.ItemStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(1500+1000), got.Order.Total)
	assert.Equal(t, int32(1), got.Order.Quantity)
	assert.Equal(t, enum.OrderStatusAwaitingAcceptance, got.Order.Status)
	assert.Equal(t, int32(10), fx.stockOf(tea.ID))
	assert.Equal(t, int32(10), fx.stockOf(ice.ID))
	assert.Equal(t, int32(3), fx.stockOf(cake.ID))

	_, err = fx.svc.SetItemStatus(context.Background(), fx.store.ID, res.Items[0].Item.ID, enum.ItemStatusReady)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	got, err = fx.svc.SetItemStatus(context.Background(), fx.store.ID, res.Items[1].Item.ID, enum.ItemStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCancelled, got.Order.Status, "all items cancelled cancels the order")
	assert.Equal(t, int32(4), fx.stockOf(cake.ID))
	assert.Contains(t, fx.pub.types(), enum.EventOrderCancelled)

	restores := 0
	for _, m := range fx.db.snapshot().movements {
		if m.Kind == enum.StockMovementItemRestore {
			restores++
		}
	}
	assert.Equal(t, 3, restores)
}

func TestSetItemStatus_Rejections(t *testing.T) {
	fx := newFixture(t)
	p := fx.product(uuid.New(), "Teh", 500, ptr[int32](10))
	res, err := fx.svc.CreateOrder(context.Background(), deliveryOrder(fx, productItem(p, 1)))
	require.NoError(t, err)
	itemID := res.Items[0].Item.ID

	_, err = fx.svc.SetItemStatus(context.Background(), fx.store.ID, itemID, enum.OrderStatusOutForDelivery)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = fx.svc.SetItemStatus(context.Background(), fx.store.ID, uuid.New(), enum.ItemStatusReady)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.svc.SetItemStatus(context.Background(), uuid.New(), itemID, enum.ItemStatusReady)
	assert.ErrorIs(t, err, ErrNotFound, "items are scoped to the store")

	_, err = fx.svc.CancelOrder(context.Background(), fx.store.ID, res.Order.ID, "")
	require.NoError(t, err)
	_, err = fx.svc.SetItemStatus(context.Background(), fx.store.ID, itemID, enum.ItemStatusReady)
	assert.ErrorIs(t, err, ErrOrderClosed)
}
