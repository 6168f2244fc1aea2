package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
	"github.com/kiwari-pos/order-engine/internal/events"
	"go.uber.org/zap"
)

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	StoreID         uuid.UUID
	CustomerID      string
	TableNumber     int32 // 0 when the order is not table-bound
	CourierID       string
	DeliveryAddress string
	PaymentMethod   string
	ChangeDue       *int64
	Notes           string
	IsPickup        bool
	SendToKitchen   *bool
	Discount        *int64
	Items           []OrderItemRequest
}

// OrderItemRequest is a single requested line: a product XOR a combo.
type OrderItemRequest struct {
	ProductID string
	ComboID   string
	Quantity  int32
	Notes     string
	AddonIDs  []string
}

// AddItemsRequest appends lines to an existing order.
type AddItemsRequest struct {
	StoreID uuid.UUID
	OrderID uuid.UUID
	Items   []OrderItemRequest
}

// OrderResult is the full order with items and, for table orders, the table.
type OrderResult struct {
	Order database.Order
	Items []OrderItemResult
	Table *database.DiningTable
}

// OrderItemResult is an item with its addons.
type OrderItemResult struct {
	Item   database.OrderItem
	Addons []database.OrderItemAddon
}

// OrderService runs order intake, status changes, table synchronization and
// cancellation. Every public method is one database transaction.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	events   events.Publisher
	log      *zap.Logger
}

// NewOrderService creates a new OrderService. A nil publisher disables
// change notifications.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, publisher events.Publisher, log *zap.Logger) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{pool: pool, newStore: newStore, events: publisher, log: log}
}

// CreateOrder validates, prices, decrements stock and persists an order
// atomically. An order for a table that already has an open order is merged
// into that order instead.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	customerID, err := parseOptionalUUID(req.CustomerID, "customer_id")
	if err != nil {
		return nil, err
	}
	courierID, err := parseOptionalUUID(req.CourierID, "courier_id")
	if err != nil {
		return nil, err
	}

	var result *OrderResult
	created := false
	err = s.inTx(ctx, func(store OrderStore) error {
		st, err := store.GetStore(ctx, req.StoreID)
		if err != nil {
			return notFound(err, "store")
		}
		tableBound := req.TableNumber > 0
		if err := checkStoreOpen(st, tableBound); err != nil {
			return err
		}

		var table database.DiningTable
		if tableBound {
			table, err = getTable(ctx, store, st.ID, req.TableNumber)
			if err != nil {
				return err
			}
			open, ok, err := openTableOrder(ctx, store, table)
			if err != nil {
				return err
			}
			if ok {
				result, err = s.appendItems(ctx, store, st, open, req.Items)
				return err
			}
		}

		status := InitialStatus(st, req.IsPickup, req.SendToKitchen, tableBound)
		params := database.CreateOrderParams{
			StoreID:         st.ID,
			CustomerID:      customerID,
			CourierID:       courierID,
			DeliveryAddress: optionalText(req.DeliveryAddress),
			PaymentMethod:   optionalText(req.PaymentMethod),
			Notes:           optionalText(req.Notes),
			IsPickup:        req.IsPickup,
			Status:          status,
		}
		if tableBound {
			params.TableNumber = pgtype.Int4{Int32: req.TableNumber, Valid: true}
		} else if !req.IsPickup {
			params.DeliveryFee = st.DeliveryFee
		}
		if req.ChangeDue != nil {
			params.ChangeDue = pgtype.Int8{Int64: *req.ChangeDue, Valid: true}
		}
		if req.Discount != nil {
			params.Discount = pgtype.Int8{Int64: *req.Discount, Valid: true}
		}

		order, err := store.CreateOrder(ctx, params)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := attachLines(ctx, store, st, order, req.Items, itemStatusFor(status)); err != nil {
			return err
		}
		order, err = recomputeTotals(ctx, store, order)
		if err != nil {
			return err
		}

		if tableBound {
			if _, err := linkTable(ctx, store, table, order, ""); err != nil {
				return err
			}
		}

		result, err = s.finishOrder(ctx, store, order)
		created = true
		return err
	})
	if err != nil {
		return nil, err
	}

	evt := enum.EventOrderUpdated
	if created {
		evt = enum.EventOrderCreated
	}
	s.log.Info("order placed",
		zap.String("store_id", req.StoreID.String()),
		zap.String("order_id", result.Order.ID.String()),
		zap.String("status", result.Order.Status),
		zap.Int64("total", result.Order.Total),
		zap.Bool("merged", !created),
	)
	s.publishOrder(ctx, evt, result)
	return result, nil
}

// AddItems appends lines to an existing order, reopening it for fulfillment
// staff when it had already been marked ready or delivered.
func (s *OrderService) AddItems(ctx context.Context, req AddItemsRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, newDomainError(KindInvalidRequest, "items are required")
	}
	for i, it := range req.Items {
		if err := validateItem(i, it); err != nil {
			return nil, err
		}
	}

	var result *OrderResult
	err := s.inTx(ctx, func(store OrderStore) error {
		order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: req.OrderID, StoreID: req.StoreID})
		if err != nil {
			return notFound(err, "order")
		}
		st, err := store.GetStore(ctx, order.StoreID)
		if err != nil {
			return notFound(err, "store")
		}
		result, err = s.appendItems(ctx, store, st, order, req.Items)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishOrder(ctx, enum.EventOrderUpdated, result)
	return result, nil
}

// appendItems is shared by AddItems and the table merge in CreateOrder.
func (s *OrderService) appendItems(ctx context.Context, store OrderStore, st database.Store, order database.Order, items []OrderItemRequest) (*OrderResult, error) {
	if !acceptsNewItems(order) {
		return nil, newDomainError(KindOrderClosed, "order is %s; start a new order", strings.ToLower(order.Status))
	}

	switch order.Status {
	case enum.OrderStatusReady, enum.OrderStatusDelivered:
		reopened := enum.OrderStatusAwaitingAcceptance
		if acceptsAutomatically(st, order) {
			reopened = enum.OrderStatusInPreparation
		}
		updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: order.ID, Status: reopened})
		if err != nil {
			return nil, fmt.Errorf("reopen order: %w", err)
		}
		order = updated
	}

	if err := attachLines(ctx, store, st, order, items, itemStatusFor(order.Status)); err != nil {
		return nil, err
	}
	order, err := recomputeTotals(ctx, store, order)
	if err != nil {
		return nil, err
	}
	return s.finishOrder(ctx, store, order)
}

// attachLines resolves, stock-checks and inserts each requested line, then
// consumes its stock. The caller's transaction undoes everything on error.
func attachLines(ctx context.Context, store OrderStore, st database.Store, order database.Order, items []OrderItemRequest, status string) error {
	for i, req := range items {
		l, err := buildLine(ctx, store, st.ID, req)
		if err != nil {
			return wrapItemError(i, err)
		}

		item, err := store.CreateOrderItem(ctx, l.itemParams(order.ID, status))
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
		if err := consumeStock(ctx, store, order.ID, item.ID, l.movements()); err != nil {
			return wrapItemError(i, err)
		}
		for _, p := range l.addonParams(item.ID) {
			if _, err := store.CreateOrderItemAddon(ctx, p); err != nil {
				return fmt.Errorf("create order item addon: %w", err)
			}
		}
	}
	return nil
}

// buildLine resolves one requested line against live stock.
func buildLine(ctx context.Context, store OrderStore, storeID uuid.UUID, req OrderItemRequest) (line, error) {
	if req.ComboID != "" {
		comboID, err := uuid.Parse(req.ComboID)
		if err != nil {
			return nil, newDomainError(KindInvalidRequest, "invalid combo_id")
		}
		cl, err := ExpandCombo(ctx, store, storeID, comboID, req.Quantity)
		if err != nil {
			return nil, err
		}
		cl.notes = req.Notes
		return cl, nil
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, newDomainError(KindInvalidRequest, "invalid product_id")
	}
	product, err := ResolveStoreProduct(ctx, store, storeID, productID)
	if err != nil {
		return nil, err
	}
	if have := stockOf(product); have < req.Quantity {
		return nil, insufficientStock(product.Name, have, req.Quantity)
	}

	pl := productLine{product: product, quantity: req.Quantity, notes: req.Notes}
	for _, raw := range req.AddonIDs {
		addonID, err := uuid.Parse(raw)
		if err != nil {
			return nil, newDomainError(KindInvalidRequest, "invalid addon id %q", raw)
		}
		addon, err := ResolveStoreProduct(ctx, store, storeID, addonID)
		if err != nil {
			return nil, err
		}
		if have := stockOf(addon); have < req.Quantity {
			return nil, insufficientStock(addon.Name, have, req.Quantity)
		}
		pl.addons = append(pl.addons, addon)
	}

	if err := checkStock(pl.movements()); err != nil {
		return nil, err
	}
	return pl, nil
}

// GetOrder returns an order with its items and addons.
func (s *OrderService) GetOrder(ctx context.Context, storeID, orderID uuid.UUID) (*OrderResult, error) {
	var result *OrderResult
	err := s.inTx(ctx, func(store OrderStore) error {
		order, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, StoreID: storeID})
		if err != nil {
			return notFound(err, "order")
		}
		result, err = loadOrderResult(ctx, store, order)
		return err
	})
	return result, err
}

// DefaultQueueStatuses are the statuses fulfillment staff work through.
var DefaultQueueStatuses = []string{
	enum.OrderStatusAwaitingAcceptance,
	enum.OrderStatusInPreparation,
	enum.OrderStatusReady,
	enum.OrderStatusOutForDelivery,
}

// ListQueue returns the store's orders in the given statuses, oldest first.
func (s *OrderService) ListQueue(ctx context.Context, storeID uuid.UUID, statuses []string) ([]OrderResult, error) {
	if len(statuses) == 0 {
		statuses = DefaultQueueStatuses
	}
	for _, st := range statuses {
		if !IsValidOrderStatus(st) {
			return nil, newDomainError(KindInvalidRequest, "invalid status %q", st)
		}
	}

	var results []OrderResult
	err := s.inTx(ctx, func(store OrderStore) error {
		orders, err := store.ListOrdersByStatus(ctx, database.ListOrdersByStatusParams{
			StoreID:  storeID,
			Statuses: statuses,
		})
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		results = make([]OrderResult, 0, len(orders))
		for _, o := range orders {
			r, err := loadOrderResult(ctx, store, o)
			if err != nil {
				return err
			}
			results = append(results, *r)
		}
		return nil
	})
	return results, err
}

// SetDiscount replaces the order discount (nil clears it) and reprices.
func (s *OrderService) SetDiscount(ctx context.Context, storeID, orderID uuid.UUID, discount *int64) (*OrderResult, error) {
	if discount != nil && *discount < 0 {
		return nil, newDomainError(KindInvalidRequest, "discount must be >= 0")
	}

	var result *OrderResult
	err := s.inTx(ctx, func(store OrderStore) error {
		order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: orderID, StoreID: storeID})
		if err != nil {
			return notFound(err, "order")
		}
		if isClosed(order.Status) {
			return newDomainError(KindOrderClosed, "order is %s", strings.ToLower(order.Status))
		}
		d := pgtype.Int8{}
		if discount != nil {
			d = pgtype.Int8{Int64: *discount, Valid: true}
		}
		order, err = store.UpdateOrderDiscount(ctx, database.UpdateOrderDiscountParams{ID: order.ID, Discount: d})
		if err != nil {
			return fmt.Errorf("update order discount: %w", err)
		}
		order, err = recomputeTotals(ctx, store, order)
		if err != nil {
			return err
		}
		result, err = loadOrderResult(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishOrder(ctx, enum.EventOrderUpdated, result)
	return result, nil
}

// finishOrder syncs the linked table and loads the result inside the tx.
func (s *OrderService) finishOrder(ctx context.Context, store OrderStore, order database.Order) (*OrderResult, error) {
	table, err := syncTable(ctx, store, order)
	if err != nil {
		return nil, err
	}
	result, err := loadOrderResult(ctx, store, order)
	if err != nil {
		return nil, err
	}
	result.Table = table
	return result, nil
}

func loadOrderResult(ctx context.Context, store OrderStore, order database.Order) (*OrderResult, error) {
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	addons, err := store.ListOrderItemAddonsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order item addons: %w", err)
	}

	byItem := make(map[uuid.UUID][]database.OrderItemAddon, len(items))
	for _, a := range addons {
		byItem[a.OrderItemID] = append(byItem[a.OrderItemID], a)
	}
	result := &OrderResult{Order: order, Items: make([]OrderItemResult, len(items))}
	for i, it := range items {
		result.Items[i] = OrderItemResult{Item: it, Addons: byItem[it.ID]}
	}
	return result, nil
}

// openTableOrder returns the table's current order when it can still take
// new items.
func openTableOrder(ctx context.Context, store OrderStore, table database.DiningTable) (database.Order, bool, error) {
	if !table.CurrentOrderID.Valid {
		return database.Order{}, false, nil
	}
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{
		ID:      uuid.UUID(table.CurrentOrderID.Bytes),
		StoreID: table.StoreID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, false, nil
		}
		return database.Order{}, false, fmt.Errorf("get table order: %w", err)
	}
	if isClosed(order.Status) {
		return database.Order{}, false, nil
	}
	return order, true, nil
}

// checkStoreOpen enforces the store preconditions. Table orders are taken
// while the storefront is closed.
func checkStoreOpen(st database.Store, tableBound bool) error {
	if !st.IsActive {
		return newDomainError(KindStoreClosed, "store %s is not active", st.Name)
	}
	if !tableBound && st.IsManuallyOpen.Valid && !st.IsManuallyOpen.Bool {
		return newDomainError(KindStoreClosed, "store %s is closed", st.Name)
	}
	return nil
}

// --- Validation ---

func validateCreate(req CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return newDomainError(KindInvalidRequest, "items are required")
	}
	if req.TableNumber < 0 {
		return newDomainError(KindInvalidRequest, "invalid table_number")
	}
	if req.TableNumber > 0 && req.IsPickup {
		return newDomainError(KindInvalidRequest, "a table order cannot be a pickup order")
	}
	if req.TableNumber == 0 && !req.IsPickup && strings.TrimSpace(req.DeliveryAddress) == "" {
		return newDomainError(KindInvalidRequest, "delivery_address is required for delivery orders")
	}
	if req.Discount != nil && *req.Discount < 0 {
		return newDomainError(KindInvalidRequest, "discount must be >= 0")
	}
	if req.ChangeDue != nil && *req.ChangeDue < 0 {
		return newDomainError(KindInvalidRequest, "change_due must be >= 0")
	}
	if req.PaymentMethod != "" && !isValidPaymentMethod(req.PaymentMethod) {
		return newDomainError(KindInvalidRequest, "invalid payment_method")
	}
	for i, it := range req.Items {
		if err := validateItem(i, it); err != nil {
			return err
		}
	}
	return nil
}

// MaxLineQuantity bounds a single line so price and stock arithmetic stay
// well inside their column types.
const MaxLineQuantity = 10000

func validateItem(i int, it OrderItemRequest) error {
	if it.Quantity <= 0 {
		return newDomainError(KindInvalidRequest, "items[%d]: quantity must be > 0", i)
	}
	if it.Quantity > MaxLineQuantity {
		return newDomainError(KindInvalidRequest, "items[%d]: quantity must be <= %d", i, MaxLineQuantity)
	}
	if (it.ProductID == "") == (it.ComboID == "") {
		return newDomainError(KindInvalidRequest, "items[%d]: exactly one of product_id or combo_id is required", i)
	}
	if it.ComboID != "" && len(it.AddonIDs) > 0 {
		return newDomainError(KindInvalidRequest, "items[%d]: combos do not take addons", i)
	}
	return nil
}

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCard,
		enum.PaymentMethodPix, enum.PaymentMethodOnline:
		return true
	}
	return false
}

func parseOptionalUUID(s, field string) (pgtype.UUID, error) {
	if s == "" {
		return pgtype.UUID{}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, newDomainError(KindInvalidRequest, "invalid %s", field)
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

// wrapItemError prefixes domain errors with the offending line index and
// leaves infrastructure errors alone.
func wrapItemError(i int, err error) error {
	if de, ok := AsDomainError(err); ok {
		cp := *de
		cp.Message = fmt.Sprintf("items[%d]: %s", i, de.Message)
		return &cp
	}
	return err
}
