package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusAwaitingAcceptance = "AWAITING_ACCEPTANCE"
	OrderStatusInPreparation      = "IN_PREPARATION"
	OrderStatusReady              = "READY"
	OrderStatusOutForDelivery     = "OUT_FOR_DELIVERY"
	OrderStatusDelivered          = "DELIVERED"
	OrderStatusCompleted          = "COMPLETED"
	OrderStatusCancelled          = "CANCELLED"
)

// Line items share the order status vocabulary minus the dispatch and
// pickup-only states.
const (
	ItemStatusAwaitingAcceptance = OrderStatusAwaitingAcceptance
	ItemStatusInPreparation      = OrderStatusInPreparation
	ItemStatusReady              = OrderStatusReady
	ItemStatusDelivered          = OrderStatusDelivered
	ItemStatusCancelled          = OrderStatusCancelled
)

const (
	TableStatusFree     = "FREE"
	TableStatusOccupied = "OCCUPIED"
	TableStatusWaiting  = "WAITING"
	TableStatusCalled   = "CALLED"
	TableStatusBilling  = "BILLING"
)

// ── Group B: Ledger and event labels (no DB constraint) ──

const (
	StockMovementSale          = "SALE"
	StockMovementCancelRestore = "CANCEL_RESTORE"
	StockMovementItemRestore   = "ITEM_CANCEL_RESTORE"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventTableChanged       = "table.changed"
)

const (
	PaymentMethodCash   = "CASH"
	PaymentMethodCard   = "CARD"
	PaymentMethodPix    = "PIX"
	PaymentMethodOnline = "ONLINE"
)

const (
	RoleOwner    = "OWNER"
	RoleManager  = "MANAGER"
	RoleWaiter   = "WAITER"
	RoleKitchen  = "KITCHEN"
	RoleCustomer = "CUSTOMER"
)
