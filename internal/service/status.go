package service

import (
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
)

// statusRank orders statuses for forward-only transitions and for the
// customer cancellation window. Completed ranks with Delivered; Cancelled
// outranks everything.
var statusRank = map[string]int{
	enum.OrderStatusAwaitingAcceptance: 0,
	enum.OrderStatusInPreparation:      1,
	enum.OrderStatusReady:              2,
	enum.OrderStatusOutForDelivery:     3,
	enum.OrderStatusDelivered:          4,
	enum.OrderStatusCompleted:          4,
	enum.OrderStatusCancelled:          5,
}

// StatusRank returns the rank of an order status, or -1 if unknown.
func StatusRank(status string) int {
	r, ok := statusRank[status]
	if !ok {
		return -1
	}
	return r
}

// IsValidOrderStatus checks if the given status is a valid order status.
func IsValidOrderStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// IsValidItemStatus checks if the given status is a valid line item status.
func IsValidItemStatus(s string) bool {
	switch s {
	case enum.ItemStatusAwaitingAcceptance,
		enum.ItemStatusInPreparation,
		enum.ItemStatusReady,
		enum.ItemStatusDelivered,
		enum.ItemStatusCancelled:
		return true
	}
	return false
}

// isClosed reports whether no further mutation of the order is accepted.
func isClosed(status string) bool {
	return status == enum.OrderStatusCompleted || status == enum.OrderStatusCancelled
}

func isTableBound(o database.Order) bool {
	return o.TableNumber.Valid
}

// acceptsNewItems reports whether items may be appended to the order. A
// delivered table order stays open for the guests still seated; any other
// delivered or dispatched order must be followed by a new one.
func acceptsNewItems(o database.Order) bool {
	switch o.Status {
	case enum.OrderStatusCompleted, enum.OrderStatusCancelled, enum.OrderStatusOutForDelivery:
		return false
	case enum.OrderStatusDelivered:
		return isTableBound(o)
	}
	return true
}

// acceptsAutomatically reports whether new or pending work on the order skips
// the merchant's acceptance step. Table orders are pre-accepted.
func acceptsAutomatically(store database.Store, o database.Order) bool {
	return store.AutoAccept || isTableBound(o)
}

// InitialStatus picks the status of a freshly created order.
func InitialStatus(store database.Store, isPickup bool, sendToKitchen *bool, tableBound bool) string {
	if isPickup && sendToKitchen != nil {
		if *sendToKitchen {
			return enum.OrderStatusInPreparation
		}
		return enum.OrderStatusCompleted
	}
	if tableBound || store.AutoAccept {
		return enum.OrderStatusInPreparation
	}
	return enum.OrderStatusAwaitingAcceptance
}

// itemStatusFor maps an order status onto the line item vocabulary.
func itemStatusFor(orderStatus string) string {
	switch orderStatus {
	case enum.OrderStatusOutForDelivery:
		return enum.ItemStatusReady
	case enum.OrderStatusCompleted:
		return enum.ItemStatusDelivered
	}
	return orderStatus
}

// dispatchTarget applies the auto-dispatch policy to a requested status.
func dispatchTarget(store database.Store, o database.Order, status string) string {
	if status == enum.OrderStatusReady && store.AutoDispatch && !o.IsPickup && !isTableBound(o) {
		return enum.OrderStatusOutForDelivery
	}
	return status
}

// DeriveOrderStatus computes the order status implied by its line items.
// It returns "" when there are no items to derive from.
func DeriveOrderStatus(items []database.OrderItem, autoAccept bool) string {
	if len(items) == 0 {
		return ""
	}

	allCancelled := true
	allDelivered := true
	allReady := true
	anyPreparing := false
	for _, it := range items {
		switch it.Status {
		case enum.ItemStatusCancelled:
		case enum.ItemStatusDelivered:
			allCancelled = false
		case enum.ItemStatusReady:
			allCancelled = false
			allDelivered = false
		case enum.ItemStatusInPreparation:
			allCancelled, allDelivered, allReady = false, false, false
			anyPreparing = true
		default:
			allCancelled, allDelivered, allReady = false, false, false
		}
	}

	switch {
	case allCancelled:
		return enum.OrderStatusCancelled
	case allDelivered:
		return enum.OrderStatusDelivered
	case allReady:
		return enum.OrderStatusReady
	case anyPreparing:
		return enum.OrderStatusInPreparation
	case autoAccept:
		return enum.OrderStatusInPreparation
	}
	return enum.OrderStatusAwaitingAcceptance
}

// settleDerived adjusts a derived status to the order it is applied to:
// pickup orders finish as Completed, a dispatched order is not pulled back to
// Ready, and Ready is subject to auto-dispatch.
func settleDerived(store database.Store, o database.Order, derived string) string {
	switch derived {
	case "":
		return o.Status
	case enum.OrderStatusDelivered:
		if o.IsPickup {
			return enum.OrderStatusCompleted
		}
	case enum.OrderStatusReady:
		if o.Status == enum.OrderStatusOutForDelivery {
			return o.Status
		}
		return dispatchTarget(store, o, derived)
	}
	return derived
}
