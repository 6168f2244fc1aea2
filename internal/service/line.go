package service

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/order-engine/internal/database"
)

// line is a resolved order line: either a direct product with its addons or
// a combo decomposed into constituent movements. The two cases are the only
// implementations.
type line interface {
	movements() []stockMovement
	itemParams(orderID uuid.UUID, status string) database.CreateOrderItemParams
	addonParams(itemID uuid.UUID) []database.CreateOrderItemAddonParams
}

type productLine struct {
	product  database.StoreProduct
	addons   []database.StoreProduct
	quantity int32
	notes    string
}

// Each addon consumes one unit per unit of the parent line.
func (l productLine) movements() []stockMovement {
	moves := make([]stockMovement, 0, 1+len(l.addons))
	moves = append(moves, stockMovement{product: l.product, quantity: int64(l.quantity)})
	for _, a := range l.addons {
		moves = append(moves, stockMovement{product: a, quantity: int64(l.quantity)})
	}
	return moves
}

func (l productLine) itemParams(orderID uuid.UUID, status string) database.CreateOrderItemParams {
	return database.CreateOrderItemParams{
		OrderID:        orderID,
		StoreProductID: pgtype.UUID{Bytes: l.product.ID, Valid: true},
		Name:           l.product.Name,
		UnitPrice:      l.product.Price,
		Quantity:       l.quantity,
		Notes:          optionalText(l.notes),
		Status:         status,
	}
}

func (l productLine) addonParams(itemID uuid.UUID) []database.CreateOrderItemAddonParams {
	out := make([]database.CreateOrderItemAddonParams, len(l.addons))
	for i, a := range l.addons {
		out[i] = database.CreateOrderItemAddonParams{
			OrderItemID:    itemID,
			StoreProductID: a.ID,
			Name:           a.Name,
			UnitPrice:      a.Price,
		}
	}
	return out
}

type comboLine struct {
	combo        database.Combo
	constituents []stockMovement
	quantity     int32
	notes        string
}

func (l comboLine) movements() []stockMovement {
	return l.constituents
}

// The combo price is merchant-set and independent of its constituents.
func (l comboLine) itemParams(orderID uuid.UUID, status string) database.CreateOrderItemParams {
	return database.CreateOrderItemParams{
		OrderID:   orderID,
		ComboID:   pgtype.UUID{Bytes: l.combo.ID, Valid: true},
		Name:      l.combo.Name,
		UnitPrice: l.combo.Price,
		Quantity:  l.quantity,
		Notes:     optionalText(l.notes),
		Status:    status,
	}
}

func (l comboLine) addonParams(uuid.UUID) []database.CreateOrderItemAddonParams {
	return nil
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
