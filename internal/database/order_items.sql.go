package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, order_id, store_product_id, combo_id, name, unit_price, quantity, notes, status, created_at`

func scanOrderItem(row interface{ Scan(...interface{}) error }) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.StoreProductID,
		&i.ComboID,
		&i.Name,
		&i.UnitPrice,
		&i.Quantity,
		&i.Notes,
		&i.Status,
		&i.CreatedAt,
	)
	return i, err
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (
    order_id, store_product_id, combo_id, name, unit_price, quantity, notes, status
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8
)
RETURNING ` + orderItemColumns + `
`

type CreateOrderItemParams struct {
	OrderID        uuid.UUID   `json:"order_id"`
	StoreProductID pgtype.UUID `json:"store_product_id"`
	ComboID        pgtype.UUID `json:"combo_id"`
	Name           string      `json:"name"`
	UnitPrice      int64       `json:"unit_price"`
	Quantity       int32       `json:"quantity"`
	Notes          pgtype.Text `json:"notes"`
	Status         string      `json:"status"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.StoreProductID,
		arg.ComboID,
		arg.Name,
		arg.UnitPrice,
		arg.Quantity,
		arg.Notes,
		arg.Status,
	)
	return scanOrderItem(row)
}

const getOrderItem = `-- name: GetOrderItem :one
SELECT ` + orderItemColumns + `
FROM order_items
WHERE id = $1
`

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT ` + orderItemColumns + `
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderItemStatus = `-- name: UpdateOrderItemStatus :one
UPDATE order_items
SET status = $2
WHERE id = $1
RETURNING ` + orderItemColumns + `
`

type UpdateOrderItemStatusParams struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (q *Queries) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItemStatus, arg.ID, arg.Status))
}

const createOrderItemAddon = `-- name: CreateOrderItemAddon :one
INSERT INTO order_item_addons (order_item_id, store_product_id, name, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_item_id, store_product_id, name, unit_price
`

type CreateOrderItemAddonParams struct {
	OrderItemID    uuid.UUID `json:"order_item_id"`
	StoreProductID uuid.UUID `json:"store_product_id"`
	Name           string    `json:"name"`
	UnitPrice      int64     `json:"unit_price"`
}

func (q *Queries) CreateOrderItemAddon(ctx context.Context, arg CreateOrderItemAddonParams) (OrderItemAddon, error) {
	row := q.db.QueryRow(ctx, createOrderItemAddon,
		arg.OrderItemID,
		arg.StoreProductID,
		arg.Name,
		arg.UnitPrice,
	)
	var i OrderItemAddon
	err := row.Scan(
		&i.ID,
		&i.OrderItemID,
		&i.StoreProductID,
		&i.Name,
		&i.UnitPrice,
	)
	return i, err
}

const listOrderItemAddonsByOrder = `-- name: ListOrderItemAddonsByOrder :many
SELECT a.id, a.order_item_id, a.store_product_id, a.name, a.unit_price
FROM order_item_addons a
JOIN order_items i ON i.id = a.order_item_id
WHERE i.order_id = $1
ORDER BY a.order_item_id, a.id
`

func (q *Queries) ListOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItemAddon, error) {
	rows, err := q.db.Query(ctx, listOrderItemAddonsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItemAddon
	for rows.Next() {
		var i OrderItemAddon
		if err := rows.Scan(
			&i.ID,
			&i.OrderItemID,
			&i.StoreProductID,
			&i.Name,
			&i.UnitPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
