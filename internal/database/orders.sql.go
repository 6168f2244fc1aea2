package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, store_id, customer_id, table_number, courier_id, delivery_address,
       payment_method, change_due, notes, is_pickup, status, delivery_fee, discount,
       total, quantity, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.CustomerID,
		&i.TableNumber,
		&i.CourierID,
		&i.DeliveryAddress,
		&i.PaymentMethod,
		&i.ChangeDue,
		&i.Notes,
		&i.IsPickup,
		&i.Status,
		&i.DeliveryFee,
		&i.Discount,
		&i.Total,
		&i.Quantity,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    store_id, customer_id, table_number, courier_id, delivery_address,
    payment_method, change_due, notes, is_pickup, status, delivery_fee, discount
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	StoreID         uuid.UUID   `json:"store_id"`
	CustomerID      pgtype.UUID `json:"customer_id"`
	TableNumber     pgtype.Int4 `json:"table_number"`
	CourierID       pgtype.UUID `json:"courier_id"`
	DeliveryAddress pgtype.Text `json:"delivery_address"`
	PaymentMethod   pgtype.Text `json:"payment_method"`
	ChangeDue       pgtype.Int8 `json:"change_due"`
	Notes           pgtype.Text `json:"notes"`
	IsPickup        bool        `json:"is_pickup"`
	Status          string      `json:"status"`
	DeliveryFee     int64       `json:"delivery_fee"`
	Discount        pgtype.Int8 `json:"discount"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.StoreID,
		arg.CustomerID,
		arg.TableNumber,
		arg.CourierID,
		arg.DeliveryAddress,
		arg.PaymentMethod,
		arg.ChangeDue,
		arg.Notes,
		arg.IsPickup,
		arg.Status,
		arg.DeliveryFee,
		arg.Discount,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND store_id = $2
`

type GetOrderParams struct {
	ID      uuid.UUID `json:"id"`
	StoreID uuid.UUID `json:"store_id"`
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.StoreID))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND store_id = $2
FOR UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, arg.ID, arg.StoreID))
}

const listOrdersByStatus = `-- name: ListOrdersByStatus :many
SELECT ` + orderColumns + `
FROM orders
WHERE store_id = $1
  AND status = ANY($2::text[])
ORDER BY created_at ASC
`

type ListOrdersByStatusParams struct {
	StoreID  uuid.UUID `json:"store_id"`
	Statuses []string  `json:"statuses"`
}

func (q *Queries) ListOrdersByStatus(ctx context.Context, arg ListOrdersByStatusParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByStatus, arg.StoreID, arg.Statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
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

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const updateOrderTotals = `-- name: UpdateOrderTotals :one
UPDATE orders
SET total = $2, quantity = $3, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type UpdateOrderTotalsParams struct {
	ID       uuid.UUID `json:"id"`
	Total    int64     `json:"total"`
	Quantity int32     `json:"quantity"`
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTotals, arg.ID, arg.Total, arg.Quantity))
}

const updateOrderDiscount = `-- name: UpdateOrderDiscount :one
UPDATE orders
SET discount = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type UpdateOrderDiscountParams struct {
	ID       uuid.UUID   `json:"id"`
	Discount pgtype.Int8 `json:"discount"`
}

func (q *Queries) UpdateOrderDiscount(ctx context.Context, arg UpdateOrderDiscountParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderDiscount, arg.ID, arg.Discount))
}

const appendOrderNote = `-- name: AppendOrderNote :one
UPDATE orders
SET notes = CASE
        WHEN notes IS NULL OR notes = '' THEN $2::text
        ELSE notes || E'\n' || $2::text
    END,
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type AppendOrderNoteParams struct {
	ID   uuid.UUID `json:"id"`
	Note string    `json:"note"`
}

func (q *Queries) AppendOrderNote(ctx context.Context, arg AppendOrderNoteParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, appendOrderNote, arg.ID, arg.Note))
}
