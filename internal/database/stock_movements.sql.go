package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createStockMovement = `-- name: CreateStockMovement :one
INSERT INTO stock_movements (store_product_id, order_id, order_item_id, kind, delta, stock_after)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, store_product_id, order_id, order_item_id, kind, delta, stock_after, created_at
`

type CreateStockMovementParams struct {
	StoreProductID uuid.UUID   `json:"store_product_id"`
	OrderID        pgtype.UUID `json:"order_id"`
	OrderItemID    pgtype.UUID `json:"order_item_id"`
	Kind           string      `json:"kind"`
	Delta          int32       `json:"delta"`
	StockAfter     int32       `json:"stock_after"`
}

func (q *Queries) CreateStockMovement(ctx context.Context, arg CreateStockMovementParams) (StockMovement, error) {
	row := q.db.QueryRow(ctx, createStockMovement,
		arg.StoreProductID,
		arg.OrderID,
		arg.OrderItemID,
		arg.Kind,
		arg.Delta,
		arg.StockAfter,
	)
	var i StockMovement
	err := row.Scan(
		&i.ID,
		&i.StoreProductID,
		&i.OrderID,
		&i.OrderItemID,
		&i.Kind,
		&i.Delta,
		&i.StockAfter,
		&i.CreatedAt,
	)
	return i, err
}

const listStockMovementsByOrderItem = `-- name: ListStockMovementsByOrderItem :many
SELECT id, store_product_id, order_id, order_item_id, kind, delta, stock_after, created_at
FROM stock_movements
WHERE order_item_id = $1 AND kind = $2
ORDER BY created_at, id
`

type ListStockMovementsByOrderItemParams struct {
	OrderItemID pgtype.UUID `json:"order_item_id"`
	Kind        string      `json:"kind"`
}

func (q *Queries) ListStockMovementsByOrderItem(ctx context.Context, arg ListStockMovementsByOrderItemParams) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, listStockMovementsByOrderItem, arg.OrderItemID, arg.Kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StockMovement
	for rows.Next() {
		var i StockMovement
		if err := rows.Scan(
			&i.ID,
			&i.StoreProductID,
			&i.OrderID,
			&i.OrderItemID,
			&i.Kind,
			&i.Delta,
			&i.StockAfter,
			&i.CreatedAt,
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
