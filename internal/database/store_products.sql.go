package database

import (
	"context"

	"github.com/google/uuid"
)

const storeProductColumns = `id, store_id, product_id, name, price, stock, sales_count, is_available, created_at, updated_at`

func scanStoreProduct(row interface{ Scan(...interface{}) error }) (StoreProduct, error) {
	var i StoreProduct
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.ProductID,
		&i.Name,
		&i.Price,
		&i.Stock,
		&i.SalesCount,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listStoreProductCandidates = `-- name: ListStoreProductCandidates :many
SELECT ` + storeProductColumns + `
FROM store_products
WHERE store_id = $1 AND product_id = $2
ORDER BY COALESCE(stock, 0) DESC, id ASC
FOR UPDATE
`

type ListStoreProductCandidatesParams struct {
	StoreID   uuid.UUID `json:"store_id"`
	ProductID uuid.UUID `json:"product_id"`
}

// ListStoreProductCandidates locks every row stocked for the product in the
// store for the remainder of the transaction.
func (q *Queries) ListStoreProductCandidates(ctx context.Context, arg ListStoreProductCandidatesParams) ([]StoreProduct, error) {
	rows, err := q.db.Query(ctx, listStoreProductCandidates, arg.StoreID, arg.ProductID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StoreProduct
	for rows.Next() {
		i, err := scanStoreProduct(rows)
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

const getStoreProduct = `-- name: GetStoreProduct :one
SELECT ` + storeProductColumns + `
FROM store_products
WHERE id = $1 AND store_id = $2
`

type GetStoreProductParams struct {
	ID      uuid.UUID `json:"id"`
	StoreID uuid.UUID `json:"store_id"`
}

func (q *Queries) GetStoreProduct(ctx context.Context, arg GetStoreProductParams) (StoreProduct, error) {
	return scanStoreProduct(q.db.QueryRow(ctx, getStoreProduct, arg.ID, arg.StoreID))
}

const decrementStock = `-- name: DecrementStock :one
UPDATE store_products
SET stock = COALESCE(stock, 0) - $2,
    sales_count = sales_count + $2,
    updated_at = now()
WHERE id = $1
  AND COALESCE(stock, 0) >= $2
RETURNING ` + storeProductColumns + `
`

type AdjustStockParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

// DecrementStock only applies when the row holds at least Quantity units;
// otherwise it returns pgx.ErrNoRows and leaves the row untouched.
func (q *Queries) DecrementStock(ctx context.Context, arg AdjustStockParams) (StoreProduct, error) {
	return scanStoreProduct(q.db.QueryRow(ctx, decrementStock, arg.ID, arg.Quantity))
}

const incrementStock = `-- name: IncrementStock :one
UPDATE store_products
SET stock = COALESCE(stock, 0) + $2,
    sales_count = GREATEST(sales_count - $2, 0),
    updated_at = now()
WHERE id = $1
RETURNING ` + storeProductColumns + `
`

func (q *Queries) IncrementStock(ctx context.Context, arg AdjustStockParams) (StoreProduct, error) {
	return scanStoreProduct(q.db.QueryRow(ctx, incrementStock, arg.ID, arg.Quantity))
}
