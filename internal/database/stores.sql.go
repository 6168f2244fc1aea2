package database

import (
	"context"

	"github.com/google/uuid"
)

const getStore = `-- name: GetStore :one
SELECT id, name, slug, is_active, is_manually_open, auto_accept, auto_dispatch,
       delivery_fee, allow_customer_cancel, max_cancellable_status, created_at, updated_at
FROM stores
WHERE id = $1
`

func (q *Queries) GetStore(ctx context.Context, id uuid.UUID) (Store, error) {
	row := q.db.QueryRow(ctx, getStore, id)
	var i Store
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.IsActive,
		&i.IsManuallyOpen,
		&i.AutoAccept,
		&i.AutoDispatch,
		&i.DeliveryFee,
		&i.AllowCustomerCancel,
		&i.MaxCancellableStatus,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCustomer = `-- name: GetCustomer :one
SELECT id, name, phone, cancellation_count, created_at
FROM customers
WHERE id = $1
`

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomer, id)
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Phone,
		&i.CancellationCount,
		&i.CreatedAt,
	)
	return i, err
}

const incrementCustomerCancellations = `-- name: IncrementCustomerCancellations :one
UPDATE customers
SET cancellation_count = cancellation_count + 1
WHERE id = $1
RETURNING id, name, phone, cancellation_count, created_at
`

func (q *Queries) IncrementCustomerCancellations(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, incrementCustomerCancellations, id)
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Phone,
		&i.CancellationCount,
		&i.CreatedAt,
	)
	return i, err
}
