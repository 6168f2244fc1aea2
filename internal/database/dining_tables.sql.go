package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const diningTableColumns = `id, store_id, number, label, status, customer_name, current_order_id, opened_at`

func scanDiningTable(row interface{ Scan(...interface{}) error }) (DiningTable, error) {
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.Number,
		&i.Label,
		&i.Status,
		&i.CustomerName,
		&i.CurrentOrderID,
		&i.OpenedAt,
	)
	return i, err
}

func collectDiningTables(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}) ([]DiningTable, error) {
	defer rows.Close()
	var items []DiningTable
	for rows.Next() {
		i, err := scanDiningTable(rows)
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

const getTableByNumber = `-- name: GetTableByNumber :one
SELECT ` + diningTableColumns + `
FROM dining_tables
WHERE store_id = $1 AND number = $2
FOR UPDATE
`

type GetTableByNumberParams struct {
	StoreID uuid.UUID `json:"store_id"`
	Number  int32     `json:"number"`
}

func (q *Queries) GetTableByNumber(ctx context.Context, arg GetTableByNumberParams) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, getTableByNumber, arg.StoreID, arg.Number))
}

const getTableByOrder = `-- name: GetTableByOrder :one
SELECT ` + diningTableColumns + `
FROM dining_tables
WHERE current_order_id = $1
FOR UPDATE
`

func (q *Queries) GetTableByOrder(ctx context.Context, orderID uuid.UUID) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, getTableByOrder, orderID))
}

const listTables = `-- name: ListTables :many
SELECT ` + diningTableColumns + `
FROM dining_tables
WHERE store_id = $1
ORDER BY number
`

func (q *Queries) ListTables(ctx context.Context, storeID uuid.UUID) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, listTables, storeID)
	if err != nil {
		return nil, err
	}
	return collectDiningTables(rows)
}

const createTable = `-- name: CreateTable :one
INSERT INTO dining_tables (store_id, number)
VALUES ($1, $2)
RETURNING ` + diningTableColumns + `
`

type CreateTableParams struct {
	StoreID uuid.UUID `json:"store_id"`
	Number  int32     `json:"number"`
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, createTable, arg.StoreID, arg.Number))
}

const deleteFreeTable = `-- name: DeleteFreeTable :execrows
DELETE FROM dining_tables
WHERE id = $1 AND status = 'FREE' AND current_order_id IS NULL
`

func (q *Queries) DeleteFreeTable(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteFreeTable, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const updateTableState = `-- name: UpdateTableState :one
UPDATE dining_tables
SET status = $2,
    current_order_id = $3,
    customer_name = $4,
    opened_at = $5
WHERE id = $1
RETURNING ` + diningTableColumns + `
`

type UpdateTableStateParams struct {
	ID             uuid.UUID          `json:"id"`
	Status         string             `json:"status"`
	CurrentOrderID pgtype.UUID        `json:"current_order_id"`
	CustomerName   pgtype.Text        `json:"customer_name"`
	OpenedAt       pgtype.Timestamptz `json:"opened_at"`
}

func (q *Queries) UpdateTableState(ctx context.Context, arg UpdateTableStateParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, updateTableState,
		arg.ID,
		arg.Status,
		arg.CurrentOrderID,
		arg.CustomerName,
		arg.OpenedAt,
	)
	return scanDiningTable(row)
}

const updateTableLabel = `-- name: UpdateTableLabel :one
UPDATE dining_tables
SET label = $2
WHERE id = $1
RETURNING ` + diningTableColumns + `
`

type UpdateTableLabelParams struct {
	ID    uuid.UUID   `json:"id"`
	Label pgtype.Text `json:"label"`
}

func (q *Queries) UpdateTableLabel(ctx context.Context, arg UpdateTableLabelParams) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, updateTableLabel, arg.ID, arg.Label))
}
