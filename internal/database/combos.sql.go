package database

import (
	"context"

	"github.com/google/uuid"
)

const getCombo = `-- name: GetCombo :one
SELECT id, store_id, name, price, is_active, created_at
FROM combos
WHERE id = $1 AND store_id = $2
`

type GetComboParams struct {
	ID      uuid.UUID `json:"id"`
	StoreID uuid.UUID `json:"store_id"`
}

func (q *Queries) GetCombo(ctx context.Context, arg GetComboParams) (Combo, error) {
	row := q.db.QueryRow(ctx, getCombo, arg.ID, arg.StoreID)
	var i Combo
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.Name,
		&i.Price,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listComboItemsByCombo = `-- name: ListComboItemsByCombo :many
SELECT id, combo_id, store_product_id, quantity, sort_order
FROM combo_items
WHERE combo_id = $1
ORDER BY sort_order, id
`

func (q *Queries) ListComboItemsByCombo(ctx context.Context, comboID uuid.UUID) ([]ComboItem, error) {
	rows, err := q.db.Query(ctx, listComboItemsByCombo, comboID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ComboItem
	for rows.Next() {
		var i ComboItem
		if err := rows.Scan(
			&i.ID,
			&i.ComboID,
			&i.StoreProductID,
			&i.Quantity,
			&i.SortOrder,
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
