package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Store struct {
	ID                   uuid.UUID   `json:"id"`
	Name                 string      `json:"name"`
	Slug                 string      `json:"slug"`
	IsActive             bool        `json:"is_active"`
	IsManuallyOpen       pgtype.Bool `json:"is_manually_open"`
	AutoAccept           bool        `json:"auto_accept"`
	AutoDispatch         bool        `json:"auto_dispatch"`
	DeliveryFee          int64       `json:"delivery_fee"`
	AllowCustomerCancel  bool        `json:"allow_customer_cancel"`
	MaxCancellableStatus string      `json:"max_cancellable_status"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

type Customer struct {
	ID                uuid.UUID   `json:"id"`
	Name              string      `json:"name"`
	Phone             pgtype.Text `json:"phone"`
	CancellationCount int32       `json:"cancellation_count"`
	CreatedAt         time.Time   `json:"created_at"`
}

type StoreProduct struct {
	ID          uuid.UUID   `json:"id"`
	StoreID     uuid.UUID   `json:"store_id"`
	ProductID   uuid.UUID   `json:"product_id"`
	Name        string      `json:"name"`
	Price       int64       `json:"price"`
	Stock       pgtype.Int4 `json:"stock"`
	SalesCount  int32       `json:"sales_count"`
	IsAvailable bool        `json:"is_available"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Combo struct {
	ID        uuid.UUID `json:"id"`
	StoreID   uuid.UUID `json:"store_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type ComboItem struct {
	ID             uuid.UUID `json:"id"`
	ComboID        uuid.UUID `json:"combo_id"`
	StoreProductID uuid.UUID `json:"store_product_id"`
	Quantity       int32     `json:"quantity"`
	SortOrder      int32     `json:"sort_order"`
}

type Order struct {
	ID              uuid.UUID   `json:"id"`
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
	Total           int64       `json:"total"`
	Quantity        int32       `json:"quantity"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID             uuid.UUID   `json:"id"`
	OrderID        uuid.UUID   `json:"order_id"`
	StoreProductID pgtype.UUID `json:"store_product_id"`
	ComboID        pgtype.UUID `json:"combo_id"`
	Name           string      `json:"name"`
	UnitPrice      int64       `json:"unit_price"`
	Quantity       int32       `json:"quantity"`
	Notes          pgtype.Text `json:"notes"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

type OrderItemAddon struct {
	ID             uuid.UUID `json:"id"`
	OrderItemID    uuid.UUID `json:"order_item_id"`
	StoreProductID uuid.UUID `json:"store_product_id"`
	Name           string    `json:"name"`
	UnitPrice      int64     `json:"unit_price"`
}

type DiningTable struct {
	ID             uuid.UUID          `json:"id"`
	StoreID        uuid.UUID          `json:"store_id"`
	Number         int32              `json:"number"`
	Label          pgtype.Text        `json:"label"`
	Status         string             `json:"status"`
	CustomerName   pgtype.Text        `json:"customer_name"`
	CurrentOrderID pgtype.UUID        `json:"current_order_id"`
	OpenedAt       pgtype.Timestamptz `json:"opened_at"`
}

type StockMovement struct {
	ID             uuid.UUID   `json:"id"`
	StoreProductID uuid.UUID   `json:"store_product_id"`
	OrderID        pgtype.UUID `json:"order_id"`
	OrderItemID    pgtype.UUID `json:"order_item_id"`
	Kind           string      `json:"kind"`
	Delta          int32       `json:"delta"`
	StockAfter     int32       `json:"stock_after"`
	CreatedAt      time.Time   `json:"created_at"`
}
