package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/order-engine/internal/middleware"
	"github.com/kiwari-pos/order-engine/internal/service"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	AddItems(ctx context.Context, req service.AddItemsRequest) (*service.OrderResult, error)
	GetOrder(ctx context.Context, storeID, orderID uuid.UUID) (*service.OrderResult, error)
	ListQueue(ctx context.Context, storeID uuid.UUID, statuses []string) ([]service.OrderResult, error)
	SetStatus(ctx context.Context, storeID, orderID uuid.UUID, status string) (*service.OrderResult, error)
	SetItemStatus(ctx context.Context, storeID, itemID uuid.UUID, status string) (*service.OrderResult, error)
	SetDiscount(ctx context.Context, storeID, orderID uuid.UUID, discount *int64) (*service.OrderResult, error)
	CancelOrder(ctx context.Context, storeID, orderID uuid.UUID, reason string) (*service.OrderResult, error)
	CancelOrderByCustomer(ctx context.Context, storeID, orderID, customerID uuid.UUID, reason string) (*service.OrderResult, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
	log *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, log *zap.Logger) *OrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHandler{svc: svc, log: log}
}

// RegisterRoutes registers staff order endpoints.
// Expected to be mounted inside a store-scoped subrouter: /stores/{sid}
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/items", h.AddItems)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Patch("/{id}/discount", h.UpdateDiscount)
		r.Post("/{id}/cancel", h.Cancel)
	})
	r.Patch("/order-items/{itemId}/status", h.UpdateItemStatus)
}

// RegisterCustomerRoutes registers the endpoints a customer token may call.
// Mounted at /stores/{sid}/customer
func (h *OrderHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/orders/{id}/cancel", h.CustomerCancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerID      string                   `json:"customer_id"`
	TableNumber     *int32                   `json:"table_number"`
	CourierID       string                   `json:"courier_id"`
	DeliveryAddress string                   `json:"delivery_address"`
	PaymentMethod   string                   `json:"payment_method"`
	ChangeDue       *string                  `json:"change_due"`
	Notes           string                   `json:"notes"`
	IsPickup        bool                     `json:"is_pickup"`
	SendToKitchen   *bool                    `json:"send_to_kitchen"`
	Discount        *string                  `json:"discount"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string   `json:"product_id"`
	ComboID   string   `json:"combo_id"`
	Quantity  int32    `json:"quantity"`
	Notes     string   `json:"notes"`
	AddonIDs  []string `json:"addon_ids"`
}

type addItemsRequest struct {
	Items []createOrderItemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateDiscountRequest struct {
	Discount *string `json:"discount"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	StoreID         uuid.UUID           `json:"store_id"`
	CustomerID      *uuid.UUID          `json:"customer_id"`
	TableNumber     *int32              `json:"table_number"`
	CourierID       *uuid.UUID          `json:"courier_id"`
	DeliveryAddress *string             `json:"delivery_address"`
	PaymentMethod   *string             `json:"payment_method"`
	ChangeDue       *string             `json:"change_due"`
	Notes           *string             `json:"notes"`
	IsPickup        bool                `json:"is_pickup"`
	Status          string              `json:"status"`
	DeliveryFee     string              `json:"delivery_fee"`
	Discount        *string             `json:"discount"`
	Total           string              `json:"total"`
	Quantity        int32               `json:"quantity"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []orderItemResponse `json:"items"`
	Table           *tableResponse      `json:"table,omitempty"`
}

type orderItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	StoreProductID *uuid.UUID      `json:"store_product_id"`
	ComboID        *uuid.UUID      `json:"combo_id"`
	Name           string          `json:"name"`
	UnitPrice      string          `json:"unit_price"`
	Quantity       int32           `json:"quantity"`
	Notes          *string         `json:"notes"`
	Status         string          `json:"status"`
	Addons         []addonResponse `json:"addons"`
}

type addonResponse struct {
	ID             uuid.UUID `json:"id"`
	StoreProductID uuid.UUID `json:"store_product_id"`
	Name           string    `json:"name"`
	UnitPrice      string    `json:"unit_price"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
}

// --- Handlers ---

// Create handles POST /stores/{sid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	storeID, err := storeIDParam(r)
	if err != nil {
		badRequest(w, "invalid store ID")
		return
	}

	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if msg := validateItems(req.Items); msg != "" {
		badRequest(w, msg)
		return
	}

	changeDue, err := parseOptionalMoney(req.ChangeDue)
	if err != nil {
		badRequest(w, "change_due: "+err.Error())
		return
	}
	discount, err := parseOptionalMoney(req.Discount)
	if err != nil {
		badRequest(w, "discount: "+err.Error())
		return
	}

	svcReq := service.CreateOrderRequest{
		StoreID:         storeID,
		CustomerID:      req.CustomerID,
		CourierID:       req.CourierID,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		ChangeDue:       changeDue,
		Notes:           req.Notes,
		IsPickup:        req.IsPickup,
		SendToKitchen:   req.SendToKitchen,
		Discount:        discount,
		Items:           toServiceItems(req.Items),
	}
	if req.TableNumber != nil {
		if *req.TableNumber <= 0 {
			badRequest(w, "table_number must be > 0")
			return
		}
		svcReq.TableNumber = *req.TableNumber
	}

	result, err := h.svc.CreateOrder(r.Context(), svcReq)
	if err != nil {
		writeError(w, h.log.With(zap.String("store_id", storeID.String())), "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// List handles GET /stores/{sid}/orders?status=A,B.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID, err := storeIDParam(r)
	if err != nil {
		badRequest(w, "invalid store ID")
		return
	}

	var statuses []string
	if s := r.URL.Query().Get("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				statuses = append(statuses, strings.ToUpper(part))
			}
		}
	}

	results, err := h.svc.ListQueue(r.Context(), storeID, statuses)
	if err != nil {
		writeError(w, h.log.With(zap.String("store_id", storeID.String())), "list orders", err)
		return
	}

	resp := make([]orderResponse, len(results))
	for i := range results {
		resp[i] = toOrderResponse(&results[i])
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp})
}

// Get handles GET /stores/{sid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	storeID, orderID, ok := orderPath(w, r)
	if !ok {
		return
	}

	result, err := h.svc.GetOrder(r.Context(), storeID, orderID)
	if err != nil {
		writeError(w, h.orderLog(storeID, orderID), "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// AddItems handles POST /stores/{sid}/orders/{id}/items.
func (h *OrderHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	storeID, orderID, ok := orderPath(w, r)
	if !ok {
		return
	}

	var req addItemsRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if msg := validateItems(req.Items); msg != "" {
		badRequest(w, msg)
		return
	}

	result, err := h.svc.AddItems(r.Context(), service.AddItemsRequest{
		StoreID: storeID,
		OrderID: orderID,
		Items:   toServiceItems(req.Items),
	})
	if err != nil {
		writeError(w, h.orderLog(storeID, orderID), "add items", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// UpdateStatus handles PATCH /stores/{sid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	storeID, orderID, ok := orderPath(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Status == "" {
		badRequest(w, "status is required")
		return
	}

	result, err := h.svc.SetStatus(r.Context(), storeID, orderID, strings.ToUpper(req.Status))
	if err != nil {
		writeError(w, h.orderLog(storeID, orderID), "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// UpdateDiscount handles PATCH /stores/{sid}/orders/{id}/discount.
// A null discount clears it.
func (h *OrderHandler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	storeID, orderID, ok := orderPath(w, r)
	if !ok {
		return
	}

	var req updateDiscountRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	discount, err := parseOptionalMoney(req.Discount)
	if err != nil {
		badRequest(w, "discount: "+err.Error())
		return
	}

	result, err := h.svc.SetDiscount(r.Context(), storeID, orderID, discount)
	if err != nil {
		writeError(w, h.orderLog(storeID, orderID), "update discount", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// UpdateItemStatus handles PATCH /stores/{sid}/order-items/{itemId}/status.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	storeID, err := storeIDParam(r)
	if err != nil {
		badRequest(w, "invalid store ID")
		return
	}
	itemID, err := uuidParam(r, "itemId")
	if err != nil {
		badRequest(w, "invalid order item ID")
		return
	}

	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Status == "" {
		badRequest(w, "status is required")
		return
	}

	result, err := h.svc.SetItemStatus(r.Context(), storeID, itemID, strings.ToUpper(req.Status))
	if err != nil {
		writeError(w, h.log.With(zap.String("store_id", storeID.String()), zap.String("order_item_id", itemID.String())), "update item status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// Cancel handles POST /stores/{sid}/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	storeID, orderID, ok := orderPath(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	result, err := h.svc.CancelOrder(r.Context(), storeID, orderID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, h.orderLog(storeID, orderID), "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// CustomerCancel handles POST /stores/{sid}/customer/orders/{id}/cancel.
func (h *OrderHandler) CustomerCancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || !claims.IsCustomer() {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "customer authentication required"})
		return
	}

	storeID, orderID, ok := orderPath(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	result, err := h.svc.CancelOrderByCustomer(r.Context(), storeID, orderID, claims.CustomerID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, h.orderLog(storeID, orderID).With(zap.String("customer_id", claims.CustomerID.String())), "customer cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// --- Helpers ---

// orderPath parses {sid} and {id}, replying 400 when either is malformed.
func orderPath(w http.ResponseWriter, r *http.Request) (storeID, orderID uuid.UUID, ok bool) {
	storeID, err := storeIDParam(r)
	if err != nil {
		badRequest(w, "invalid store ID")
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err = uuidParam(r, "id")
	if err != nil {
		badRequest(w, "invalid order ID")
		return uuid.Nil, uuid.Nil, false
	}
	return storeID, orderID, true
}

func (h *OrderHandler) orderLog(storeID, orderID uuid.UUID) *zap.Logger {
	return h.log.With(zap.String("store_id", storeID.String()), zap.String("order_id", orderID.String()))
}

func toServiceItems(items []createOrderItemRequest) []service.OrderItemRequest {
	out := make([]service.OrderItemRequest, len(items))
	for i, item := range items {
		out[i] = service.OrderItemRequest{
			ProductID: item.ProductID,
			ComboID:   item.ComboID,
			Quantity:  item.Quantity,
			Notes:     item.Notes,
			AddonIDs:  item.AddonIDs,
		}
	}
	return out
}

func toOrderResponse(result *service.OrderResult) orderResponse {
	o := result.Order
	resp := orderResponse{
		ID:              o.ID,
		StoreID:         o.StoreID,
		CustomerID:      uuidPtr(o.CustomerID),
		TableNumber:     int4Ptr(o.TableNumber),
		CourierID:       uuidPtr(o.CourierID),
		DeliveryAddress: textPtr(o.DeliveryAddress),
		PaymentMethod:   textPtr(o.PaymentMethod),
		ChangeDue:       moneyPtr(o.ChangeDue),
		Notes:           textPtr(o.Notes),
		IsPickup:        o.IsPickup,
		Status:          o.Status,
		DeliveryFee:     formatMoney(o.DeliveryFee),
		Discount:        moneyPtr(o.Discount),
		Total:           formatMoney(o.Total),
		Quantity:        o.Quantity,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           make([]orderItemResponse, len(result.Items)),
	}
	for i, ir := range result.Items {
		resp.Items[i] = toOrderItemResponse(ir)
	}
	if result.Table != nil {
		t := toTableResponse(*result.Table)
		resp.Table = &t
	}
	return resp
}

func toOrderItemResponse(ir service.OrderItemResult) orderItemResponse {
	item := ir.Item
	resp := orderItemResponse{
		ID:             item.ID,
		StoreProductID: uuidPtr(item.StoreProductID),
		ComboID:        uuidPtr(item.ComboID),
		Name:           item.Name,
		UnitPrice:      formatMoney(item.UnitPrice),
		Quantity:       item.Quantity,
		Notes:          textPtr(item.Notes),
		Status:         item.Status,
		Addons:         make([]addonResponse, len(ir.Addons)),
	}
	for i, a := range ir.Addons {
		resp.Addons[i] = addonResponse{
			ID:             a.ID,
			StoreProductID: a.StoreProductID,
			Name:           a.Name,
			UnitPrice:      formatMoney(a.UnitPrice),
		}
	}
	return resp
}

// validateItems rejects obviously malformed lines before touching the store.
func validateItems(items []createOrderItemRequest) string {
	if len(items) == 0 {
		return "items are required"
	}
	for i, item := range items {
		if item.ProductID == "" && item.ComboID == "" {
			return formatItemError(i, "product_id or combo_id is required")
		}
		if item.Quantity <= 0 {
			return formatItemError(i, "quantity must be > 0")
		}
	}
	return ""
}

func formatItemError(idx int, msg string) string {
	return fmt.Sprintf("items[%d]: %s", idx, msg)
}
