package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/service"
	"go.uber.org/zap"
)

// TableServicer defines the service methods needed by table handlers.
type TableServicer interface {
	ListTables(ctx context.Context, storeID uuid.UUID) ([]database.DiningTable, error)
	ConfigureTables(ctx context.Context, storeID uuid.UUID, count int32) ([]database.DiningTable, error)
	OpenTable(ctx context.Context, storeID uuid.UUID, number int32, customerName string) (*service.OrderResult, error)
	ReleaseTable(ctx context.Context, storeID uuid.UUID, number int32) (database.DiningTable, error)
	RenameTable(ctx context.Context, storeID uuid.UUID, number int32, label string) (database.DiningTable, error)
	SetTableStatus(ctx context.Context, storeID uuid.UUID, number int32, status string) (database.DiningTable, error)
}

// TableHandler handles dining table endpoints.
type TableHandler struct {
	svc TableServicer
	log *zap.Logger
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(svc TableServicer, log *zap.Logger) *TableHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TableHandler{svc: svc, log: log}
}

// RegisterRoutes registers table endpoints under /stores/{sid}/tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/", h.Configure)
	r.Post("/{number}/open", h.Open)
	r.Post("/{number}/release", h.Release)
	r.Patch("/{number}", h.Rename)
	r.Patch("/{number}/status", h.UpdateStatus)
}

type configureTablesRequest struct {
	Count *int32 `json:"count"`
}

type openTableRequest struct {
	CustomerName string `json:"customer_name"`
}

type renameTableRequest struct {
	Label string `json:"label"`
}

type tableListResponse struct {
	Tables []tableResponse `json:"tables"`
}

// List handles GET /stores/{sid}/tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID, err := storeIDParam(r)
	if err != nil {
		badRequest(w, "invalid store ID")
		return
	}

	tables, err := h.svc.ListTables(r.Context(), storeID)
	if err != nil {
		writeError(w, h.log.With(zap.String("store_id", storeID.String())), "list tables", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableListResponse(tables))
}

// Configure handles PUT /stores/{sid}/tables: the store ends up with tables
// numbered 1..count.
func (h *TableHandler) Configure(w http.ResponseWriter, r *http.Request) {
	storeID, err := storeIDParam(r)
	if err != nil {
		badRequest(w, "invalid store ID")
		return
	}

	var req configureTablesRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Count == nil {
		badRequest(w, "count is required")
		return
	}

	tables, err := h.svc.ConfigureTables(r.Context(), storeID, *req.Count)
	if err != nil {
		writeError(w, h.log.With(zap.String("store_id", storeID.String())), "configure tables", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableListResponse(tables))
}

// Open handles POST /stores/{sid}/tables/{number}/open.
func (h *TableHandler) Open(w http.ResponseWriter, r *http.Request) {
	storeID, number, ok := tablePath(w, r)
	if !ok {
		return
	}

	var req openTableRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	result, err := h.svc.OpenTable(r.Context(), storeID, number, strings.TrimSpace(req.CustomerName))
	if err != nil {
		writeError(w, h.tableLog(storeID, number), "open table", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// Release handles POST /stores/{sid}/tables/{number}/release.
func (h *TableHandler) Release(w http.ResponseWriter, r *http.Request) {
	storeID, number, ok := tablePath(w, r)
	if !ok {
		return
	}

	table, err := h.svc.ReleaseTable(r.Context(), storeID, number)
	if err != nil {
		writeError(w, h.tableLog(storeID, number), "release table", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Rename handles PATCH /stores/{sid}/tables/{number}.
func (h *TableHandler) Rename(w http.ResponseWriter, r *http.Request) {
	storeID, number, ok := tablePath(w, r)
	if !ok {
		return
	}

	var req renameTableRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	table, err := h.svc.RenameTable(r.Context(), storeID, number, strings.TrimSpace(req.Label))
	if err != nil {
		writeError(w, h.tableLog(storeID, number), "rename table", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// UpdateStatus handles PATCH /stores/{sid}/tables/{number}/status.
func (h *TableHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	storeID, number, ok := tablePath(w, r)
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

	table, err := h.svc.SetTableStatus(r.Context(), storeID, number, strings.ToUpper(req.Status))
	if err != nil {
		writeError(w, h.tableLog(storeID, number), "update table status", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

func tablePath(w http.ResponseWriter, r *http.Request) (uuid.UUID, int32, bool) {
	storeID, err := storeIDParam(r)
	if err != nil {
		badRequest(w, "invalid store ID")
		return uuid.Nil, 0, false
	}
	number, err := tableNumberParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return uuid.Nil, 0, false
	}
	return storeID, number, true
}

func (h *TableHandler) tableLog(storeID uuid.UUID, number int32) *zap.Logger {
	return h.log.With(zap.String("store_id", storeID.String()), zap.Int32("table_number", number))
}

func toTableListResponse(tables []database.DiningTable) tableListResponse {
	resp := tableListResponse{Tables: make([]tableResponse, len(tables))}
	for i, t := range tables {
		resp.Tables[i] = toTableResponse(t)
	}
	return resp
}
