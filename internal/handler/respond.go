package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/logger"
	"github.com/kiwari-pos/order-engine/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// errorResponse is the body of every non-2xx reply. Insufficient stock
// rejections also name the product and the quantities involved.
type errorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Product  string `json:"product,omitempty"`
	Stock    *int32 `json:"stock,omitempty"`
	Required *int32 `json:"required,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Error("encode JSON response", zap.Error(err))
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: string(service.KindInvalidRequest)})
}

// statusForKind maps a domain error kind to its HTTP status.
func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidRequest:
		return http.StatusBadRequest
	case service.KindInsufficientStock, service.KindProductUnavailable, service.KindStoreClosed:
		return http.StatusUnprocessableEntity
	case service.KindOrderClosed, service.KindAlreadyCancelled, service.KindInvalidTransition, service.KindTableNotFree:
		return http.StatusConflict
	case service.KindCancellationNotAllowed:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError replies with the domain error's message, or a generic 500 for
// anything unexpected.
func writeError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	de, ok := service.AsDomainError(err)
	if !ok {
		log.Error(op, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	status := statusForKind(de.Kind)
	log.Info(op+" rejected", zap.String("kind", string(de.Kind)), zap.String("reason", de.Message))

	resp := errorResponse{Error: de.Error(), Code: string(de.Kind)}
	if de.Kind == service.KindInsufficientStock {
		stock, required := de.Stock, de.Required
		resp.Product = de.Product
		resp.Stock = &stock
		resp.Required = &required
	}
	writeJSON(w, status, resp)
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// --- Path parameters ---

func storeIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "sid"))
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func tableNumberParam(r *http.Request) (int32, error) {
	n, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 32)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid table number")
	}
	return int32(n), nil
}

// --- Money ---

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// parseMoney converts a decimal amount such as "12.50" into minor units.
func parseMoney(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q must not be negative", s)
	}
	minor := d.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than 2 decimal places", s)
	}
	if minor.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return minor.IntPart(), nil
}

func parseOptionalMoney(s *string) (*int64, error) {
	if s == nil {
		return nil, nil
	}
	v, err := parseMoney(*s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// formatMoney renders minor units as a fixed two-decimal string.
func formatMoney(v int64) string {
	return decimal.New(v, -2).StringFixed(2)
}

// --- Nullable column helpers ---

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func int4Ptr(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}

func moneyPtr(v pgtype.Int8) *string {
	if !v.Valid {
		return nil
	}
	s := formatMoney(v.Int64)
	return &s
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// --- Tables ---

type tableResponse struct {
	ID             uuid.UUID  `json:"id"`
	Number         int32      `json:"number"`
	Label          *string    `json:"label"`
	Status         string     `json:"status"`
	CustomerName   *string    `json:"customer_name"`
	CurrentOrderID *uuid.UUID `json:"current_order_id"`
	OpenedAt       *time.Time `json:"opened_at"`
}

func toTableResponse(t database.DiningTable) tableResponse {
	return tableResponse{
		ID:             t.ID,
		Number:         t.Number,
		Label:          textPtr(t.Label),
		Status:         t.Status,
		CustomerName:   textPtr(t.CustomerName),
		CurrentOrderID: uuidPtr(t.CurrentOrderID),
		OpenedAt:       timePtr(t.OpenedAt),
	}
}
