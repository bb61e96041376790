package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/time-sale/internal/core/domain"
	"github.com/rl1809/time-sale/internal/port"
)

// userIDHeader carries the authenticated user id, injected by the edge
// infrastructure. The id is threaded to the core as an explicit parameter.
const userIDHeader = "X-USER-ID"

type SaleService interface {
	CreateSale(ctx context.Context, productID string, totalQuantity int, discountPrice int64, startAt, endAt time.Time) (*domain.Sale, error)
	GetSale(ctx context.Context, saleID string) (*domain.Sale, error)
	ListOngoing(ctx context.Context, page, size int) ([]*domain.Sale, error)
}

type Purchaser interface {
	Purchase(ctx context.Context, saleID string, userID int64, quantity int) (*domain.Sale, *domain.Order, error)
}

type HTTPHandler struct {
	sales     SaleService
	purchaser Purchaser
	logger    *zap.Logger
}

func NewHTTPHandler(sales SaleService, purchaser Purchaser, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{sales: sales, purchaser: purchaser, logger: logger}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sales", h.CreateSale)
	mux.HandleFunc("GET /api/v1/sales", h.ListOngoingSales)
	mux.HandleFunc("GET /api/v1/sales/{saleID}", h.GetSale)
	mux.HandleFunc("POST /api/v1/sales/{saleID}/purchase", h.Purchase)
	mux.HandleFunc("GET /health", h.HealthCheck)
}

type createSaleRequest struct {
	ProductID     string    `json:"product_id"`
	TotalQuantity int       `json:"total_quantity"`
	DiscountPrice int64     `json:"discount_price"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
}

type saleResponse struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	TotalQuantity     int       `json:"total_quantity"`
	RemainingQuantity int       `json:"remaining_quantity"`
	DiscountPrice     int64     `json:"discount_price"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type orderResponse struct {
	ID            string    `json:"id"`
	SaleID        string    `json:"sale_id"`
	UserID        int64     `json:"user_id"`
	Quantity      int       `json:"quantity"`
	DiscountPrice int64     `json:"discount_price"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type purchaseRequest struct {
	Quantity int `json:"quantity"`
}

type purchaseResponse struct {
	Sale  saleResponse  `json:"sale"`
	Order orderResponse `json:"order"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "product_id is required"})
		return
	}

	sale, err := h.sales.CreateSale(r.Context(), req.ProductID, req.TotalQuantity, req.DiscountPrice, req.StartAt, req.EndAt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleResponse(sale))
}

func (h *HTTPHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.sales.GetSale(r.Context(), r.PathValue("saleID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *HTTPHandler) ListOngoingSales(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", 20)

	sales, err := h.sales.ListOngoing(r.Context(), page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]saleResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, toSaleResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sale, order, err := h.purchaser.Purchase(r.Context(), r.PathValue("saleID"), userID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{
		Sale: toSaleResponse(sale),
		Order: orderResponse{
			ID:            order.ID,
			SaleID:        order.SaleID,
			UserID:        order.UserID,
			Quantity:      order.Quantity,
			DiscountPrice: order.DiscountPrice,
			Status:        string(order.Status),
			CreatedAt:     order.CreatedAt,
		},
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSaleNotFound), errors.Is(err, port.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSaleNotActive):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInsufficientInventory):
		writeJSON(w, http.StatusGone, errorResponse{Error: err.Error()})
	case errors.Is(err, port.ErrLockUnavailable):
		// Retryable: distinct from validation failures so clients back
		// off instead of giving up.
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func userIDFromRequest(r *http.Request) (int64, error) {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		return 0, errors.New("X-USER-ID header is required")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid X-USER-ID format")
	}
	return userID, nil
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func toSaleResponse(s *domain.Sale) saleResponse {
	return saleResponse{
		ID:                s.ID,
		ProductID:         s.ProductID,
		TotalQuantity:     s.TotalQuantity,
		RemainingQuantity: s.RemainingQuantity,
		DiscountPrice:     s.DiscountPrice,
		StartAt:           s.StartAt,
		EndAt:             s.EndAt,
		Status:            string(s.Status),
		CreatedAt:         s.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
