package spot

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"levtrade/internal/httputil"
	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type tradeRequest struct {
	Asset string `json:"asset"`
	Side  string `json:"side"`
	Qty   string `json:"qty"`
}

func (h *Handler) Trade(w http.ResponseWriter, r *http.Request, userID string) {
	var req tradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	if asset == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "asset is required"})
		return
	}
	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid qty"})
		return
	}
	order, err := h.svc.Trade(r.Context(), TradeRequest{
		UserID: userID,
		Asset:  asset,
		Side:   types.Side(req.Side),
		Qty:    qty,
	})
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrPriceUnavailable):
			status = http.StatusServiceUnavailable
		case errors.Is(err, ErrPersistence):
			status = http.StatusInternalServerError
		}
		httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	balances := make(map[string]string)
	for asset, b := range h.svc.ledger.Get(userID).Assets {
		balances[asset] = b.Qty.StringFixed(b.Decimals)
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"order_id":     order.ID,
		"asset":        order.Asset,
		"side":         string(order.Side),
		"qty":          order.Qty.String(),
		"quote_amount": order.QuoteAmount.String(),
		"price":        order.Price,
		"decimals":     order.Decimals,
		"balances":     balances,
		"created_at":   order.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, userID string) {
	orders, err := h.svc.ListOrders(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to list orders"})
		return
	}
	views := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		views = append(views, map[string]any{
			"order_id":     o.ID,
			"asset":        o.Asset,
			"side":         string(o.Side),
			"qty":          o.Qty.String(),
			"quote_amount": o.QuoteAmount.String(),
			"price":        o.Price,
			"decimals":     o.Decimals,
			"created_at":   o.CreatedAt.Format(time.RFC3339),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"orders": views})
}
