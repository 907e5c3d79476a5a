package positions

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"levtrade/internal/httputil"
	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type openTradeRequest struct {
	Asset      string `json:"asset"`
	Side       string `json:"side"`
	Margin     string `json:"margin"`
	Leverage   int64  `json:"leverage"`
	StopLoss   string `json:"stop_loss"`
	TakeProfit string `json:"take_profit"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request, userID string) {
	var req openTradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	if asset == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "asset is required"})
		return
	}
	margin, err := decimal.NewFromString(req.Margin)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid margin"})
		return
	}
	var stopLoss, takeProfit *decimal.Decimal
	if req.StopLoss != "" {
		v, err := decimal.NewFromString(req.StopLoss)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid stop_loss"})
			return
		}
		stopLoss = &v
	}
	if req.TakeProfit != "" {
		v, err := decimal.NewFromString(req.TakeProfit)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid take_profit"})
			return
		}
		takeProfit = &v
	}
	id, err := h.svc.Open(r.Context(), OpenRequest{
		UserID:     userID,
		Asset:      asset,
		Side:       types.Side(req.Side),
		Margin:     margin,
		Leverage:   req.Leverage,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"order_id": id})
}

type closeTradeRequest struct {
	OrderID string `json:"order_id"`
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request, userID string) {
	var req closeTradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "order_id is required"})
		return
	}
	pnl, err := h.svc.Close(r.Context(), userID, req.OrderID)
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"order_id": req.OrderID, "pnl": pnl.String()})
}

type tradeView struct {
	OrderID          string  `json:"order_id"`
	Asset            string  `json:"asset"`
	Side             string  `json:"side"`
	Margin           string  `json:"margin"`
	Leverage         int64   `json:"leverage"`
	EntryPrice       int64   `json:"entry_price"`
	Decimals         int32   `json:"decimals"`
	StopLoss         *int64  `json:"stop_loss,omitempty"`
	TakeProfit       *int64  `json:"take_profit,omitempty"`
	LiquidationPrice int64   `json:"liquidation_price"`
	ClosePrice       *int64  `json:"close_price,omitempty"`
	PnL              *string `json:"pnl,omitempty"`
	CloseReason      string  `json:"close_reason,omitempty"`
	CreatedAt        string  `json:"created_at"`
	ClosedAt         *string `json:"closed_at,omitempty"`
}

func viewOf(p model.Position) tradeView {
	v := tradeView{
		OrderID:          p.ID,
		Asset:            p.Asset,
		Side:             string(p.Side),
		Margin:           p.Margin.String(),
		Leverage:         p.Leverage,
		EntryPrice:       p.EntryPrice,
		Decimals:         p.Decimals,
		StopLoss:         p.StopLoss,
		TakeProfit:       p.TakeProfit,
		LiquidationPrice: p.LiquidationPrice,
		ClosePrice:       p.ClosePrice,
		CloseReason:      string(p.CloseReason),
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
	if p.PnL != nil {
		s := p.PnL.String()
		v.PnL = &s
	}
	if p.ClosedAt != nil {
		s := p.ClosedAt.Format(time.RFC3339)
		v.ClosedAt = &s
	}
	return v
}

func (h *Handler) ListOpen(w http.ResponseWriter, r *http.Request, userID string) {
	open, err := h.svc.ListOpen(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to list trades"})
		return
	}
	views := make([]tradeView, 0, len(open))
	for _, p := range open {
		views = append(views, viewOf(p))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"trades": views})
}

func (h *Handler) ListClosed(w http.ResponseWriter, r *http.Request, userID string) {
	closed, err := h.svc.ListClosed(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to list trades"})
		return
	}
	views := make([]tradeView, 0, len(closed))
	for _, p := range closed {
		views = append(views, viewOf(p))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"trades": views})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPersistence):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
