package balance

import (
	"net/http"
	"time"

	"levtrade/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type balanceEntry struct {
	Qty      string `json:"qty"`
	Decimals int32  `json:"decimals"`
}

type balancesResponse struct {
	UserID    string                  `json:"user_id"`
	Balances  map[string]balanceEntry `json:"balances"`
	Timestamp int64                   `json:"ts"`
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request, userID string) {
	acc := h.svc.Get(userID)
	out := balancesResponse{
		UserID:    userID,
		Balances:  make(map[string]balanceEntry, len(acc.Assets)),
		Timestamp: time.Now().UnixMilli(),
	}
	for asset, b := range acc.Assets {
		out.Balances[asset] = balanceEntry{Qty: b.Qty.StringFixed(b.Decimals), Decimals: b.Decimals}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
