package httpserver

import (
	"net/http"

	"levtrade/internal/auth"
	"levtrade/internal/balance"
	"levtrade/internal/httputil"
	"levtrade/internal/positions"
	"levtrade/internal/spot"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler      *auth.Handler
	BalanceHandler   *balance.Handler
	SpotHandler      *spot.Handler
	PositionsHandler *positions.Handler
	AuthService      *auth.Service
	PriceWSHandler   http.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(SecurityHeaders)
	r.Use(RateLimit)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/login", d.AuthHandler.Login)
		})
		r.Get("/price/ws", d.PriceWSHandler.ServeHTTP)
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Get("/balances", withUser(d.BalanceHandler.Balances))
			r.Post("/spot/trade", withUser(d.SpotHandler.Trade))
			r.Get("/spot/orders", withUser(d.SpotHandler.ListOrders))
			r.Post("/trades/open", withUser(d.PositionsHandler.Open))
			r.Get("/trades/open", withUser(d.PositionsHandler.ListOpen))
			r.Post("/trades/close", withUser(d.PositionsHandler.Close))
			r.Get("/trades/closed", withUser(d.PositionsHandler.ListClosed))
		})
	})
	return r
}

func withUser(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		h(w, r, userID)
	}
}
