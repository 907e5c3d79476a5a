package marketdata

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type connectedMessage struct {
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	Symbols   []string `json:"symbols"`
	Timestamp int64    `json:"timestamp"`
}

// PriceWS fans the normalized price stream out to browser clients. New
// connections get the latest fresh snapshot per symbol before live updates.
type PriceWS struct {
	bus      *Bus
	cache    *SnapshotCache
	origin   string
	upgrader websocket.Upgrader
}

func NewPriceWS(bus *Bus, cache *SnapshotCache, origin string) *PriceWS {
	return &PriceWS{
		bus:    bus,
		cache:  cache,
		origin: origin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	return strings.EqualFold(r.Header.Get("Origin"), origin)
}

func (h *PriceWS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	latest := h.cache.All()
	symbols := make([]string, 0, len(latest))
	for _, snap := range latest {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
		symbols = append(symbols, snap.Symbol)
	}
	if err := conn.WriteJSON(connectedMessage{
		Type:      "connected",
		Message:   "connected to price stream",
		Symbols:   symbols,
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		return
	}

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt.Data); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
