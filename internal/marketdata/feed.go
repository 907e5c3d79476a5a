package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"levtrade/internal/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const (
	feedPingInterval   = 30 * time.Second
	feedReconnectDelay = 2 * time.Second
)

type feedTrade struct {
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Qty    string `json:"q"`
	Ts     int64  `json:"T"`
}

type feedEnvelope struct {
	Data *feedTrade `json:"data"`
}

// Feed consumes the upstream exchange trade stream over websocket and hands
// every print to the normalizer. It reconnects forever until the context is
// cancelled.
type Feed struct {
	baseURL    string
	symbols    []string
	normalizer *Normalizer
}

func NewFeed(baseURL string, symbols []string, normalizer *Normalizer) *Feed {
	return &Feed{baseURL: baseURL, symbols: symbols, normalizer: normalizer}
}

func (f *Feed) streamURL() string {
	streams := make([]string, 0, len(f.symbols))
	for _, s := range f.symbols {
		streams = append(streams, strings.ToLower(s)+"@trade")
	}
	return fmt.Sprintf("%s/stream?streams=%s", f.baseURL, strings.Join(streams, "/"))
}

func (f *Feed) Run(ctx context.Context) {
	url := f.streamURL()
	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.consume(ctx, url); err != nil {
			logger.Error("feed disconnected: %v, retrying", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(feedReconnectDelay):
		}
	}
}

func (f *Feed) consume(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("feed connected: %s", strings.Join(f.symbols, ", "))

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(feedPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()
	defer func() { <-done }()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		f.handleMessage(raw)
	}
}

func (f *Feed) handleMessage(raw []byte) {
	var env feedEnvelope
	trade := &feedTrade{}
	if err := sonic.Unmarshal(raw, &env); err == nil && env.Data != nil {
		trade = env.Data
	} else if err := sonic.Unmarshal(raw, trade); err != nil {
		logger.Warn("feed: dropping undecodable message: %v", err)
		return
	}
	if trade.Symbol == "" {
		// Subscription acks and other control frames carry no symbol.
		return
	}
	f.normalizer.OnTrade(TradePrint{
		Symbol: strings.ToUpper(trade.Symbol),
		Price:  trade.Price,
		Qty:    trade.Qty,
		Ts:     trade.Ts,
	})
}
