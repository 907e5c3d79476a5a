package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"levtrade/internal/auth"
	"levtrade/internal/balance"
	"levtrade/internal/config"
	"levtrade/internal/db"
	"levtrade/internal/httpserver"
	"levtrade/internal/logger"
	"levtrade/internal/marketdata"
	"levtrade/internal/positions"
	"levtrade/internal/spot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(true)
		logger.Fatal("config: %v", err)
	}
	logger.Init(cfg.Development)
	logger.SetServiceName("api")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var positionStore positions.Store
	var spotStore spot.Store
	var userStore auth.UserStore
	if cfg.DBDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			logger.Fatal("db: %v", err)
		}
		defer pool.Close()
		positionStore = positions.NewPostgresStore(pool)
		spotStore = spot.NewPostgresStore(pool)
		userStore = auth.NewPostgresUserStore(pool)
	} else {
		logger.Warn("DB_DSN not set, durable records are kept in memory")
		positionStore = positions.NewMemoryStore()
		spotStore = spot.NewMemoryStore()
		userStore = auth.NewMemoryUserStore()
	}

	bus := marketdata.NewBus()
	cache := marketdata.NewSnapshotCache(cfg.SnapshotTTL)
	normalizer := marketdata.NewNormalizer(bus, cache, cfg.Spread)

	ledger := balance.NewService(cfg.QuoteSymbol, cfg.QuoteDecimals, cfg.StartingBalance)
	live := positions.NewLiveBook()
	positionSvc := positions.NewService(ledger, cache, positionStore, live)
	spotSvc := spot.NewService(ledger, cache, spotStore)
	authSvc := auth.NewService(userStore, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)

	if err := positionSvc.Rehydrate(ctx); err != nil {
		logger.Fatal("rehydrate: %v", err)
	}

	watcher := positions.NewWatcher(positionSvc, bus, live)
	go watcher.Run(ctx)

	if cfg.FeedURL != "" {
		feed := marketdata.NewFeed(cfg.FeedURL, cfg.FeedSymbols, normalizer)
		go feed.Run(ctx)
	} else {
		logger.Warn("FEED_URL not set, no live prices will be published")
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:      auth.NewHandler(authSvc),
		BalanceHandler:   balance.NewHandler(ledger),
		SpotHandler:      spot.NewHandler(spotSvc),
		PositionsHandler: positions.NewHandler(positionSvc),
		AuthService:      authSvc,
		PriceWSHandler:   marketdata.NewPriceWS(bus, cache, cfg.WebSocketOrigin),
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	logger.Info("server listening on %s", cfg.HTTPAddr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server: %v", err)
	}
}
