package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr        string
	DBDSN           string
	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	WebSocketOrigin string
	FeedURL         string
	FeedSymbols     []string
	Spread          decimal.Decimal
	SnapshotTTL     time.Duration
	StartingBalance decimal.Decimal
	QuoteSymbol     string
	QuoteDecimals   int32
	Development     bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	// DB_DSN is optional: with no DSN the server keeps durable records in
	// memory, which is enough for local runs against a live feed.
	c.DBDSN = os.Getenv("DB_DSN")
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		c.JWTTTL = 24 * time.Hour
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, err
		}
		c.JWTTTL = d
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		c.WebSocketOrigin = "*"
	}
	c.FeedURL = os.Getenv("FEED_URL")
	symbols := os.Getenv("FEED_SYMBOLS")
	if symbols == "" {
		symbols = "BTCUSD,ETHUSD,SOLUSD"
	}
	for _, s := range strings.Split(symbols, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			c.FeedSymbols = append(c.FeedSymbols, s)
		}
	}
	spread := os.Getenv("SPREAD")
	if spread == "" {
		spread = "0.01"
	}
	sp, err := decimal.NewFromString(spread)
	if err != nil || sp.IsNegative() || sp.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return c, errors.New("invalid SPREAD: must be a fraction in [0,1)")
	}
	c.Spread = sp
	ttl := os.Getenv("SNAPSHOT_TTL")
	if ttl == "" {
		c.SnapshotTTL = 30 * time.Second
	} else {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return c, err
		}
		c.SnapshotTTL = d
	}
	starting := os.Getenv("STARTING_BALANCE")
	if starting == "" {
		starting = "5000"
	}
	sb, err := decimal.NewFromString(starting)
	if err != nil || sb.IsNegative() {
		return c, errors.New("invalid STARTING_BALANCE")
	}
	c.StartingBalance = sb
	c.QuoteSymbol = os.Getenv("QUOTE_SYMBOL")
	if c.QuoteSymbol == "" {
		c.QuoteSymbol = "USD"
	}
	quoteDecimals := os.Getenv("QUOTE_DECIMALS")
	if quoteDecimals == "" {
		c.QuoteDecimals = 2
	} else {
		n, err := strconv.ParseInt(quoteDecimals, 10, 32)
		if err != nil || n < 0 || n > 18 {
			return c, errors.New("invalid QUOTE_DECIMALS")
		}
		c.QuoteDecimals = int32(n)
	}
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("APP_MODE")))
	if mode == "" {
		mode = "development"
	}
	if mode != "development" && mode != "production" {
		return c, errors.New("invalid APP_MODE: use development or production")
	}
	c.Development = mode == "development"
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}
