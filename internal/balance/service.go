package balance

import (
	"errors"
	"hash/fnv"
	"sync"

	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must not be negative")
)

const shardCount = 32

// defaultAssetDecimals is the quantity scale for non-quote assets.
const defaultAssetDecimals int32 = 8

type AssetBalance struct {
	Qty      decimal.Decimal `json:"qty"`
	Decimals int32           `json:"decimals"`
}

type Account struct {
	UserID string                  `json:"user_id"`
	Assets map[string]AssetBalance `json:"assets"`
}

type shard struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

// Service is the in-memory per-user ledger. Accounts are seeded lazily with
// the starting quote balance and live for the process lifetime. All
// operations on one user are serialized by the user's shard lock, so a
// check-then-mutate sequence is never interleaved.
type Service struct {
	quoteSymbol   string
	quoteDecimals int32
	starting      decimal.Decimal
	shards        [shardCount]*shard
}

func NewService(quoteSymbol string, quoteDecimals int32, startingBalance decimal.Decimal) *Service {
	s := &Service{
		quoteSymbol:   quoteSymbol,
		quoteDecimals: quoteDecimals,
		starting:      startingBalance.Round(quoteDecimals),
	}
	for i := range s.shards {
		s.shards[i] = &shard{accounts: make(map[string]*Account)}
	}
	return s
}

func (s *Service) QuoteSymbol() string {
	return s.quoteSymbol
}

func (s *Service) QuoteDecimals() int32 {
	return s.quoteDecimals
}

// AssetDecimals is the quantity scale amounts of the asset are rounded to.
func (s *Service) AssetDecimals(asset string) int32 {
	return s.assetDecimals(asset)
}

func (s *Service) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[h.Sum32()%shardCount]
}

// account must be called with the shard lock held.
func (s *Service) account(sh *shard, userID string) *Account {
	acc, ok := sh.accounts[userID]
	if !ok {
		acc = &Account{
			UserID: userID,
			Assets: map[string]AssetBalance{
				s.quoteSymbol: {Qty: s.starting, Decimals: s.quoteDecimals},
			},
		}
		sh.accounts[userID] = acc
	}
	return acc
}

func (s *Service) assetDecimals(asset string) int32 {
	if asset == s.quoteSymbol {
		return s.quoteDecimals
	}
	return defaultAssetDecimals
}

// entry must be called with the shard lock held; it creates a zero balance
// on first touch so the asset's decimals stay fixed afterwards.
func (s *Service) entry(acc *Account, asset string) AssetBalance {
	b, ok := acc.Assets[asset]
	if !ok {
		b = AssetBalance{Qty: decimal.Zero, Decimals: s.assetDecimals(asset)}
		acc.Assets[asset] = b
	}
	return b
}

// Get returns a copy of the user's account, seeding it on first access.
func (s *Service) Get(userID string) Account {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	acc := s.account(sh, userID)
	out := Account{UserID: acc.UserID, Assets: make(map[string]AssetBalance, len(acc.Assets))}
	for k, v := range acc.Assets {
		out.Assets[k] = v
	}
	return out
}

func (s *Service) Credit(userID, asset string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	acc := s.account(sh, userID)
	b := s.entry(acc, asset)
	b.Qty = b.Qty.Add(amount.Round(b.Decimals))
	acc.Assets[asset] = b
	return nil
}

func (s *Service) Debit(userID, asset string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	acc := s.account(sh, userID)
	b := s.entry(acc, asset)
	next := b.Qty.Sub(amount.Round(b.Decimals))
	if next.IsNegative() {
		return ErrInsufficientBalance
	}
	b.Qty = next
	acc.Assets[asset] = b
	return nil
}

// ExecuteTrade moves quote against asset in one atomic step: a buy debits
// quote and credits the asset, a sell does the reverse. Either both legs
// apply or neither does.
func (s *Service) ExecuteTrade(userID, asset string, side types.Side, assetQty, quoteAmount decimal.Decimal) error {
	if assetQty.IsNegative() || quoteAmount.IsNegative() {
		return ErrInvalidAmount
	}
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	acc := s.account(sh, userID)
	quote := s.entry(acc, s.quoteSymbol)
	base := s.entry(acc, asset)
	qty := assetQty.Round(base.Decimals)
	amount := quoteAmount.Round(quote.Decimals)
	if side == types.SideBuy {
		nextQuote := quote.Qty.Sub(amount)
		if nextQuote.IsNegative() {
			return ErrInsufficientBalance
		}
		quote.Qty = nextQuote
		base.Qty = base.Qty.Add(qty)
	} else {
		nextBase := base.Qty.Sub(qty)
		if nextBase.IsNegative() {
			return ErrInsufficientBalance
		}
		base.Qty = nextBase
		quote.Qty = quote.Qty.Add(amount)
	}
	acc.Assets[s.quoteSymbol] = quote
	acc.Assets[asset] = base
	return nil
}
