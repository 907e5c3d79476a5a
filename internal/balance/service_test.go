package balance

import (
	"sync"
	"testing"

	"levtrade/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService("USD", 2, decimal.NewFromInt(5000))
}

func usd(s *Service, userID string) decimal.Decimal {
	return s.Get(userID).Assets["USD"].Qty
}

func TestSeedOnFirstAccess(t *testing.T) {
	s := newTestService()
	acc := s.Get("u1")
	require.Equal(t, "u1", acc.UserID)
	require.True(t, acc.Assets["USD"].Qty.Equal(decimal.NewFromInt(5000)))
	require.Equal(t, int32(2), acc.Assets["USD"].Decimals)
}

func TestCreditDebit(t *testing.T) {
	s := newTestService()
	require.NoError(t, s.Credit("u1", "USD", decimal.NewFromInt(100)))
	require.True(t, usd(s, "u1").Equal(decimal.NewFromInt(5100)))

	require.NoError(t, s.Debit("u1", "USD", decimal.NewFromInt(5100)))
	require.True(t, usd(s, "u1").IsZero())
}

func TestDebitNeverGoesNegative(t *testing.T) {
	s := newTestService()
	err := s.Debit("u1", "USD", decimal.NewFromInt(5001))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.True(t, usd(s, "u1").Equal(decimal.NewFromInt(5000)))
}

func TestNegativeAmountsRejected(t *testing.T) {
	s := newTestService()
	require.ErrorIs(t, s.Credit("u1", "USD", decimal.NewFromInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, s.Debit("u1", "USD", decimal.NewFromInt(-1)), ErrInvalidAmount)
}

func TestAmountsRoundedToAssetDecimals(t *testing.T) {
	s := newTestService()
	require.NoError(t, s.Credit("u1", "USD", decimal.RequireFromString("0.005")))
	// 0.005 rounds half up to 0.01 at two decimals.
	require.True(t, usd(s, "u1").Equal(decimal.RequireFromString("5000.01")))
}

func TestExecuteTradeBuy(t *testing.T) {
	s := newTestService()
	err := s.ExecuteTrade("u1", "BTC", types.SideBuy, decimal.RequireFromString("0.5"), decimal.NewFromInt(2500))
	require.NoError(t, err)

	acc := s.Get("u1")
	require.True(t, acc.Assets["USD"].Qty.Equal(decimal.NewFromInt(2500)))
	require.True(t, acc.Assets["BTC"].Qty.Equal(decimal.RequireFromString("0.5")))
	require.Equal(t, int32(8), acc.Assets["BTC"].Decimals)
}

func TestExecuteTradeSellWithoutHoldingsFails(t *testing.T) {
	s := newTestService()
	err := s.ExecuteTrade("u1", "BTC", types.SideSell, decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// Neither leg applied.
	acc := s.Get("u1")
	require.True(t, acc.Assets["USD"].Qty.Equal(decimal.NewFromInt(5000)))
	require.True(t, acc.Assets["BTC"].Qty.IsZero())
}

func TestExecuteTradeBuyInsufficientQuote(t *testing.T) {
	s := newTestService()
	err := s.ExecuteTrade("u1", "BTC", types.SideBuy, decimal.NewFromInt(10), decimal.NewFromInt(5001))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.True(t, s.Get("u1").Assets["BTC"].Qty.IsZero())
}

func TestRoundTripPreservesTotal(t *testing.T) {
	s := newTestService()
	qty := decimal.RequireFromString("0.1")
	cost := decimal.NewFromInt(1000)
	require.NoError(t, s.ExecuteTrade("u1", "BTC", types.SideBuy, qty, cost))
	require.NoError(t, s.ExecuteTrade("u1", "BTC", types.SideSell, qty, cost))

	acc := s.Get("u1")
	require.True(t, acc.Assets["USD"].Qty.Equal(decimal.NewFromInt(5000)))
	require.True(t, acc.Assets["BTC"].Qty.IsZero())
}

func TestConcurrentDebitsSameUser(t *testing.T) {
	s := newTestService()
	var wg sync.WaitGroup
	errs := make([]error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Debit("u1", "USD", decimal.NewFromInt(100))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	// Starting 5000 covers exactly 50 debits of 100.
	require.Equal(t, 50, succeeded)
	require.True(t, usd(s, "u1").IsZero())
}
