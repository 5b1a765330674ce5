package strategy

import (
	"github.com/edgelab/backtest/internal/market"
	"github.com/shopspring/decimal"
)

// BuyAndHold buys a fixed notional of each ticker on its first bar and
// never trades again. The simplest strategy; doubles as the benchmark
// leg of the edge test.
type BuyAndHold struct {
	notional decimal.Decimal
	bought   map[string]bool
}

func NewBuyAndHold(notional decimal.Decimal) *BuyAndHold {
	return &BuyAndHold{
		notional: notional,
		bought:   make(map[string]bool),
	}
}

func (s *BuyAndHold) OnData(bar market.Bar, view market.PortfolioView) ([]market.Order, error) {
	if s.bought[bar.Ticker] {
		return nil, nil
	}

	qty := wholeShares(decimal.Min(s.notional, view.Cash), bar.Close)
	if !qty.IsPositive() {
		return nil, nil
	}

	s.bought[bar.Ticker] = true
	return []market.Order{market.MarketBuy(bar.Ticker, qty)}, nil
}
