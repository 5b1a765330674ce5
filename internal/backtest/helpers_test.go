package backtest

import (
	"log/slog"
	"time"

	"github.com/edgelab/backtest/internal/market"
	"github.com/shopspring/decimal"
)

var testLog = slog.New(slog.DiscardHandler)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func barAt(ticker string, ts time.Time, close float64) market.Bar {
	return market.Bar{
		Ticker: ticker,
		Time:   ts,
		Open:   dec(close),
		High:   dec(close),
		Low:    dec(close),
		Close:  dec(close),
		Volume: 1000,
	}
}

// scriptedStrategy replays a fixed set of orders keyed by bar index.
type scriptedStrategy struct {
	orders map[int][]market.Order
	errAt  int
	err    error
	step   int
	views  []market.PortfolioView
}

func newScriptedStrategy(orders map[int][]market.Order) *scriptedStrategy {
	return &scriptedStrategy{orders: orders, errAt: -1}
}

func (s *scriptedStrategy) OnData(bar market.Bar, view market.PortfolioView) ([]market.Order, error) {
	defer func() { s.step++ }()
	s.views = append(s.views, view)

	if s.err != nil && s.step == s.errAt {
		return nil, s.err
	}

	return s.orders[s.step], nil
}

func newTestPortfolio(cash float64) *Portfolio {
	return newPortfolio(dec(cash), &noCommission{}, true)
}
