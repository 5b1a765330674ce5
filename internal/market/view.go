package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioView is the read-only projection of portfolio state handed
// to strategies. Strategies cannot reach the portfolio itself; all
// effects go through emitted orders.
type PortfolioView struct {
	Time      time.Time
	Cash      decimal.Decimal
	Equity    decimal.Decimal
	Positions map[string]PositionSnapshot
}

type PositionSnapshot struct {
	Ticker    string
	Qty       decimal.Decimal
	AvgCost   decimal.Decimal
	LastPrice decimal.Decimal
}

// Position returns the snapshot for ticker and whether one exists.
func (v PortfolioView) Position(ticker string) (PositionSnapshot, bool) {
	p, ok := v.Positions[ticker]
	return p, ok
}
