// Package strategy contains the built-in trading strategies. Each one
// consumes bars and a read-only portfolio view and emits orders; all
// state a strategy keeps is scoped to one engine run.
package strategy

import (
	"fmt"

	"github.com/edgelab/backtest/internal/backtest"
	"github.com/edgelab/backtest/internal/config"
	"github.com/shopspring/decimal"
)

// New builds a strategy from its polymorphic config section.
func New(ref config.StrategyReference) (backtest.Strategy, error) {
	switch cfg := ref.Strategy.(type) {
	case config.BuyAndHold:
		return NewBuyAndHold(decimal.NewFromFloat(cfg.Notional)), nil
	case config.SMACross:
		return NewSMACross(cfg)
	case config.RSI:
		return NewRSI(cfg)
	default:
		return nil, fmt.Errorf("unknown strategy: %v", ref)
	}
}

// wholeShares converts a notional budget into a whole-share quantity
// at the given price.
func wholeShares(notional, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}

	return notional.Div(price).Floor()
}
