package strategy

import (
	"fmt"

	"github.com/edgelab/backtest/internal/config"
	"github.com/edgelab/backtest/internal/indicator"
	"github.com/edgelab/backtest/internal/market"
	"github.com/shopspring/decimal"
)

// SMACross goes long when the fast moving average crosses above the
// slow one and exits on the opposite cross. Long-only.
type SMACross struct {
	cfg    config.SMACross
	series map[string]*market.Series
	above  map[string]bool
}

func NewSMACross(cfg config.SMACross) (*SMACross, error) {
	if cfg.Fast <= 0 || cfg.Slow <= cfg.Fast {
		return nil, fmt.Errorf("invalid sma_cross periods: fast %d, slow %d", cfg.Fast, cfg.Slow)
	}

	return &SMACross{
		cfg:    cfg,
		series: make(map[string]*market.Series),
		above:  make(map[string]bool),
	}, nil
}

func (s *SMACross) OnData(bar market.Bar, view market.PortfolioView) ([]market.Order, error) {
	series, ok := s.series[bar.Ticker]
	if !ok {
		series = market.NewSeries(bar.Ticker, s.cfg.Slow+1)
		s.series[bar.Ticker] = series
	}

	series.Receive(bar)
	if !series.HasBars(s.cfg.Slow) {
		return nil, nil
	}

	bars, err := series.Window(s.cfg.Slow)
	if err != nil {
		return nil, fmt.Errorf("failed to get sma window: %w", err)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i], _ = b.Close.Float64()
	}

	fast := indicator.SMA(closes, s.cfg.Fast)
	slow := indicator.SMA(closes, s.cfg.Slow)
	nowAbove := fast[len(fast)-1] > slow[len(slow)-1]

	wasAbove, seen := s.above[bar.Ticker]
	s.above[bar.Ticker] = nowAbove
	if !seen || wasAbove == nowAbove {
		return nil, nil
	}

	pos, holding := view.Position(bar.Ticker)

	if nowAbove && !holding {
		qty := wholeShares(decimal.Min(decimal.NewFromFloat(s.cfg.Notional), view.Cash), bar.Close)
		if qty.IsPositive() {
			return []market.Order{market.MarketBuy(bar.Ticker, qty)}, nil
		}
		return nil, nil
	}

	if !nowAbove && holding && pos.Qty.IsPositive() {
		return []market.Order{market.MarketSell(bar.Ticker, pos.Qty)}, nil
	}

	return nil, nil
}
