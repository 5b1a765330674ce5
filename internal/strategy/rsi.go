package strategy

import (
	"fmt"

	"github.com/edgelab/backtest/internal/config"
	"github.com/edgelab/backtest/internal/indicator"
	"github.com/edgelab/backtest/internal/market"
	"github.com/shopspring/decimal"
)

// RSI trades mean reversion on the Wilder relative-strength index:
// buy when the index drops below 1-overbought, exit when it climbs
// above overbought.
type RSIStrategy struct {
	cfg    config.RSI
	series map[string]*market.Series
}

func NewRSI(cfg config.RSI) (*RSIStrategy, error) {
	if cfg.Period < 2 {
		return nil, fmt.Errorf("rsi period must be at least 2, got %d", cfg.Period)
	}
	if cfg.Overbought <= 0.5 || cfg.Overbought >= 1 {
		return nil, fmt.Errorf("rsi overbought must be in (0.5, 1), got %f", cfg.Overbought)
	}

	return &RSIStrategy{
		cfg:    cfg,
		series: make(map[string]*market.Series),
	}, nil
}

func (s *RSIStrategy) OnData(bar market.Bar, view market.PortfolioView) ([]market.Order, error) {
	series, ok := s.series[bar.Ticker]
	if !ok {
		series = market.NewSeries(bar.Ticker, s.cfg.Period+1)
		s.series[bar.Ticker] = series
	}

	series.Receive(bar)
	if !series.HasBars(s.cfg.Period) {
		return nil, nil
	}

	bars, err := series.Window(s.cfg.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to get rsi window: %w", err)
	}

	rsi := indicator.RSI(bars)
	if len(rsi) == 0 {
		return nil, nil
	}

	last := rsi[len(rsi)-1]
	pos, holding := view.Position(bar.Ticker)

	if last <= 1-s.cfg.Overbought && !holding {
		qty := wholeShares(decimal.Min(decimal.NewFromFloat(s.cfg.Notional), view.Cash), bar.Close)
		if qty.IsPositive() {
			return []market.Order{market.MarketBuy(bar.Ticker, qty)}, nil
		}
		return nil, nil
	}

	if last >= s.cfg.Overbought && holding && pos.Qty.IsPositive() {
		return []market.Order{market.MarketSell(bar.Ticker, pos.Qty)}, nil
	}

	return nil, nil
}
