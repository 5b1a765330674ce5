package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgelab/backtest/internal/market"
	"github.com/shopspring/decimal"
)

// Strategy turns bars into orders. Implementations may keep state
// between calls but see portfolio state only through the read-only
// view; every effect goes through the returned orders.
type Strategy interface {
	OnData(bar market.Bar, view market.PortfolioView) ([]market.Order, error)
}

type Config struct {
	InitialCash        decimal.Decimal
	TransactionCostPct float64
	AllowShort         bool
	// Annualization is the factor for the Sharpe ratio (e.g. 252 for
	// daily bars). Zero skips the Sharpe computation.
	Annualization float64
}

// Engine replays a chronological bar stream through one strategy and
// one portfolio. Engines are cheap to construct and runs share no
// state, so callers parallelize by running one engine per goroutine.
type Engine struct {
	log *slog.Logger
	cfg Config
}

func NewEngine(log *slog.Logger, cfg Config) (*Engine, error) {
	if !cfg.InitialCash.IsPositive() {
		return nil, fmt.Errorf("%w: initial cash must be positive, got %s", ErrBadConfig, cfg.InitialCash)
	}
	if cfg.TransactionCostPct < 0 {
		return nil, fmt.Errorf("%w: transaction cost cannot be negative, got %f", ErrBadConfig, cfg.TransactionCostPct)
	}
	if cfg.Annualization < 0 {
		return nil, fmt.Errorf("%w: annualization cannot be negative, got %f", ErrBadConfig, cfg.Annualization)
	}

	return &Engine{log: log, cfg: cfg}, nil
}

// Run consumes the bar stream until it is exhausted and returns the
// run's results. Market orders fill at the generating bar's close; no
// intrabar price path is modeled. Rejected orders are dropped into the
// trade log and the run continues; malformed input and strategy
// faults abort the run.
func (e *Engine) Run(ctx context.Context, strat Strategy, bars <-chan market.StreamedBar) (*Results, error) {
	var commission commissionCharger = &noCommission{}
	if e.cfg.TransactionCostPct > 0 {
		commission = newFixedRateCommission(e.cfg.TransactionCostPct)
	}

	p := newPortfolio(e.cfg.InitialCash, commission, e.cfg.AllowShort)

	var (
		lastTS  time.Time
		pending bool
		start   time.Time
		orders  int
		fills   int
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sb, ok := <-bars:
			if !ok {
				if pending {
					p.SampleEquity(lastTS)
				}
				return buildResults(p, e.cfg, start, lastTS, orders, fills), nil
			}
			if sb.Err != nil {
				return nil, fmt.Errorf("bar stream failed: %w", sb.Err)
			}

			bar := sb.Bar
			if err := bar.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadBar, err)
			}
			if pending && bar.Time.Before(lastTS) {
				return nil, fmt.Errorf("%w: bar %s at %s after %s", ErrNonMonotonic, bar.Ticker, bar.Time, lastTS)
			}

			// Bars sharing a timestamp are all processed before the
			// equity sample, so a multi-asset snapshot is never
			// partially priced.
			if pending && bar.Time.After(lastTS) {
				p.SampleEquity(lastTS)
			}
			if !pending {
				start = bar.Time
			}
			lastTS = bar.Time
			pending = true

			out, err := strat.OnData(bar, p.View(bar.Time))
			if err != nil {
				return nil, fmt.Errorf("%w on bar %s at %s: %v", ErrStrategy, bar.Ticker, bar.Time, err)
			}

			for _, o := range out {
				orders++
				f := p.Execute(o, e.fillPrice(p, o, bar), bar.Time)
				if f.Rejected {
					e.log.Debug("order rejected",
						slog.String("ticker", o.Ticker),
						slog.String("side", o.Side.String()),
						slog.String("reason", string(f.Reason)))
					continue
				}

				fills++
				e.log.Debug("order filled",
					slog.String("ticker", f.Ticker),
					slog.String("side", f.Side.String()),
					slog.String("qty", f.Qty.String()),
					slog.String("price", f.Price.String()))
			}

			p.MarkToMarket(bar.Ticker, bar.Close)
		}
	}
}

// fillPrice is the close of the generating bar. An order for another
// ticker active at the same timestamp falls back to that ticker's last
// marked price; with no mark yet the order is rejected by Execute.
func (e *Engine) fillPrice(p *Portfolio, o market.Order, bar market.Bar) decimal.Decimal {
	if o.Ticker == bar.Ticker {
		return bar.Close
	}

	price, ok := p.lastPrice(o.Ticker)
	if !ok {
		return decimal.Zero
	}
	return price
}
