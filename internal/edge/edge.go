// Package edge runs cross-sectional significance tests: the same
// strategy backtested over many sampled stocks for one period, with a
// one-sample t-test of the return distribution against a benchmark.
package edge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/edgelab/backtest/internal/backtest"
	"github.com/edgelab/backtest/internal/market"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// StockResult is the outcome of one per-ticker backtest.
type StockResult struct {
	Ticker        string
	Return        float64
	Sharpe        float64
	HasSharpe     bool
	Fills         int
	Rejections    int
	BeatBenchmark bool
}

// Summary aggregates the per-ticker returns and tests them against
// the benchmark at 95% confidence.
type Summary struct {
	Stocks          int
	MeanReturn      float64
	StdReturn       float64
	WinRate         float64
	BenchmarkReturn float64
	TStatistic      float64
	PValue          float64
	Significant     bool
	ConfidenceLow   float64
	ConfidenceHigh  float64
}

// Tester drives the cross-sectional test. Every run gets a fresh
// engine, portfolio and strategy, so runs parallelize freely.
type Tester struct {
	log         *slog.Logger
	engineCfg   backtest.Config
	parallelism int
}

func NewTester(log *slog.Logger, engineCfg backtest.Config, parallelism int) *Tester {
	if parallelism <= 0 {
		parallelism = 1
	}

	return &Tester{
		log:         log,
		engineCfg:   engineCfg,
		parallelism: parallelism,
	}
}

// Run backtests the strategy over each ticker's bars in parallel and
// aggregates the outcomes. Tickers whose run fails are logged and
// skipped rather than failing the whole test; a fresh strategy comes
// from the factory for every run.
func (t *Tester) Run(ctx context.Context, newStrategy func() (backtest.Strategy, error), data map[string][]market.Bar, benchmarkReturn float64) ([]StockResult, Summary, error) {
	var (
		mu      sync.Mutex
		results []StockResult
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.parallelism)

	for ticker, bars := range data {
		g.Go(func() error {
			strat, err := newStrategy()
			if err != nil {
				return fmt.Errorf("failed to create strategy for %s: %w", ticker, err)
			}

			engine, err := backtest.NewEngine(t.log, t.engineCfg)
			if err != nil {
				return fmt.Errorf("failed to create engine for %s: %w", ticker, err)
			}

			// A run that aborts early leaves the stream producer
			// mid-slice; cancelling releases it.
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			res, err := engine.Run(runCtx, strat, market.Stream(runCtx, bars))
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				t.log.Warn("skipping ticker, backtest failed",
					slog.String("ticker", ticker),
					slog.Any("error", err))
				return nil
			}

			sr := StockResult{
				Ticker:        ticker,
				Return:        res.TotalReturn,
				Sharpe:        res.Sharpe,
				HasSharpe:     res.HasSharpe,
				Fills:         res.Fills,
				Rejections:    res.Orders - res.Fills,
				BeatBenchmark: res.TotalReturn > benchmarkReturn,
			}

			mu.Lock()
			results = append(results, sr)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Ticker < results[j].Ticker })
	return results, Summarize(results, benchmarkReturn), nil
}

// Summarize computes the cross-sectional statistics: mean and sample
// standard deviation of returns, win rate, a one-sample t statistic of
// the returns against the benchmark, its two-sided p-value from the
// Student's t distribution, and the 95% confidence interval of the
// mean. Pure function; identical inputs give identical output.
func Summarize(results []StockResult, benchmarkReturn float64) Summary {
	s := Summary{
		Stocks:          len(results),
		BenchmarkReturn: benchmarkReturn,
		PValue:          1,
	}
	if len(results) == 0 {
		return s
	}

	returns := make([]float64, len(results))
	wins := 0
	for i, r := range results {
		returns[i] = r.Return
		if r.BeatBenchmark {
			wins++
		}
	}

	s.MeanReturn = stat.Mean(returns, nil)
	s.WinRate = float64(wins) / float64(len(results))

	if len(results) < 2 {
		s.ConfidenceLow = s.MeanReturn
		s.ConfidenceHigh = s.MeanReturn
		return s
	}

	s.StdReturn = stat.StdDev(returns, nil)
	if s.StdReturn == 0 {
		s.ConfidenceLow = s.MeanReturn
		s.ConfidenceHigh = s.MeanReturn
		s.Significant = s.MeanReturn != benchmarkReturn
		if s.Significant {
			s.PValue = 0
		}
		return s
	}

	n := float64(len(results))
	stderr := s.StdReturn / math.Sqrt(n)
	s.TStatistic = (s.MeanReturn - benchmarkReturn) / stderr

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	s.PValue = 2 * (1 - dist.CDF(math.Abs(s.TStatistic)))
	s.Significant = s.PValue < 0.05

	crit := dist.Quantile(0.975)
	s.ConfidenceLow = s.MeanReturn - crit*stderr
	s.ConfidenceHigh = s.MeanReturn + crit*stderr

	return s
}

// BenchmarkReturn is the close-to-close return of the benchmark ticker
// over a chronological bar sequence. Zero when fewer than two bars are
// available.
func BenchmarkReturn(bars []market.Bar) float64 {
	if len(bars) < 2 {
		return 0
	}

	first, _ := bars[0].Close.Float64()
	last, _ := bars[len(bars)-1].Close.Float64()
	if first <= 0 {
		return 0
	}

	return (last - first) / first
}
