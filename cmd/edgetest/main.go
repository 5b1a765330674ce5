package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/edgelab/backtest/internal/backtest"
	"github.com/edgelab/backtest/internal/config"
	"github.com/edgelab/backtest/internal/edge"
	"github.com/edgelab/backtest/internal/loader"
	"github.com/edgelab/backtest/internal/market"
	"github.com/edgelab/backtest/internal/strategy"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.ReadFromFile(os.Getenv("CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.Default()

	startFile, endFile, err := flatFiles(ctx, logger, cfg)
	if err != nil {
		log.Fatal(err)
	}

	startBars, err := loader.Load(startFile, "")
	if err != nil {
		log.Fatal(err)
	}
	endBars, err := loader.Load(endFile, "")
	if err != nil {
		log.Fatal(err)
	}

	selector := edge.Selector{MinPrice: cfg.Edge.MinPrice, MinVolume: cfg.Edge.MinVolume}
	tickers := selector.Select(startBars, cfg.Edge.Stocks, cfg.Edge.Seed)
	logger.Info("selected cross-sectional sample", slog.Int("tickers", len(tickers)))

	data := barsByTicker(startBars, endBars, tickers)

	benchmark := edge.BenchmarkReturn(tickerBars(startBars, endBars, cfg.Edge.Benchmark))
	logger.Info("benchmark return",
		slog.String("ticker", cfg.Edge.Benchmark),
		slog.Float64("return", benchmark))

	tester := edge.NewTester(logger, backtest.Config{
		InitialCash:        decimal.NewFromFloat(cfg.Run.InitialCash),
		TransactionCostPct: cfg.Run.TransactionCostPct,
		AllowShort:         cfg.Run.AllowShort,
		Annualization:      cfg.Run.Annualization,
	}, cfg.Edge.Parallelism)

	results, summary, err := tester.Run(ctx, func() (backtest.Strategy, error) {
		return strategy.New(cfg.StrategyRef)
	}, data, benchmark)
	if err != nil {
		log.Fatal(err)
	}

	printSummary(results, summary)
}

// flatFiles resolves the two daily flat files for the test period,
// either from explicit paths or by downloading them via the cache.
func flatFiles(ctx context.Context, logger *slog.Logger, cfg *config.Config) (string, string, error) {
	if cfg.Edge.StartFile != "" && cfg.Edge.EndFile != "" {
		return cfg.Edge.StartFile, cfg.Edge.EndFile, nil
	}

	dl, err := loader.NewDownloaderFromEnv(logger, cfg.Edge.CacheDir)
	if err != nil {
		return "", "", err
	}

	startFile, err := dl.DayAggregates(ctx, cfg.Start)
	if err != nil {
		return "", "", err
	}

	endFile, err := dl.DayAggregates(ctx, cfg.End)
	if err != nil {
		return "", "", err
	}

	return startFile, endFile, nil
}

func barsByTicker(startBars, endBars []market.Bar, tickers []string) map[string][]market.Bar {
	data := make(map[string][]market.Bar, len(tickers))
	for _, t := range tickers {
		if bars := tickerBars(startBars, endBars, t); len(bars) >= 2 {
			data[t] = bars
		}
	}

	return data
}

func tickerBars(startBars, endBars []market.Bar, ticker string) []market.Bar {
	var bars []market.Bar
	for _, b := range startBars {
		if b.Ticker == ticker {
			bars = append(bars, b)
		}
	}
	for _, b := range endBars {
		if b.Ticker == ticker {
			bars = append(bars, b)
		}
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}

func printSummary(results []edge.StockResult, s edge.Summary) {
	fmt.Printf("stocks tested:      %d\n", s.Stocks)
	fmt.Printf("mean return:        %.4f\n", s.MeanReturn)
	fmt.Printf("std of returns:     %.4f\n", s.StdReturn)
	fmt.Printf("win rate:           %.2f%%\n", s.WinRate*100)
	fmt.Printf("benchmark return:   %.4f\n", s.BenchmarkReturn)
	fmt.Printf("t statistic:        %.4f\n", s.TStatistic)
	fmt.Printf("p value:            %.4f\n", s.PValue)
	fmt.Printf("95%% CI:             [%.4f, %.4f]\n", s.ConfidenceLow, s.ConfidenceHigh)
	if s.Significant {
		fmt.Println("verdict:            significant at 95% confidence")
	} else {
		fmt.Println("verdict:            not significant at 95% confidence")
	}

	for _, r := range results {
		marker := " "
		if r.BeatBenchmark {
			marker = "*"
		}
		fmt.Printf("%s %-6s return=%.4f fills=%d rejections=%d\n",
			marker, r.Ticker, r.Return, r.Fills, r.Rejections)
	}
}
