// Package loader reads OHLC bars from Polygon flat files. It is the
// data-pipeline collaborator of the engine: the engine gets validated,
// chronologically sorted bars and owns no file format itself.
package loader

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/edgelab/backtest/internal/market"
	"github.com/shopspring/decimal"
)

type Filter func(b market.Bar) bool

func TickerFilter(tickers ...string) Filter {
	set := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		set[t] = true
	}

	return func(b market.Bar) bool { return set[b.Ticker] }
}

func RangeFilter(start, end time.Time) Filter {
	return func(b market.Bar) bool {
		return !b.Time.Before(start) && !b.Time.After(end)
	}
}

// columns maps the header of a flat file to field indices. Two layouts
// are understood: the Polygon flat-file schema
// (ticker,volume,open,close,high,low,window_start,transactions with
// window_start in epoch nanoseconds) and the plain
// timestamp,open,high,low,close,volume layout with epoch seconds.
type columns struct {
	ticker  int
	ts      int
	open    int
	high    int
	low     int
	close   int
	volume  int
	nanosTS bool
}

func parseHeader(header []string) (columns, error) {
	c := columns{ticker: -1, ts: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "ticker":
			c.ticker = i
		case "window_start":
			c.ts = i
			c.nanosTS = true
		case "timestamp":
			c.ts = i
		case "open":
			c.open = i
		case "high":
			c.high = i
		case "low":
			c.low = i
		case "close":
			c.close = i
		case "volume":
			c.volume = i
		}
	}

	if c.ts < 0 || c.open < 0 || c.high < 0 || c.low < 0 || c.close < 0 || c.volume < 0 {
		return c, fmt.Errorf("unrecognized csv header: %v", header)
	}

	return c, nil
}

func (c columns) parse(row []string, fallbackTicker string) (market.Bar, error) {
	when, err := parseEpoch(row[c.ts], c.nanosTS)
	if err != nil {
		return market.Bar{}, fmt.Errorf("failed to parse bar time: %w", err)
	}

	open, err := decimal.NewFromString(row[c.open])
	if err != nil {
		return market.Bar{}, fmt.Errorf("failed to read open price: %w", err)
	}

	high, err := decimal.NewFromString(row[c.high])
	if err != nil {
		return market.Bar{}, fmt.Errorf("failed to read high price: %w", err)
	}

	low, err := decimal.NewFromString(row[c.low])
	if err != nil {
		return market.Bar{}, fmt.Errorf("failed to read low price: %w", err)
	}

	close, err := decimal.NewFromString(row[c.close])
	if err != nil {
		return market.Bar{}, fmt.Errorf("failed to read close price: %w", err)
	}

	volume, err := strconv.ParseFloat(row[c.volume], 64)
	if err != nil {
		return market.Bar{}, fmt.Errorf("failed to read volume: %w", err)
	}

	ticker := fallbackTicker
	if c.ticker >= 0 {
		ticker = row[c.ticker]
	}

	return market.Bar{
		Ticker: ticker,
		Time:   when,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: int64(volume),
	}, nil
}

// parseEpoch reads an epoch timestamp exactly when it is an integer.
// Nanosecond values exceed float64's mantissa, so the float path is
// only a fallback for fractional-second layouts.
func parseEpoch(s string, nanos bool) (time.Time, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if nanos {
			return time.Unix(0, v), nil
		}
		return time.Unix(v, 0), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	if nanos {
		return time.Unix(0, int64(f)), nil
	}

	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))), nil
}

// Reader streams bars from one flat file. A reader is single-use; a
// restartable sequence is obtained by constructing a new reader over
// the same path.
type Reader struct {
	src    io.ReadCloser
	rdr    *csv.Reader
	ticker string
	filter Filter
}

func NewReader(path, ticker string) (*Reader, error) {
	return NewReaderWithFilter(path, ticker, func(b market.Bar) bool { return true })
}

func NewReaderWithFilter(path, ticker string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create bar reader: %w", err)
	}

	var src io.ReadCloser = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("unable to open gzipped data file: %w", err)
		}
		src = struct {
			io.Reader
			io.Closer
		}{gz, f}
	}

	return &Reader{
		src:    src,
		rdr:    csv.NewReader(bufio.NewReader(src)),
		ticker: ticker,
		filter: filter,
	}, nil
}

// Read streams bars lazily in file order. The channel closes when the
// file is exhausted or ctx is cancelled; a read failure is delivered
// as the final element.
func (r *Reader) Read(ctx context.Context) <-chan market.StreamedBar {
	out := make(chan market.StreamedBar, 64)

	go func() {
		defer close(out)
		defer r.src.Close()

		header, err := r.rdr.Read()
		if err != nil {
			out <- market.StreamedBar{Err: fmt.Errorf("failed to read csv header: %w", err)}
			return
		}

		cols, err := parseHeader(header)
		if err != nil {
			out <- market.StreamedBar{Err: err}
			return
		}

		for {
			row, err := r.rdr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				out <- market.StreamedBar{Err: fmt.Errorf("failed to read bar data: %w", err)}
				return
			}

			bar, err := cols.parse(row, r.ticker)
			if err != nil {
				out <- market.StreamedBar{Err: err}
				return
			}

			if !r.filter(bar) {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- market.StreamedBar{Bar: bar}:
			}
		}
	}()

	return out
}

// Load reads a whole file eagerly, applies the filters, validates each
// bar and returns the result sorted by timestamp.
func Load(path, ticker string, filters ...Filter) ([]market.Bar, error) {
	rdr, err := NewReaderWithFilter(path, ticker, func(b market.Bar) bool {
		for _, f := range filters {
			if !f(b) {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	var bars []market.Bar
	for sb := range rdr.Read(context.Background()) {
		if sb.Err != nil {
			return nil, sb.Err
		}
		if err := sb.Bar.Validate(); err != nil {
			return nil, fmt.Errorf("invalid bar in %s: %w", path, err)
		}
		bars = append(bars, sb.Bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// LoadAll loads one file per ticker and merges the result into a
// single chronological sequence.
func LoadAll(data map[string]string, filters ...Filter) ([]market.Bar, error) {
	var all []market.Bar
	for ticker, path := range data {
		bars, err := Load(path, ticker, filters...)
		if err != nil {
			return nil, fmt.Errorf("failed to load bars for %s: %w", ticker, err)
		}
		all = append(all, bars...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.Before(all[j].Time) })
	return all, nil
}

// DetectTimeframe infers the bar interval as the most common delta
// between consecutive timestamps of the same ticker.
func DetectTimeframe(bars []market.Bar) time.Duration {
	last := make(map[string]time.Time)
	counts := make(map[time.Duration]int)
	for _, b := range bars {
		if prev, ok := last[b.Ticker]; ok {
			if d := b.Time.Sub(prev); d > 0 {
				counts[d]++
			}
		}
		last[b.Ticker] = b.Time
	}

	var mode time.Duration
	best := 0
	for d, n := range counts {
		if n > best || (n == best && d < mode) {
			mode = d
			best = n
		}
	}

	return mode
}

// Annualization maps a bar interval to the step count of a trading
// year, for Sharpe scaling. Unknown intervals return 0, which disables
// the Sharpe computation downstream.
func Annualization(tf time.Duration) float64 {
	switch {
	case tf == 0:
		return 0
	case tf >= 6*24*time.Hour:
		return 52
	case tf >= 23*time.Hour:
		return 252
	case tf >= time.Hour:
		return 252 * 6.5 * float64(time.Hour) / float64(tf)
	case tf >= time.Minute:
		return 252 * 390 * float64(time.Minute) / float64(tf)
	default:
		return 0
	}
}
