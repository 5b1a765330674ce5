package loader

import (
	"context"
	"testing"
	"time"

	"github.com/edgelab/backtest/internal/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-02 16:00:00 UTC in epoch nanoseconds.
const t0ns = int64(1704211200_000_000_000)

const polygonCsv = `ticker,volume,open,close,high,low,window_start,transactions
AAPL,1000,184.5,185.1,186.0,184.0,1704211200000000000,50
SPY,2000,470.0,472.0,473.0,469.5,1704211200000000000,80
AAPL,1100,185.1,185.9,186.2,185.0,1704211260000000000,55
`

func TestRead_polygonSchema(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dataFile := writeCsv(t, "day.csv", polygonCsv)
	rdr, err := NewReader(dataFile, "")
	require.NoError(t, err)

	var bars []market.Bar
	for sb := range rdr.Read(ctx) {
		require.NoError(t, sb.Err)
		bars = append(bars, sb.Bar)
	}

	require.Len(t, bars, 3)
	assert.Equal(t, "AAPL", bars[0].Ticker)
	assert.Equal(t, time.Unix(0, t0ns), bars[0].Time)
	assert.True(t, decimal.NewFromFloat(184.5).Equal(bars[0].Open))
	assert.True(t, decimal.NewFromFloat(185.1).Equal(bars[0].Close))
	assert.True(t, decimal.NewFromFloat(186.0).Equal(bars[0].High))
	assert.True(t, decimal.NewFromFloat(184.0).Equal(bars[0].Low))
	assert.Equal(t, int64(1000), bars[0].Volume)
}

func TestRead_nanosecondTimestampsExact(t *testing.T) {
	// 1704211200000000001 is not representable as a float64; the parse
	// must not round it
	dataFile := writeCsv(t, "day.csv", `ticker,volume,open,close,high,low,window_start,transactions
AAPL,1000,184.5,185.1,186.0,184.0,1704211200000000001,50
`)

	bars, err := Load(dataFile, "")
	require.NoError(t, err)

	require.Len(t, bars, 1)
	assert.Equal(t, time.Unix(0, 1704211200000000001), bars[0].Time)
}

func TestRead_plainSchemaUsesFallbackTicker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dataFile := writeCsv(t, "btc.csv", `timestamp,open,high,low,close,volume
1460413380.0,421.07,521.07,321.06,421.06,1.192`)
	rdr, err := NewReader(dataFile, "BTC")
	require.NoError(t, err)

	var bars []market.Bar
	for sb := range rdr.Read(ctx) {
		require.NoError(t, sb.Err)
		bars = append(bars, sb.Bar)
	}

	require.Len(t, bars, 1)
	assert.Equal(t, "BTC", bars[0].Ticker)
	assert.Equal(t, time.Unix(1460413380, 0), bars[0].Time)
}

func TestRead_badHeader(t *testing.T) {
	dataFile := writeCsv(t, "bad.csv", `a,b,c
1,2,3`)
	rdr, err := NewReader(dataFile, "")
	require.NoError(t, err)

	var gotErr error
	for sb := range rdr.Read(context.Background()) {
		if sb.Err != nil {
			gotErr = sb.Err
		}
	}

	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "unrecognized csv header")
}

func TestRead_badRow(t *testing.T) {
	dataFile := writeCsv(t, "bad.csv", `timestamp,open,high,low,close,volume
1460413380.0,not-a-price,1,1,1,1`)
	rdr, err := NewReader(dataFile, "X")
	require.NoError(t, err)

	var gotErr error
	for sb := range rdr.Read(context.Background()) {
		if sb.Err != nil {
			gotErr = sb.Err
		}
	}

	require.Error(t, gotErr)
}

func TestLoad_sortsAndFilters(t *testing.T) {
	// rows deliberately out of order
	dataFile := writeCsv(t, "day.csv", `ticker,volume,open,close,high,low,window_start,transactions
AAPL,1100,185.1,185.9,186.2,185.0,1704211260000000000,55
AAPL,1000,184.5,185.1,186.0,184.0,1704211200000000000,50
SPY,2000,470.0,472.0,473.0,469.5,1704211200000000000,80
`)

	bars, err := Load(dataFile, "", TickerFilter("AAPL"))
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Before(bars[1].Time), "load sorts chronologically")
	for _, b := range bars {
		assert.Equal(t, "AAPL", b.Ticker)
	}
}

func TestLoad_gzip(t *testing.T) {
	dataFile := writeGzCsv(t, "day.csv.gz", polygonCsv)

	bars, err := Load(dataFile, "")
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestLoad_rejectsInvalidBar(t *testing.T) {
	dataFile := writeCsv(t, "day.csv", `ticker,volume,open,close,high,low,window_start,transactions
AAPL,1000,184.5,185.1,180.0,184.0,1704211200000000000,50
`)

	_, err := Load(dataFile, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bar")
}

func TestLoadAll_mergesChronologically(t *testing.T) {
	a := writeCsv(t, "a.csv", `timestamp,open,high,low,close,volume
100,1,1,1,1,1
300,1,1,1,1,1`)
	b := writeCsv(t, "b.csv", `timestamp,open,high,low,close,volume
200,2,2,2,2,2`)

	bars, err := LoadAll(map[string]string{"A": a, "B": b})
	require.NoError(t, err)

	require.Len(t, bars, 3)
	assert.Equal(t, "A", bars[0].Ticker)
	assert.Equal(t, "B", bars[1].Ticker)
	assert.Equal(t, "A", bars[2].Ticker)
}

func TestRangeFilter(t *testing.T) {
	start := time.Unix(150, 0)
	end := time.Unix(250, 0)
	f := RangeFilter(start, end)

	assert.False(t, f(market.Bar{Time: time.Unix(100, 0)}))
	assert.True(t, f(market.Bar{Time: start}))
	assert.True(t, f(market.Bar{Time: time.Unix(200, 0)}))
	assert.True(t, f(market.Bar{Time: end}))
	assert.False(t, f(market.Bar{Time: time.Unix(300, 0)}))
}

func TestDetectTimeframe(t *testing.T) {
	base := time.Unix(1704211200, 0)
	mkBars := func(ticker string, step time.Duration, n int) []market.Bar {
		bars := make([]market.Bar, n)
		for i := range bars {
			bars[i] = market.Bar{Ticker: ticker, Time: base.Add(time.Duration(i) * step)}
		}
		return bars
	}

	daily := mkBars("SPY", 24*time.Hour, 10)
	assert.Equal(t, 24*time.Hour, DetectTimeframe(daily))

	// mixed tickers do not pollute each other's deltas
	mixed := append(mkBars("A", time.Minute, 5), mkBars("B", time.Minute, 5)...)
	assert.Equal(t, time.Minute, DetectTimeframe(mixed))

	assert.Equal(t, time.Duration(0), DetectTimeframe(nil))
}

func TestAnnualization(t *testing.T) {
	assert.Equal(t, 252.0, Annualization(24*time.Hour))
	assert.Equal(t, 52.0, Annualization(7*24*time.Hour))
	assert.InDelta(t, 252*390, Annualization(time.Minute), 1e-9)
	assert.InDelta(t, 252*6.5, Annualization(time.Hour), 1e-9)
	assert.Equal(t, 0.0, Annualization(0))
	assert.Equal(t, 0.0, Annualization(time.Second))
}
