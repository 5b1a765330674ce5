package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curveOf(values ...float64) []EquityPoint {
	curve := make([]EquityPoint, len(values))
	for i, v := range values {
		curve[i] = EquityPoint{Time: ts.Add(time.Duration(i) * time.Minute), Equity: dec(v)}
	}

	return curve
}

func TestTotalReturn(t *testing.T) {
	assert.InDelta(t, 0.1, TotalReturn(curveOf(1000, 1050, 1100), dec(1000)), 1e-9)
	assert.InDelta(t, -0.25, TotalReturn(curveOf(1000, 750), dec(1000)), 1e-9)
	assert.Equal(t, 0.0, TotalReturn(nil, dec(1000)))
}

func TestMaxDrawdown(t *testing.T) {
	tbl := []struct {
		name  string
		curve []EquityPoint
		want  float64
	}{
		{name: "monotonic up", curve: curveOf(100, 110, 120), want: 0},
		{name: "flat", curve: curveOf(100, 100, 100), want: 0},
		{name: "single dip", curve: curveOf(100, 80, 120), want: 0.2},
		{name: "trough after later peak", curve: curveOf(100, 150, 75, 160), want: 0.5},
		{name: "empty", curve: nil, want: 0},
	}

	for _, c := range tbl {
		t.Run(c.name, func(t *testing.T) {
			dd := MaxDrawdown(c.curve)
			assert.InDelta(t, c.want, dd, 1e-9)
			assert.GreaterOrEqual(t, dd, 0.0)
		})
	}
}

func TestMaxDrawdown_nonPositiveEquity(t *testing.T) {
	// no positive peak yet, nothing to measure against
	assert.Equal(t, 0.0, MaxDrawdown(curveOf(-100, -50, 0)))

	// measured from the first positive peak onward
	assert.InDelta(t, 0.5, MaxDrawdown(curveOf(-100, 50, 25)), 1e-9)

	// a collapse through zero exceeds the whole peak
	assert.InDelta(t, 1.5, MaxDrawdown(curveOf(100, -50)), 1e-9)
}

func TestMaxDrawdown_zeroIffNonDecreasing(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(curveOf(100, 100, 150)))
	assert.Greater(t, MaxDrawdown(curveOf(100, 99.99, 150)), 0.0)
}

func TestSharpeRatio(t *testing.T) {
	// step returns: +10%, -5%, +10%, -5%
	curve := curveOf(100, 110, 104.5, 114.95, 109.2025)

	sharpe, ok := SharpeRatio(curve, 252)
	require.True(t, ok)

	returns := []float64{0.1, -0.05, 0.1, -0.05}
	mean := 0.025
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / 3)
	assert.InDelta(t, mean/std*math.Sqrt(252), sharpe, 1e-6)
}

func TestSharpeRatio_degenerateCurves(t *testing.T) {
	_, ok := SharpeRatio(curveOf(100, 110), 252)
	assert.False(t, ok, "too short")

	_, ok = SharpeRatio(curveOf(100, 100, 100, 100), 252)
	assert.False(t, ok, "zero variance")

	_, ok = SharpeRatio(curveOf(100, 110, 120), 0)
	assert.False(t, ok, "no annualization factor")
}

func TestMetrics_idempotent(t *testing.T) {
	curve := curveOf(1000, 1100, 900, 1200, 1150)

	for i := 0; i < 3; i++ {
		assert.Equal(t, TotalReturn(curve, dec(1000)), TotalReturn(curve, dec(1000)))
		assert.Equal(t, MaxDrawdown(curve), MaxDrawdown(curve))
		s1, ok1 := SharpeRatio(curve, 252)
		s2, ok2 := SharpeRatio(curve, 252)
		assert.Equal(t, s1, s2)
		assert.Equal(t, ok1, ok2)
	}
}

func TestResults_curveIsACopy(t *testing.T) {
	p := newTestPortfolio(1000)
	p.SampleEquity(ts)
	p.SampleEquity(ts.Add(time.Minute))

	res := buildResults(p, Config{InitialCash: dec(1000)}, ts, ts.Add(time.Minute), 0, 0)
	require.Len(t, res.EquityCurve, 2)

	p.SampleEquity(ts.Add(2 * time.Minute))
	assert.Len(t, res.EquityCurve, 2, "results hold a detached copy of the curve")
}
