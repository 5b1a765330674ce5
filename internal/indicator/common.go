package indicator

import (
	"github.com/edgelab/backtest/internal/market"
)

func closes(bars []market.Bar) []float64 {
	c := make([]float64, len(bars))
	for i, b := range bars {
		c[i], _ = b.Close.Float64()
	}

	return c
}

// SMA returns the simple moving average series for the given period.
// The first period-1 entries are averages over the partial prefix.
func SMA(data []float64, period int) []float64 {
	sma := make([]float64, len(data))

	sum := 0.0
	for i, v := range data {
		sum += v
		n := i + 1
		if n > period {
			sum -= data[i-period]
			n = period
		}
		sma[i] = sum / float64(n)
	}

	return sma
}

func EMA(data []float64, period int) []float64 {
	if len(data) < period {
		panic("not enough data to compute ema")
	}

	ema := make([]float64, len(data))
	ema[0] = data[0]

	a := 2.0 / (float64(period) + 1)
	for i, val := range data[1:] {
		ema[i+1] = val*a + ema[i]*(1-a)
	}

	return ema
}

// RS computes the Wilder relative-strength series over bar closes.
// A value of -1 marks a window with gains and no losses.
func RS(bars []market.Bar) []float64 {
	data := closes(bars)
	n := len(data)
	if n < 2 {
		return []float64{}
	}

	g := make([]float64, n-1)
	l := make([]float64, n-1)
	avgG := make([]float64, n-1)
	avgL := make([]float64, n-1)

	prev := data[0]
	for i, cur := range data[1:] {
		diff := cur - prev
		if diff > 0 {
			g[i] = diff
			avgG[0] += diff
		} else {
			l[i] = -diff
			avgL[0] += -diff
		}

		prev = cur
	}

	avgG[0] /= float64(len(g))
	avgL[0] /= float64(len(l))

	floatLen := float64(n)
	for i, v := range g[1:] {
		avgG[i+1] = (avgG[i]*(floatLen-1) + v) / floatLen
	}
	for i, v := range l[1:] {
		avgL[i+1] = (avgL[i]*(floatLen-1) + v) / floatLen
	}

	rs := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		if avgG[i] == 0 && avgL[i] == 0 {
			rs[i] = 1
		} else if avgL[i] == 0 {
			rs[i] = -1
		} else {
			rs[i] = avgG[i] / avgL[i]
		}
	}

	return rs
}

// RSI maps the relative-strength series into [0, 1].
func RSI(bars []market.Bar) []float64 {
	res := RS(bars)
	rsi := make([]float64, len(res))
	for i, r := range res {
		if r >= 0 {
			rsi[i] = 1 - 1/(1+r)
		} else {
			rsi[i] = 1
		}
	}

	return rsi
}
