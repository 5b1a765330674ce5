package edge

import (
	"math/rand"
	"sort"

	"github.com/edgelab/backtest/internal/market"
)

// topCandidates caps the ranked universe the sample is drawn from.
const topCandidates = 500

// Selector picks a cross-sectional sample of tickers from one daily
// flat file: filter out illiquid and penny stocks, rank by a
// price-times-volume cap proxy and draw a seeded random sample from
// the top of the ranking.
type Selector struct {
	MinPrice  float64
	MinVolume int64
}

type candidate struct {
	ticker   string
	capProxy float64
}

func (s Selector) Select(bars []market.Bar, n int, seed int64) []string {
	var eligible []candidate
	for _, b := range bars {
		price, _ := b.Close.Float64()
		if price < s.MinPrice || b.Volume < s.MinVolume {
			continue
		}
		if !plainTicker(b.Ticker) {
			continue
		}

		eligible = append(eligible, candidate{
			ticker:   b.Ticker,
			capProxy: price * float64(b.Volume),
		})
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].capProxy > eligible[j].capProxy })
	if len(eligible) > topCandidates {
		eligible = eligible[:topCandidates]
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	if n > len(eligible) {
		n = len(eligible)
	}

	tickers := make([]string, n)
	for i := range tickers {
		tickers[i] = eligible[i].ticker
	}

	return tickers
}

// plainTicker keeps common-stock symbols: pure uppercase letters, at
// most five of them. Warrants, units and test symbols carry suffixes
// that fail this check.
func plainTicker(t string) bool {
	if len(t) == 0 || len(t) > 5 {
		return false
	}
	for _, r := range t {
		if r < 'A' || r > 'Z' {
			return false
		}
	}

	return true
}
