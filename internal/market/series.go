package market

import (
	"errors"
	"fmt"
)

// Series is a fixed-capacity ring buffer of the most recent bars for
// one ticker. Windowed strategies feed it on every bar and read back
// lookback windows for indicator math.
type Series struct {
	Ticker string
	bars   []Bar
	head   int
	size   int
}

func NewSeries(ticker string, bufSize int) *Series {
	return &Series{
		Ticker: ticker,
		bars:   make([]Bar, bufSize),
		head:   -1,
		size:   bufSize,
	}
}

func NewSeriesWithBars(ticker string, bars []Bar) *Series {
	return &Series{
		Ticker: ticker,
		bars:   bars,
		head:   len(bars) - 1,
		size:   len(bars),
	}
}

// Window returns the last count bars, oldest first.
func (s *Series) Window(count int) ([]Bar, error) {
	if count > s.size {
		return nil, errors.New("requested window is greater than series capacity")
	}

	if count <= 0 {
		return nil, fmt.Errorf("invalid window size: %d", count)
	}

	if s.head < count-1 {
		return nil, errors.New("insufficient data")
	}

	e := s.head%s.size + 1
	b := (s.head-count)%s.size + 1
	if e > b {
		return s.bars[b:e], nil
	}

	return append(s.bars[b:], s.bars[0:e]...), nil
}

func (s *Series) Last() (Bar, error) {
	if s.head < 0 {
		return Bar{}, errors.New("insufficient data")
	}

	return s.bars[s.head%s.size], nil
}

func (s *Series) HasBars(count int) bool {
	return count <= s.size && s.head >= count-1
}

func (s *Series) Receive(bar Bar) {
	s.head++
	s.bars[s.head%s.size] = bar
}
