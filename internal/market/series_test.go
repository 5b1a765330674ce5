package market

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesBar(i int) Bar {
	b := validBar()
	b.Time = b.Time.Add(time.Duration(i) * time.Minute)
	b.Close = dec(float64(100 + i))
	return b
}

func TestSeriesWindow(t *testing.T) {
	s := NewSeries("SPY", 5)
	for i := 0; i < 3; i++ {
		s.Receive(seriesBar(i))
	}

	bars, err := s.Window(3)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.True(t, dec(100).Equal(bars[0].Close))
	assert.True(t, dec(102).Equal(bars[2].Close))
}

func TestSeriesWindow_wrapsAround(t *testing.T) {
	tbl := []struct {
		received int
		window   int
		first    float64
		last     float64
	}{
		{received: 5, window: 5, first: 100, last: 104},
		{received: 6, window: 5, first: 101, last: 105},
		{received: 7, window: 3, first: 104, last: 106},
		{received: 12, window: 5, first: 107, last: 111},
	}

	for _, c := range tbl {
		t.Run(fmt.Sprintf("recv_%d_win_%d", c.received, c.window), func(t *testing.T) {
			s := NewSeries("SPY", 5)
			for i := 0; i < c.received; i++ {
				s.Receive(seriesBar(i))
			}

			bars, err := s.Window(c.window)
			require.NoError(t, err)
			require.Len(t, bars, c.window)
			assert.True(t, dec(c.first).Equal(bars[0].Close))
			assert.True(t, dec(c.last).Equal(bars[len(bars)-1].Close))
		})
	}
}

func TestSeriesWindow_errors(t *testing.T) {
	s := NewSeries("SPY", 5)
	s.Receive(seriesBar(0))

	_, err := s.Window(6)
	assert.Error(t, err, "window larger than capacity")

	_, err = s.Window(0)
	assert.Error(t, err, "non-positive window")

	_, err = s.Window(3)
	assert.Error(t, err, "not enough data yet")
}

func TestSeriesLast(t *testing.T) {
	s := NewSeries("SPY", 3)

	_, err := s.Last()
	assert.Error(t, err)

	for i := 0; i < 4; i++ {
		s.Receive(seriesBar(i))
	}

	last, err := s.Last()
	require.NoError(t, err)
	assert.True(t, dec(103).Equal(last.Close))
}

func TestSeriesHasBars(t *testing.T) {
	s := NewSeries("SPY", 3)
	assert.False(t, s.HasBars(1))

	s.Receive(seriesBar(0))
	s.Receive(seriesBar(1))
	assert.True(t, s.HasBars(2))
	assert.False(t, s.HasBars(3))
	assert.False(t, s.HasBars(4), "never more than capacity")

	s.Receive(seriesBar(2))
	s.Receive(seriesBar(3))
	assert.True(t, s.HasBars(3))
}

func TestNewSeriesWithBars(t *testing.T) {
	bars := []Bar{seriesBar(0), seriesBar(1), seriesBar(2)}
	s := NewSeriesWithBars("SPY", bars)

	got, err := s.Window(3)
	require.NoError(t, err)
	assert.Equal(t, bars, got)
}