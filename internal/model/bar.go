package model

import "time"

// Bar represents a single daily OHLCV candlestick. AdjClose falls back to
// Close when the source does not report a separate adjusted value.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	AdjClose float64
}

// Day normalizes a timestamp to a UTC calendar date, the canonical form for
// cache keys and bar ordering.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Series holds the ordered daily bars for one ticker, strictly increasing
// by date with no duplicates.
type Series struct {
	Ticker string
	Bars   []Bar
}

// Len returns the number of bars in the series.
func (s *Series) Len() int { return len(s.Bars) }

// Closes extracts the close prices in bar order.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar. The series must be non-empty.
func (s *Series) Last() Bar { return s.Bars[len(s.Bars)-1] }
