package source

import (
	"context"
	"sync"
	"time"

	"PatternRadar/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
// Fetch is safe for concurrent use; batch loads fan out across goroutines.
type MockSource struct {
	mu      sync.Mutex
	Bars    map[string][]model.Bar
	Err     map[string]error
	Fetched map[string]int // fetch call counts per ticker
}

func NewMockSource() *MockSource {
	return &MockSource{
		Bars:    map[string][]model.Bar{},
		Err:     map[string]error{},
		Fetched: map[string]int{},
	}
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetched[ticker]++
	if err, ok := m.Err[ticker]; ok {
		return nil, err
	}
	bars, ok := m.Bars[ticker]
	if !ok || len(bars) == 0 {
		return nil, ErrNoData
	}
	var out []model.Bar
	for _, b := range bars {
		if b.Date.Before(model.Day(start)) || b.Date.After(model.Day(end)) {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// GenerateBars builds count consecutive weekday bars ending at end, drifting
// slowly around basePrice. Useful for fixtures.
func GenerateBars(basePrice float64, count int, end time.Time) []model.Bar {
	bars := make([]model.Bar, count)
	d := model.Day(end)
	for i := count - 1; i >= 0; i-- {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Date:     d,
			Open:     p * 0.999,
			High:     p * 1.005,
			Low:      p * 0.995,
			Close:    p,
			Volume:   1000000,
			AdjClose: p,
		}
		d = d.AddDate(0, 0, -1)
	}
	return bars
}
