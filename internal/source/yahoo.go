package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"PatternRadar/internal/model"
)

// YahooSource implements RemoteSource using the Yahoo Finance chart API.
type YahooSource struct {
	Client    *http.Client
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooSource creates a Yahoo Finance source, optionally routed through
// an HTTP proxy.
func NewYahooSource(proxyURL string) *YahooSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooSource{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: "https://query1.finance.yahoo.com",
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

func (y *YahooSource) yahooSymbol(ticker string) string {
	if mapped, ok := y.SymbolMap[ticker]; ok {
		return mapped
	}
	return ticker
}

// yahooChart is the response structure from the Yahoo Finance chart API.
// Result is an array even for single-ticker requests; collapsing it to one
// series is the normalization step the loader contract requires.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []interface{} `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// at reads values[i] as a float, treating out-of-range indexes as missing.
// Yahoo occasionally returns quote arrays shorter than the timestamp array.
func at(values []interface{}, i int) float64 {
	if i >= len(values) {
		return 0
	}
	return toFloat(values[i])
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// Fetch retrieves daily bars for [start, end] inclusive.
func (y *YahooSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error) {
	// period2 is exclusive on the Yahoo side, so push it past end-of-day.
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d&events=div%%2Csplit",
		y.BaseURL, url.PathEscape(y.yahooSymbol(ticker)),
		model.Day(start).Unix(), model.Day(end).AddDate(0, 0, 1).Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
		}
		return nil, fmt.Errorf("%w: api error: %s", ErrUnavailable, chart.Chart.Error.Description)
	}

	bars := collapseChart(&chart, y.yahooSymbol(ticker))
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}
	return bars, nil
}

// collapseChart reduces the multi-result response shape to the one series
// matching the requested symbol, falling back to the first result when the
// provider omits the meta symbol.
func collapseChart(chart *yahooChart, symbol string) []model.Bar {
	if len(chart.Chart.Result) == 0 {
		return nil
	}
	result := chart.Chart.Result[0]
	for _, r := range chart.Chart.Result {
		if strings.EqualFold(r.Meta.Symbol, symbol) {
			result = r
			break
		}
	}
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil
	}

	quote := result.Indicators.Quote[0]
	var adjClose []interface{}
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o := at(quote.Open, i)
		h := at(quote.High, i)
		l := at(quote.Low, i)
		c := at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		adj := c
		if v := at(adjClose, i); v != 0 {
			adj = v
		}
		bars = append(bars, model.Bar{
			Date:     model.Day(time.Unix(ts, 0).UTC()),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
			Volume:   at(quote.Volume, i),
			AdjClose: adj,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}
