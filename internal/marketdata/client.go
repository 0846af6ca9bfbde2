package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mauv0809/portfolio-backtest/internal/models"
)

const defaultTimeout = 30 * time.Second

var (
	hosts    = []string{"query1.finance.yahoo.com", "query2.finance.yahoo.com"}
	backoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, time.Second}
)

// Client fetches daily candles with dividend and split events from the
// Yahoo Finance chart API.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new market data client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// DailyHistory fetches one ticker's daily price series for an inclusive
// calendar date range. It rotates hosts and backs off between attempts;
// exhausted retries and empty payloads surface as *Error.
func (c *Client) DailyHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.PricePoint, error) {
	var lastErr error
	for attempt := 0; attempt < len(backoffs)+1; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffs[attempt-1]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		for _, host := range hosts {
			body, err := c.fetch(ctx, host, ticker, start, end)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				lastErr = err
				log.Printf("Market data request failed (%s via %s): %v", ticker, host, err)
				continue
			}
			return parseChart(ticker, body, start, end)
		}
	}
	return nil, &Error{Ticker: ticker, Reason: "all retries failed", Err: lastErr}
}

func (c *Client) fetch(ctx context.Context, host, ticker string, start, end time.Time) ([]byte, error) {
	// period2 is exclusive upstream; push it one day out to keep the
	// requested end date inclusive.
	url := fmt.Sprintf(
		"https://%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplit",
		host, ticker, start.Unix(), end.AddDate(0, 0, 1).Unix(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 120 {
			preview = preview[:120]
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, preview)
	}
	if strings.HasPrefix(string(body), "<") {
		return nil, fmt.Errorf("non-json body")
	}

	return body, nil
}

// parseChart turns a chart API payload into an ascending series of price
// points, folding dividend and split events onto their trading day. Days
// without a positive close are dropped.
func parseChart(ticker string, body []byte, start, end time.Time) ([]models.PricePoint, error) {
	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, &Error{Ticker: ticker, Reason: "parsing response", Err: err}
	}
	if cr.Chart.Error != nil {
		return nil, &Error{Ticker: ticker, Reason: fmt.Sprintf("%s: %s", cr.Chart.Error.Code, cr.Chart.Error.Description)}
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, &Error{Ticker: ticker, Reason: "no data in range"}
	}

	result := cr.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	var adjCloses []float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	dividends := make(map[string]float64, len(result.Events.Dividends))
	for _, d := range result.Events.Dividends {
		dividends[utcDayKey(d.Date)] += d.Amount
	}
	splits := make(map[string]float64, len(result.Events.Splits))
	for _, s := range result.Events.Splits {
		if s.Denominator > 0 {
			splits[utcDayKey(s.Date)] = s.Numerator / s.Denominator
		}
	}

	startDay := toUTCDate(start)
	endDay := toUTCDate(end)

	points := make([]models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] <= 0 {
			continue
		}
		date := toUTCDate(time.Unix(ts, 0).UTC())
		if date.Before(startDay) || date.After(endDay) {
			continue
		}

		p := models.PricePoint{
			Date:       date,
			Close:      closes[i],
			AdjClose:   closes[i],
			SplitRatio: 1,
		}
		if i < len(adjCloses) && adjCloses[i] > 0 {
			p.AdjClose = adjCloses[i]
		}
		key := date.Format("2006-01-02")
		p.Dividend = dividends[key]
		if ratio, ok := splits[key]; ok && ratio > 0 {
			p.SplitRatio = ratio
		}
		points = append(points, p)
	}

	if len(points) == 0 {
		return nil, &Error{Ticker: ticker, Reason: "no data in range"}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func utcDayKey(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}

func toUTCDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
