package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"momentum-signal-go/internal/metrics"
	"momentum-signal-go/internal/models"
)

// Fetcher retrieves daily candles for a ticker over a date range.
type Fetcher interface {
	DailyCandles(ctx context.Context, ticker string, start, end time.Time) ([]models.Candle, error)
}

// CandleCache is an optional read-through cache for fetched ranges.
type CandleCache interface {
	GetCandles(ctx context.Context, ticker string, start, end time.Time) ([]models.Candle, bool)
	SetCandles(ctx context.Context, ticker string, start, end time.Time, candles []models.Candle)
}

// Client fetches daily OHLCV bars from a Yahoo-style chart endpoint.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	cache     CandleCache
}

// NewClient builds a market data client. cache may be nil.
func NewClient(baseURL, userAgent string, cache CandleCache) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: 20 * time.Second},
		cache:     cache,
	}
}

// chartResponse mirrors the chart API payload. Quote arrays use pointers
// because the API emits null for bars with no trade data.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

var retryDelays = []time.Duration{2 * time.Second, 4 * time.Second}

// DailyCandles fetches the 1d-interval bars for a ticker, consulting the
// cache first. Transient upstream failures are retried with backoff.
func (c *Client) DailyCandles(ctx context.Context, ticker string, start, end time.Time) ([]models.Candle, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker")
	}

	if c.cache != nil {
		if candles, ok := c.cache.GetCandles(ctx, ticker, start, end); ok {
			metrics.MarketFetches.WithLabelValues("hit").Inc()
			return candles, nil
		}
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		c.baseURL, url.PathEscape(ticker), start.Unix(), end.Unix())

	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		if attempt > 0 {
			log.Printf("market: retrying %s (attempt %d): %v", ticker, attempt+1, lastErr)
			time.Sleep(retryDelays[attempt-1])
		}

		candles, retryable, err := c.fetch(ctx, reqURL, ticker)
		if err == nil {
			metrics.MarketFetches.WithLabelValues("fetch").Inc()
			if c.cache != nil {
				c.cache.SetCandles(ctx, ticker, start, end, candles)
			}
			return candles, nil
		}

		lastErr = err
		if !retryable {
			break
		}
	}

	metrics.MarketFetches.WithLabelValues("error").Inc()
	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, reqURL, ticker string) (candles []models.Candle, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("chart api returned %d for %s", resp.StatusCode, ticker)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode chart response for %s: %w", ticker, err)
	}

	if payload.Chart.Error != nil {
		return nil, false, fmt.Errorf("chart api error for %s: %s (%s)",
			ticker, payload.Chart.Error.Description, payload.Chart.Error.Code)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, false, fmt.Errorf("no data for %s", ticker)
	}

	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	for i, ts := range result.Timestamp {
		// Bars without a close are placeholders (holidays, halts); skip them.
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		candle := models.Candle{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			candle.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			candle.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			candle.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}
		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, false, fmt.Errorf("no data for %s", ticker)
	}
	return candles, false, nil
}
