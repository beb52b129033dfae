package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const chartPayload = `{
  "chart": {
    "result": [{
      "timestamp": [1767225600, 1767312000, 1767398400],
      "indicators": {
        "quote": [{
          "open":   [10.0, null, 12.0],
          "high":   [11.0, null, 13.0],
          "low":    [9.5,  null, 11.5],
          "close":  [10.5, null, 12.5],
          "volume": [1000, null, 3000]
        }]
      }
    }],
    "error": null
  }
}`

func TestDailyCandles(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, chartPayload)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-agent", nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	candles, err := c.DailyCandles(context.Background(), "aapl", start, end)
	if err != nil {
		t.Fatalf("DailyCandles: %v", err)
	}

	if gotPath != "/v8/finance/chart/AAPL" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if !strings.Contains(gotQuery, "interval=1d") {
		t.Errorf("Missing interval in query %s", gotQuery)
	}
	if !strings.Contains(gotQuery, fmt.Sprintf("period1=%d", start.Unix())) {
		t.Errorf("Missing period1 in query %s", gotQuery)
	}

	// The null middle bar must be dropped.
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}
	if candles[0].Close != 10.5 || candles[1].Close != 12.5 {
		t.Errorf("Unexpected closes: %v / %v", candles[0].Close, candles[1].Close)
	}
	if candles[1].Volume != 3000 {
		t.Errorf("Unexpected volume: %d", candles[1].Volume)
	}
}

func TestDailyCandlesChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-agent", nil)
	_, err := c.DailyCandles(context.Background(), "NOPE", time.Now().AddDate(0, -1, 0), time.Now())
	if err == nil || !strings.Contains(err.Error(), "NOPE") {
		t.Errorf("Expected chart api error mentioning ticker, got %v", err)
	}
}

func TestDailyCandlesEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-agent", nil)
	_, err := c.DailyCandles(context.Background(), "AAPL", time.Now().AddDate(0, -1, 0), time.Now())
	if err == nil {
		t.Error("Expected error for empty result")
	}
}

func TestDailyCandlesClientErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-agent", nil)
	_, err := c.DailyCandles(context.Background(), "AAPL", time.Now().AddDate(0, -1, 0), time.Now())
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("4xx should not be retried, got %d calls", calls)
	}
}

func TestDailyCandlesEmptyTicker(t *testing.T) {
	c := NewClient("http://unused", "test-agent", nil)
	if _, err := c.DailyCandles(context.Background(), "  ", time.Now(), time.Now()); err == nil {
		t.Error("Expected error for empty ticker")
	}
}
