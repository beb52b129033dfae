package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"momentum-signal-go/internal/alerts"
	"momentum-signal-go/internal/config"
	"momentum-signal-go/internal/models"
	"momentum-signal-go/internal/store"
)

type fakeFetcher struct {
	closes []float64
	err    error
}

func (f *fakeFetcher) DailyCandles(ctx context.Context, ticker string, start, end time.Time) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(f.closes))
	for i, c := range f.closes {
		candles[i] = models.Candle{Date: base.AddDate(0, 0, i), Close: c}
	}
	return candles, nil
}

func newTestHandler(t *testing.T, fetcher *fakeFetcher) *Handler {
	t.Helper()
	file, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := alerts.NewService(file, fetcher, nil)
	tmpl := template.Must(template.New("index").Parse("alerts: {{len .Alerts}}"))
	return NewHandler(svc, fetcher, nil, nil, tmpl, nil)
}

func TestHealthHandler(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q, want ok", resp["status"])
	}
}

func TestIndexHandlerRendersAlerts(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 11, 12}})
	if _, err := h.Alerts.Add(context.Background(), "AAPL", 2, 3, "EMA"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.IndexHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "alerts: 1" {
		t.Errorf("body = %q", got)
	}
}

func TestIndexHandlerNotFoundOnOtherPaths(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	h.IndexHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCreateAndListAlerts(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 11, 12, 13}})

	body := `{"ticker":"aapl","short_p":2,"long_p":3,"ma_type":"EMA"}`
	req := httptest.NewRequest(http.MethodPost, "/api/alerts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateAlertHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Success bool         `json:"success"`
		Alert   models.Alert `json:"alert"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if !created.Success || created.Alert.Ticker != "AAPL" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	rec = httptest.NewRecorder()
	h.GetAlertsHandler(rec, req)

	var listed struct {
		Alerts []models.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if listed.Count != 1 || listed.Alerts[0].ID != created.Alert.ID {
		t.Errorf("list = %+v, want the created alert", listed)
	}
}

func TestCreateAlertRejectsBadPeriods(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 11}})

	body := `{"ticker":"AAPL","short_p":5,"long_p":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/alerts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateAlertHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteAlertHandler(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 11, 12}})
	alert, err := h.Alerts.Add(context.Background(), "AAPL", 2, 3, "EMA")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/alerts/"+alert.ID, nil)
	rec := httptest.NewRecorder()
	h.DeleteAlertHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/alerts/"+alert.ID, nil)
	rec = httptest.NewRecorder()
	h.DeleteAlertHandler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestAnalyzeHandler(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 10, 10, 10, 20, 20, 20, 10, 10}})

	body := `{"tickers":["aapl"],"periods":[2,3,5],"ma_type":"EMA"}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.AnalyzeHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []struct {
			Ticker   string `json:"ticker"`
			BestPair struct {
				Short int `json:"short"`
				Long  int `json:"long"`
			} `json:"best_pair"`
			MaxGain             float64 `json:"max_gain"`
			OptimizationResults []struct {
				Pair string  `json:"pair"`
				Gain float64 `json:"gain"`
			} `json:"optimization_results"`
			ChartData struct {
				Dates   []string   `json:"dates"`
				Close   []float64  `json:"close"`
				ShortMA []*float64 `json:"short_ma"`
				LongMA  []*float64 `json:"long_ma"`
			} `json:"chart_data"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	res := resp.Results[0]
	if res.Ticker != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", res.Ticker)
	}
	if len(res.OptimizationResults) != 3 {
		t.Errorf("optimization results = %d, want 3 pairs", len(res.OptimizationResults))
	}
	if res.BestPair.Short >= res.BestPair.Long {
		t.Errorf("best pair %d/%d not ascending", res.BestPair.Short, res.BestPair.Long)
	}
	if len(res.ChartData.Dates) != 9 || len(res.ChartData.Close) != 9 {
		t.Errorf("chart data length = %d dates, %d closes, want 9",
			len(res.ChartData.Dates), len(res.ChartData.Close))
	}
}

func TestAnalyzeHandlerValidation(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 11}})

	cases := []struct {
		name string
		body string
	}{
		{"no tickers", `{"tickers":[],"periods":[2,3]}`},
		{"one period", `{"tickers":["AAPL"],"periods":[2]}`},
		{"negative period", `{"tickers":["AAPL"],"periods":[-2,3],"ma_type":"SMA"}`},
		{"zero period", `{"tickers":["AAPL"],"periods":[0,3]}`},
		{"unknown ma type", `{"tickers":["AAPL"],"periods":[2,3],"ma_type":"WMA"}`},
		{"bad start date", `{"tickers":["AAPL"],"periods":[2,3],"start_date":"03/15/2024"}`},
		{"bad end date", `{"tickers":["AAPL"],"periods":[2,3],"end_date":"yesterday"}`},
		{"negative wait", `{"tickers":["AAPL"],"periods":[2,3],"wait_days":-1}`},
		{"inverted range", `{"tickers":["AAPL"],"periods":[2,3],"start_date":"2024-06-01","end_date":"2024-01-01"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.AnalyzeHandler(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAnalyzeHandlerNormalizesMAType(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 11, 12, 13, 14, 15}})

	body := `{"tickers":["AAPL"],"periods":[2,3],"ma_type":"sma"}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.AnalyzeHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Results []struct {
			Ticker string `json:"ticker"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1 for lowercase ma_type", len(resp.Results))
	}
}

func TestAuthMiddlewareGuardsAlertMutations(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 11, 12}})

	body := `{"ticker":"AAPL","short_p":2,"long_p":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/alerts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	AuthMiddleware(h.CreateAlertHandler)(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("create status = %d, want 401 without a session", rec.Code)
	}
	if len(h.Alerts.List()) != 0 {
		t.Error("alert created despite missing session")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/alerts/some-id", nil)
	rec = httptest.NewRecorder()
	AuthMiddleware(h.DeleteAlertHandler)(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("delete status = %d, want 401 without a session", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/alerts/check", strings.NewReader("{}"))
	rec = httptest.NewRecorder()
	AuthMiddleware(h.CheckNowHandler)(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("check status = %d, want 401 without a session", rec.Code)
	}
}

func TestAnalyzeHandlerSMAWarmupSerializesAsNull(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 11, 12, 13, 14, 15}})

	body := `{"tickers":["AAPL"],"periods":[2,3],"ma_type":"SMA"}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.AnalyzeHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("null")) {
		t.Error("expected warm-up bars to serialize as null")
	}
}

func TestCheckNowHandlerSignature(t *testing.T) {
	old := config.Cfg.CheckSecret
	config.Cfg.CheckSecret = "supersecret"
	defer func() { config.Cfg.CheckSecret = old }()

	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 10, 10, 10, 20}})

	// Unsigned request is rejected.
	req := httptest.NewRequest(http.MethodPost, "/api/alerts/check", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.CheckNowHandler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned status = %d, want 401", rec.Code)
	}

	// Signed request runs the cycle.
	body := []byte("{}")
	mac := hmac.New(sha256.New, []byte("supersecret"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	req = httptest.NewRequest(http.MethodPost, "/api/alerts/check", bytes.NewReader(body))
	req.Header.Set("X-Signal-Signature", sig)
	rec = httptest.NewRecorder()
	h.CheckNowHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("signed status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Checked   int                      `json:"checked"`
		Triggered []models.TriggeredSignal `json:"triggered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Checked != 0 {
		t.Errorf("checked = %d, want 0 alerts", resp.Checked)
	}
}

func TestCheckNowHandlerTriggers(t *testing.T) {
	old := config.Cfg.CheckSecret
	config.Cfg.CheckSecret = ""
	defer func() { config.Cfg.CheckSecret = old }()

	// Quiet series on create, then a jump before the manual check.
	fetcher := &fakeFetcher{closes: []float64{10, 10, 10, 10, 10}}
	h := newTestHandler(t, fetcher)
	if _, err := h.Alerts.Add(context.Background(), "AAPL", 2, 3, "EMA"); err != nil {
		t.Fatal(err)
	}
	fetcher.closes = []float64{10, 10, 10, 10, 20}

	req := httptest.NewRequest(http.MethodPost, "/api/alerts/check", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.CheckNowHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Checked   int                      `json:"checked"`
		Triggered []models.TriggeredSignal `json:"triggered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Checked != 1 || len(resp.Triggered) != 1 {
		t.Fatalf("checked=%d triggered=%d, want 1/1", resp.Checked, len(resp.Triggered))
	}
	if resp.Triggered[0].Type != "Buy" {
		t.Errorf("type = %q, want Buy", resp.Triggered[0].Type)
	}
}

func TestPurgeAlertsHandler(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{closes: []float64{10, 11, 12}})
	if _, err := h.Alerts.Add(context.Background(), "AAPL", 2, 3, "EMA"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/purge", nil)
	rec := httptest.NewRecorder()
	h.PurgeAlertsHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(h.Alerts.List()) != 0 {
		t.Error("alerts remain after purge")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/purge", nil)
	rec = httptest.NewRecorder()
	h.PurgeAlertsHandler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}
