package handlers

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"momentum-signal-go/internal/analysis"
	"momentum-signal-go/internal/metrics"
	"momentum-signal-go/internal/models"
)

type analyzeRequest struct {
	Tickers   []string `json:"tickers"`
	Periods   []int    `json:"periods"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	MAType    string   `json:"ma_type"`
	WaitDays  int      `json:"wait_days"`
}

type tickerResult struct {
	Ticker   string `json:"ticker"`
	BestPair struct {
		Short int `json:"short"`
		Long  int `json:"long"`
	} `json:"best_pair"`
	MaxGain             float64               `json:"max_gain"`
	OptimizationResults []analysis.PairResult `json:"optimization_results"`
	ChartData           chartData             `json:"chart_data"`
}

// chartData feeds the dashboard chart for the best pair. MA values are
// pointers so SMA warm-up bars serialize as null instead of breaking the
// JSON encoder on NaN.
type chartData struct {
	Dates   []string         `json:"dates"`
	Close   []float64        `json:"close"`
	ShortMA []*float64       `json:"short_ma"`
	LongMA  []*float64       `json:"long_ma"`
	Signals []int            `json:"signals"`
	Trades  []analysis.Trade `json:"trades"`
}

// AnalyzeHandler backtests every period pair for each requested ticker and
// returns the best combination with chart data.
func (h *Handler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metrics.AnalyzeRequests.Inc()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if len(req.Tickers) == 0 {
		http.Error(w, "At least one ticker is required", http.StatusBadRequest)
		return
	}
	if len(req.Periods) < 2 {
		http.Error(w, "At least two periods are required", http.StatusBadRequest)
		return
	}
	for _, p := range req.Periods {
		if p <= 0 {
			http.Error(w, "Periods must be positive", http.StatusBadRequest)
			return
		}
	}
	if req.WaitDays < 0 {
		http.Error(w, "wait_days cannot be negative", http.StatusBadRequest)
		return
	}

	req.MAType = strings.ToUpper(req.MAType)
	switch req.MAType {
	case "", models.MATypeEMA, models.MATypeSMA:
	default:
		http.Error(w, "Unsupported ma_type, expected EMA or SMA", http.StatusBadRequest)
		return
	}

	end := time.Now()
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			http.Error(w, "Invalid end_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		end = t
	}
	start := end.AddDate(-1, 0, 0)
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			http.Error(w, "Invalid start_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		start = t
	}
	if !start.Before(end) {
		http.Error(w, "start_date must be before end_date", http.StatusBadRequest)
		return
	}

	results := make([]tickerResult, 0, len(req.Tickers))
	for _, ticker := range req.Tickers {
		res, err := h.analyzeTicker(r, ticker, start, end, req)
		if err != nil {
			log.Printf("Analysis failed for %s: %v", ticker, err)
			continue
		}
		results = append(results, res)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"results": results})
}

func (h *Handler) analyzeTicker(r *http.Request, ticker string, start, end time.Time, req analyzeRequest) (tickerResult, error) {
	var res tickerResult

	candles, err := h.Market.DailyCandles(r.Context(), ticker, start, end)
	if err != nil {
		return res, err
	}

	bestShort, bestLong, bestGain, pairs, err := analysis.OptimizePairs(candles, req.Periods, req.MAType, req.WaitDays)
	if err != nil {
		return res, err
	}

	closes := analysis.Closes(candles)
	shortMA, err := analysis.MovingAverage(closes, bestShort, req.MAType)
	if err != nil {
		return res, err
	}
	longMA, err := analysis.MovingAverage(closes, bestLong, req.MAType)
	if err != nil {
		return res, err
	}
	signals := analysis.Crossovers(shortMA, longMA, req.WaitDays)
	_, trades := analysis.Backtest(candles, signals)

	chart := chartData{
		Dates:   make([]string, len(candles)),
		Close:   closes,
		ShortMA: nullableSeries(shortMA),
		LongMA:  nullableSeries(longMA),
		Signals: signals,
		Trades:  trades,
	}
	for i, c := range candles {
		chart.Dates[i] = c.Date.Format("2006-01-02")
	}

	res.Ticker = strings.ToUpper(strings.TrimSpace(ticker))
	res.BestPair.Short = bestShort
	res.BestPair.Long = bestLong
	res.MaxGain = bestGain
	res.OptimizationResults = pairs
	res.ChartData = chart
	return res, nil
}

func nullableSeries(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) {
			v := values[i]
			out[i] = &v
		}
	}
	return out
}
