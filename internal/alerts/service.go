package alerts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"momentum-signal-go/internal/analysis"
	"momentum-signal-go/internal/market"
	"momentum-signal-go/internal/metrics"
	"momentum-signal-go/internal/models"
	"momentum-signal-go/internal/store"
)

// checkLookback is how much history a check fetches. One year gives every
// supported MA period room to settle before the latest bar.
const checkLookback = 365 * 24 * time.Hour

// ErrNotFound is returned when an alert id does not exist.
var ErrNotFound = errors.New("alert not found")

// Publisher broadcasts triggered signals to live listeners (SSE).
type Publisher interface {
	PublishSignal(ctx context.Context, sig models.TriggeredSignal) error
}

// Service owns the in-memory alert list and its JSON file persistence.
type Service struct {
	mu     sync.RWMutex
	alerts []models.Alert

	file   store.AlertFile
	market market.Fetcher
	pub    Publisher

	// OnTriggered is invoked for each signal produced by a check cycle.
	// Wired from main to fan out to web push and the signal history table.
	OnTriggered func(models.Alert, models.TriggeredSignal)
}

// NewService loads the persisted alert list and wires the collaborators.
// pub may be nil.
func NewService(file store.AlertFile, fetcher market.Fetcher, pub Publisher) *Service {
	return &Service{
		file:   file,
		market: fetcher,
		pub:    pub,
		alerts: file.Load(),
	}
}

// List returns a snapshot of all alerts in creation order.
func (s *Service) List() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Get returns one alert by id.
func (s *Service) Get(id string) (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return models.Alert{}, false
}

// Add validates and stores a new alert. An initial check populates the check
// data so the dashboard shows values immediately; if the fetch fails the
// alert is still created and the daily cycle retries.
func (s *Service) Add(ctx context.Context, ticker string, shortP, longP int, maType string) (models.Alert, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return models.Alert{}, errors.New("ticker is required")
	}
	if shortP <= 0 || longP <= 0 {
		return models.Alert{}, errors.New("periods must be positive")
	}
	if shortP >= longP {
		return models.Alert{}, errors.New("short period must be less than long period")
	}
	maType = strings.ToUpper(maType)
	if maType == "" {
		maType = models.MATypeEMA
	}
	if maType != models.MATypeEMA && maType != models.MATypeSMA {
		return models.Alert{}, fmt.Errorf("unsupported ma type %q", maType)
	}

	alert := models.NewAlert(ticker, shortP, longP, maType)

	// A signal found here is recorded on the alert but not broadcast:
	// creating a watch on an already-crossed pair is not a fresh event.
	if _, err := s.checkAlert(ctx, &alert); err != nil {
		log.Printf("alerts: initial check for %s failed: %v", alert.Ticker, err)
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	snapshot := make([]models.Alert, len(s.alerts))
	copy(snapshot, s.alerts)
	s.mu.Unlock()

	if err := s.file.Save(snapshot); err != nil {
		// Roll the append back so the list never holds an alert the
		// caller was told failed.
		s.mu.Lock()
		for i := range s.alerts {
			if s.alerts[i].ID == alert.ID {
				s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		return models.Alert{}, fmt.Errorf("failed to save alerts: %w", err)
	}
	return alert, nil
}

// Delete removes an alert by id.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	kept := make([]models.Alert, 0, len(s.alerts))
	found := false
	for _, a := range s.alerts {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	s.alerts = kept
	snapshot := make([]models.Alert, len(s.alerts))
	copy(snapshot, s.alerts)
	s.mu.Unlock()

	if !found {
		return ErrNotFound
	}
	return s.file.Save(snapshot)
}

// DeleteAll clears the alert list.
func (s *Service) DeleteAll() error {
	s.mu.Lock()
	s.alerts = []models.Alert{}
	s.mu.Unlock()
	return s.file.Save([]models.Alert{})
}

// CheckAll re-checks every alert, persists the updated check data once, and
// returns the signals triggered this cycle. Per-alert failures are logged
// and skipped.
func (s *Service) CheckAll(ctx context.Context) []models.TriggeredSignal {
	snapshot := s.List()

	var triggered []models.TriggeredSignal
	for i := range snapshot {
		sig, err := s.checkAlert(ctx, &snapshot[i])
		if err != nil {
			log.Printf("alerts: check %s (%s) failed: %v", snapshot[i].ID, snapshot[i].Ticker, err)
			continue
		}
		s.update(snapshot[i])

		if sig == nil {
			continue
		}
		triggered = append(triggered, *sig)
		metrics.SignalsTriggered.WithLabelValues(strings.ToLower(sig.Type)).Inc()

		if s.pub != nil {
			if err := s.pub.PublishSignal(ctx, *sig); err != nil {
				log.Println("alerts: publish failed:", err)
			}
		}
		if s.OnTriggered != nil {
			s.OnTriggered(snapshot[i], *sig)
		}
	}

	if err := s.file.Save(s.List()); err != nil {
		log.Println("alerts: save after check failed:", err)
	}
	metrics.ChecksRun.Inc()
	return triggered
}

// update writes a checked alert back into the live list by id. Alerts
// deleted mid-cycle are simply dropped.
func (s *Service) update(a models.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == a.ID {
			s.alerts[i] = a
			return
		}
	}
}

// checkAlert recomputes MA state for one alert and reports a signal when the
// latest bar carries a fresh crossover.
func (s *Service) checkAlert(ctx context.Context, alert *models.Alert) (*models.TriggeredSignal, error) {
	end := time.Now()
	start := end.Add(-checkLookback)

	candles, err := s.market.DailyCandles(ctx, alert.Ticker, start, end)
	if err != nil {
		return nil, err
	}
	if len(candles) < 2 {
		return nil, fmt.Errorf("not enough data for %s", alert.Ticker)
	}

	closes := analysis.Closes(candles)
	shortMA, err := analysis.MovingAverage(closes, alert.ShortPeriod, alert.MAType)
	if err != nil {
		return nil, err
	}
	longMA, err := analysis.MovingAverage(closes, alert.LongPeriod, alert.MAType)
	if err != nil {
		return nil, err
	}

	n := len(closes)
	currS, currL := shortMA[n-1], longMA[n-1]
	prevS, prevL := shortMA[n-2], longMA[n-2]

	if !math.IsNaN(currS) && !math.IsNaN(currL) {
		trend := "Diverging"
		if !math.IsNaN(prevS) && !math.IsNaN(prevL) &&
			math.Abs(currS-currL) < math.Abs(prevS-prevL) {
			trend = "Converging"
		}
		alert.LastCheck = models.CheckData{
			ShortVal: round2(currS),
			LongVal:  round2(currL),
			Trend:    trend,
		}
	}

	signals := analysis.Crossovers(shortMA, longMA, 0)

	// Most recent historical crossover, shown on the dashboard.
	for i := n - 1; i >= 0; i-- {
		if signals[i] != 0 {
			alert.LastCrossover = &models.Crossover{
				Signal: signals[i],
				Date:   candles[i].Date.Format("2006-01-02"),
			}
			break
		}
	}

	// Only a crossover on the latest bar counts as a live trigger.
	if last := signals[n-1]; last != 0 {
		now := time.Now()
		alert.LastTriggered = &now

		sigType := "Sell"
		if last == 1 {
			sigType = "Buy"
		}
		return &models.TriggeredSignal{
			Ticker: alert.Ticker,
			Type:   sigType,
			Price:  candles[n-1].Close,
			Date:   candles[n-1].Date.Format("2006-01-02"),
		}, nil
	}

	return nil, nil
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}
