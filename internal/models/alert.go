package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Moving average types supported by the analysis engine.
const (
	MATypeEMA = "EMA"
	MATypeSMA = "SMA"
)

// CheckData holds the most recent computed MA values for an alert.
// The values are nil until the first successful check.
type CheckData struct {
	ShortVal *float64 `json:"short_val"`
	LongVal  *float64 `json:"long_val"`
	Trend    string   `json:"trend"` // "Converging", "Diverging" or "N/A"
}

// Crossover records a detected crossover event.
type Crossover struct {
	Signal int    `json:"signal"` // 1 = buy, -1 = sell
	Date   string `json:"date"`   // YYYY-MM-DD
}

// Alert is a persisted crossover watch on one ticker's MA pair.
// The JSON tags define the on-disk document format in alerts.json.
type Alert struct {
	ID            string     `json:"id"`
	Ticker        string     `json:"ticker"`
	ShortPeriod   int        `json:"short_p"`
	LongPeriod    int        `json:"long_p"`
	MAType        string     `json:"ma_type"`
	CreatedAt     time.Time  `json:"created_at"`
	LastTriggered *time.Time `json:"last_triggered"`
	LastCheck     CheckData  `json:"last_check_data"`
	LastCrossover *Crossover `json:"last_crossover"`
}

// NewAlert builds an alert with a fresh UUID and normalized fields.
func NewAlert(ticker string, shortP, longP int, maType string) Alert {
	if maType == "" {
		maType = MATypeEMA
	}
	return Alert{
		ID:          uuid.NewString(),
		Ticker:      strings.ToUpper(strings.TrimSpace(ticker)),
		ShortPeriod: shortP,
		LongPeriod:  longP,
		MAType:      strings.ToUpper(maType),
		CreatedAt:   time.Now(),
		LastCheck:   CheckData{Trend: "N/A"},
	}
}

// TriggeredSignal is emitted when a check finds a crossover on the latest bar.
type TriggeredSignal struct {
	Ticker string  `json:"ticker"`
	Type   string  `json:"type"` // "Buy" or "Sell"
	Price  float64 `json:"price"`
	Date   string  `json:"date"`
}
