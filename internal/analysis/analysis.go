package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"momentum-signal-go/internal/models"
)

// EMA returns the exponential moving average with alpha = 2/(period+1),
// seeded with the first value.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// SMA returns the simple moving average. Positions before the window fills
// are NaN.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// MovingAverage dispatches on the MA type.
func MovingAverage(values []float64, period int, maType string) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	switch maType {
	case models.MATypeEMA, "":
		return EMA(values, period), nil
	case models.MATypeSMA:
		return SMA(values, period), nil
	}
	return nil, fmt.Errorf("unknown ma type %q", maType)
}

// Crossovers returns a per-bar signal series: 1 where the short MA crosses
// above the long, -1 where it crosses below, 0 elsewhere. Comparisons
// involving NaN count as false, so SMA warm-up bars never signal.
//
// waitDays > 0 requires the new relation to hold for that many further bars
// before the crossover counts; unconfirmable crossovers near the end of the
// series stay 0.
func Crossovers(short, long []float64, waitDays int) []int {
	n := len(short)
	if len(long) < n {
		n = len(long)
	}

	above := make([]bool, n)
	for i := 0; i < n; i++ {
		above[i] = short[i] > long[i]
	}

	signals := make([]int, n)
	for i := 1; i < n; i++ {
		if above[i] == above[i-1] {
			continue
		}
		if waitDays > 0 && !confirmed(above, i, waitDays) {
			continue
		}
		if above[i] {
			signals[i] = 1
		} else {
			signals[i] = -1
		}
	}
	return signals
}

func confirmed(above []bool, i, waitDays int) bool {
	state := above[i]
	for j := i + 1; j <= i+waitDays; j++ {
		if j >= len(above) || above[j] != state {
			return false
		}
	}
	return true
}

// Trade is one backtest entry/exit record.
type Trade struct {
	Type    string  `json:"type"` // "buy", "sell" or "hold"
	Price   float64 `json:"price"`
	Date    string  `json:"date,omitempty"`
	GainPct float64 `json:"gain_pct,omitempty"`
}

// Backtest simulates a long-only strategy: buy on +1 while flat, sell on -1
// while held. Returns the total percent gain across trades; an open position
// at the end contributes its unrealized gain as a final "hold" trade.
func Backtest(candles []models.Candle, signals []int) (float64, []Trade) {
	var (
		holding    bool
		entryPrice float64
		totalGain  float64
		trades     []Trade
	)

	for i, sig := range signals {
		if i >= len(candles) {
			break
		}
		price := candles[i].Close
		date := candles[i].Date.Format("2006-01-02")

		switch {
		case sig == 1 && !holding:
			holding = true
			entryPrice = price
			trades = append(trades, Trade{Type: "buy", Price: price, Date: date})

		case sig == -1 && holding:
			gain := (price - entryPrice) / entryPrice * 100
			totalGain += gain
			holding = false
			trades = append(trades, Trade{Type: "sell", Price: price, Date: date, GainPct: gain})
		}
	}

	if holding && len(candles) > 0 {
		last := candles[len(candles)-1]
		gain := (last.Close - entryPrice) / entryPrice * 100
		totalGain += gain
		trades = append(trades, Trade{
			Type:    "hold",
			Price:   last.Close,
			Date:    last.Date.Format("2006-01-02"),
			GainPct: gain,
		})
	}

	return totalGain, trades
}

// PairResult reports the backtested gain for one short/long combination.
type PairResult struct {
	Pair string  `json:"pair"`
	Gain float64 `json:"gain"`
}

// OptimizePairs backtests every ascending two-period combination of the given
// periods and returns the pair that maximizes total gain.
func OptimizePairs(candles []models.Candle, periods []int, maType string, waitDays int) (bestShort, bestLong int, bestGain float64, results []PairResult, err error) {
	if len(periods) < 2 {
		return 0, 0, 0, nil, errors.New("need at least two periods")
	}

	closes := Closes(candles)
	sorted := append([]int(nil), periods...)
	sort.Ints(sorted)

	mas := make(map[int][]float64, len(sorted))
	for _, p := range sorted {
		ma, merr := MovingAverage(closes, p, maType)
		if merr != nil {
			return 0, 0, 0, nil, merr
		}
		mas[p] = ma
	}

	bestGain = math.Inf(-1)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			shortP, longP := sorted[i], sorted[j]
			signals := Crossovers(mas[shortP], mas[longP], waitDays)
			gain, _ := Backtest(candles, signals)

			results = append(results, PairResult{
				Pair: fmt.Sprintf("%d/%d", shortP, longP),
				Gain: gain,
			})
			if gain > bestGain {
				bestGain = gain
				bestShort, bestLong = shortP, longP
			}
		}
	}

	return bestShort, bestLong, bestGain, results, nil
}

// Closes extracts the close series from candles.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
