package models

import "time"

// SignalRecord is a triggered signal archived to the history table.
type SignalRecord struct {
	ID        int       `json:"id"`
	AlertID   string    `json:"alert_id"`
	Ticker    string    `json:"ticker"`
	Type      string    `json:"type"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
