package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"momentum-signal-go/internal/alerts"
)

func (h *Handler) GetAlertsHandler(w http.ResponseWriter, r *http.Request) {
	list := h.Alerts.List()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"alerts": list,
		"count":  len(list),
	})
}

func (h *Handler) CreateAlertHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker      string `json:"ticker"`
		ShortPeriod int    `json:"short_p"`
		LongPeriod  int    `json:"long_p"`
		MAType      string `json:"ma_type"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	alert, err := h.Alerts.Add(r.Context(), req.Ticker, req.ShortPeriod, req.LongPeriod, req.MAType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "alert": alert})
}

func (h *Handler) DeleteAlertHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	if id == "" {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.Alerts.Delete(id); err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		log.Println("Failed to delete alert:", err)
		http.Error(w, "Failed to delete alert", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// CheckNowHandler runs a check cycle on demand. Intended for external cron
// services; when CHECK_SECRET is set the request body must be signed.
func (h *Handler) CheckNowHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !validateSharedSecret(r) {
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	triggered := h.Alerts.CheckAll(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"checked":   len(h.Alerts.List()),
		"triggered": triggered,
	})
}
