package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"momentum-signal-go/internal/alerts"
	"momentum-signal-go/internal/market"
	"momentum-signal-go/internal/store"
)

type Handler struct {
	Alerts    *alerts.Service
	Market    market.Fetcher
	Accounts  store.AccountStore // nil when no database is configured
	Bus       *store.RedisStore
	Tmpl      *template.Template
	AdminTmpl map[string]*template.Template
}

func NewHandler(svc *alerts.Service, fetcher market.Fetcher, accounts store.AccountStore, bus *store.RedisStore, tmpl *template.Template, adminTmpl map[string]*template.Template) *Handler {
	return &Handler{
		Alerts:    svc,
		Market:    fetcher,
		Accounts:  accounts,
		Bus:       bus,
		Tmpl:      tmpl,
		AdminTmpl: adminTmpl,
	}
}

func (h *Handler) RenderAdminPage(w http.ResponseWriter, page string, data any) {
	if tmpl, ok := h.AdminTmpl[page]; ok {
		if err := tmpl.Execute(w, data); err != nil {
			log.Println("Template error:", err)
			http.Error(w, "Template error", http.StatusInternalServerError)
		}
	} else {
		http.Error(w, "Page not found", http.StatusNotFound)
	}
}

func (h *Handler) AdminLoginPage(w http.ResponseWriter, r *http.Request) {
	h.RenderAdminPage(w, "login", nil)
}

func (h *Handler) AdminDashboardPage(w http.ResponseWriter, r *http.Request) {
	userID, username, _ := GetCurrentUser(r)
	h.RenderAdminPage(w, "dashboard", map[string]any{
		"UserID":   userID,
		"Username": username,
	})
}

func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if err := h.Tmpl.Execute(w, map[string]any{"Alerts": h.Alerts.List()}); err != nil {
		log.Println("template error:", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// SSEHandler streams triggered signals to the browser as server-sent events.
func (h *Handler) SSEHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Subscribe to Redis channel
	pubsub := h.Bus.Subscribe(r.Context())
	defer pubsub.Close()

	ch := pubsub.Channel()

	fmt.Fprintf(w, "data: %s\n\n", "connected")
	w.(http.Flusher).Flush()

	for {
		select {
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg.Payload)
			w.(http.Flusher).Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// SignalHistoryHandler returns recent triggered signals from the database.
func (h *Handler) SignalHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	signals, err := h.Accounts.ListSignals(r.Context(), limit)
	if err != nil {
		log.Println("Failed to get signal history:", err)
		http.Error(w, "Failed to get signal history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"signals": signals,
		"count":   len(signals),
	})
}
