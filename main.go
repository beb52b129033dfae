package main

import (
	"context"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"momentum-signal-go/internal/alerts"
	"momentum-signal-go/internal/config"
	"momentum-signal-go/internal/handlers"
	"momentum-signal-go/internal/market"
	"momentum-signal-go/internal/models"
	"momentum-signal-go/internal/store"
)

func main() {
	config.Load()
	cfg := config.Cfg

	// Alert persistence (alerts.json)
	fileStore, err := store.NewFileStore(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to set up alert storage: %v", err)
	}
	log.Println("Alerts file:", fileStore.Path())

	// Redis: candle cache + signal pub/sub
	redisStore := store.NewRedisStore(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.QuoteCacheTTL)

	marketClient := market.NewClient(cfg.MarketDataURL, cfg.UserAgent, redisStore)

	svc := alerts.NewService(fileStore, marketClient, redisStore)

	// PostgreSQL is optional: without it the dashboard runs in single-user
	// mode with accounts, push and signal history disabled.
	ctx := context.Background()
	var accounts store.AccountStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		if err := pgStore.RunMigrations(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Database migrations completed")
		accounts = pgStore
	} else {
		log.Println("DATABASE_URL not set: accounts, push and signal history disabled")
	}

	// Parse templates
	tmplPath := filepath.Join("web", "templates", "index.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		log.Fatalf("Failed to parse template: %v", err)
	}

	// Parse admin templates
	adminTmpl := make(map[string]*template.Template)
	adminTemplates := map[string]string{
		"login":     filepath.Join("web", "templates", "admin", "login.html"),
		"dashboard": filepath.Join("web", "templates", "admin", "dashboard.html"),
	}
	for name, path := range adminTemplates {
		t, err := template.ParseFiles(path)
		if err != nil {
			log.Printf("Failed to parse admin template %s: %v", name, err)
		} else {
			adminTmpl[name] = t
		}
	}

	h := handlers.NewHandler(svc, marketClient, accounts, redisStore, tmpl, adminTmpl)

	// Sessions guard alert mutations when accounts are enabled; without a
	// database there are no sessions to check.
	protect := func(next http.HandlerFunc) http.HandlerFunc { return next }
	if accounts != nil {
		handlers.InitSessionStore(cfg.SessionKey)
		handlers.InitVAPID()
		h.InitSession(ctx)
		protect = handlers.AuthMiddleware
	}

	// Fan triggered signals out to web push and the history table.
	svc.OnTriggered = func(alert models.Alert, sig models.TriggeredSignal) {
		if accounts != nil {
			if err := accounts.InsertSignal(ctx, alert.ID, sig); err != nil {
				log.Println("Failed to record signal:", err)
			}
		}
		payload, _ := json.Marshal(map[string]string{
			"title": sig.Type + " signal: " + sig.Ticker,
			"body":  sig.Date,
		})
		h.SendPushNotification(string(payload))
	}

	// Public routes
	http.HandleFunc("/", h.IndexHandler)
	http.HandleFunc("/health", h.HealthHandler)
	http.HandleFunc("/events", h.SSEHandler)
	http.HandleFunc("/api/analyze", h.AnalyzeHandler)
	http.HandleFunc("/api/alerts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetAlertsHandler(w, r)
		case http.MethodPost:
			protect(h.CreateAlertHandler)(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// The manual check carries HMAC auth for external cron services; when no
	// shared secret is configured it falls back to session auth.
	checkNow := h.CheckNowHandler
	if cfg.CheckSecret == "" {
		checkNow = protect(h.CheckNowHandler)
	}
	http.HandleFunc("/api/alerts/check", checkNow)

	http.HandleFunc("/api/alerts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			protect(h.DeleteAlertHandler)(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Metrics
	http.Handle("/metrics", promhttp.Handler())

	// Account routes need the database.
	if accounts != nil {
		http.HandleFunc("/api/login", h.LoginHandler)
		http.HandleFunc("/api/verify-2fa", h.Verify2FALoginHandler)
		http.HandleFunc("/api/me", handlers.AuthMiddleware(h.GetCurrentUserHandler))
		http.HandleFunc("/api/change-password", handlers.AuthMiddleware(h.ChangePasswordHandler))
		http.HandleFunc("/api/2fa/generate", handlers.AuthMiddleware(h.Generate2FAHandler))
		http.HandleFunc("/api/2fa/enable", handlers.AuthMiddleware(h.Enable2FAHandler))
		http.HandleFunc("/api/2fa/disable", handlers.AuthMiddleware(h.Disable2FAHandler))

		http.HandleFunc("/api/vapid-key", h.GetVAPIDKeyHandler)
		http.HandleFunc("/api/subscribe", handlers.AuthMiddleware(h.SubscribePushHandler))
		http.HandleFunc("/api/signals", handlers.AuthMiddleware(h.SignalHistoryHandler))

		// Admin routes (login/logout)
		http.HandleFunc("/admin/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				h.AdminLoginPage(w, r)
			} else {
				h.LoginHandler(w, r)
			}
		})
		http.HandleFunc("/admin/logout", h.LogoutHandler)
		http.HandleFunc("/admin/dashboard", handlers.AuthMiddleware(handlers.AdminMiddleware(h.AdminDashboardPage)))

		// Admin API routes (protected)
		http.HandleFunc("/api/admin/users", handlers.AuthMiddleware(handlers.AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				h.GetUsersHandler(w, r)
			case http.MethodPost:
				h.CreateUserHandler(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		http.HandleFunc("/api/admin/users/", handlers.AuthMiddleware(handlers.AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPut:
				h.UpdateUserHandler(w, r)
			case http.MethodDelete:
				h.DeleteUserHandler(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		http.HandleFunc("/api/admin/reset-password", handlers.AuthMiddleware(handlers.AdminMiddleware(h.AdminResetPasswordHandler)))
		http.HandleFunc("/api/admin/disable-2fa", handlers.AuthMiddleware(handlers.AdminMiddleware(h.AdminDisable2FAHandler)))
		http.HandleFunc("/api/admin/purge", handlers.AuthMiddleware(handlers.AdminMiddleware(h.PurgeAlertsHandler)))
	}

	// Serve static files (PWA assets)
	fs := http.FileServer(http.Dir("web/static"))
	http.Handle("/static/", http.StripPrefix("/static/", fs))

	// Daily midnight check
	if cfg.CheckEnabled {
		svc.StartScheduler(ctx)
	} else {
		log.Println("Daily check disabled (CHECK_ENABLED=false)")
	}

	log.Println("Listening on :" + cfg.Port)
	if accounts != nil {
		log.Println("Admin dashboard: http://localhost:" + cfg.Port + "/admin/login")
	}
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		log.Fatal(err)
	}
}
