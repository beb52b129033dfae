package store

import (
	"context"

	"momentum-signal-go/internal/models"
)

// AlertFile persists the alert list as a JSON document (alerts.json).
type AlertFile interface {
	Load() []models.Alert
	Save(alerts []models.Alert) error
	Path() string
}

// AccountStore handles dashboard accounts, push subscriptions and the
// triggered-signal history (PostgreSQL).
type AccountStore interface {
	// User methods
	CreateUser(ctx context.Context, username, password, role string) (models.User, error)
	GetUser(ctx context.Context, id int) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id int, username, role string) error
	DeleteUser(ctx context.Context, id int) error
	UpdateUserPassword(ctx context.Context, userID int, newPasswordHash string) error

	// 2FA methods
	UpdateUser2FA(ctx context.Context, userID int, totpSecret string, enabled bool) error
	Disable2FA(ctx context.Context, userID int) error

	// Push subscriptions
	SavePushSubscription(ctx context.Context, userID int, endpoint, p256dh, auth string) error
	GetPushSubscriptions(ctx context.Context) ([]models.PushSubscription, error)

	// Signal history
	InsertSignal(ctx context.Context, alertID string, sig models.TriggeredSignal) error
	ListSignals(ctx context.Context, limit int) ([]models.SignalRecord, error)
}
