package repository

import (
	"context"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/dialog"
)

// SessionRepository keeps the in-flight dialog of each user.
// Get returns an idle session when nothing is stored.
type SessionRepository interface {
	Get(ctx context.Context, userID int64) (dialog.Session, error)
	Save(ctx context.Context, s dialog.Session) error
	Delete(ctx context.Context, userID int64) error
}
