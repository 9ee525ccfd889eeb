package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/dialog"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/repository"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

// SessionRepository stores one JSON document per user under dialog:session:<id>.
// Every save refreshes the TTL, so a session expires after ttl of inactivity (0 disables).
type SessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewSessionRepository(rdb redis.Cmdable, ttl time.Duration) *SessionRepository {
	return &SessionRepository{rdb: rdb, ttl: ttl, now: time.Now}
}

func sessionKey(userID int64) string {
	return "dialog:session:" + strconv.FormatInt(userID, 10)
}

func (r *SessionRepository) Get(ctx context.Context, userID int64) (dialog.Session, error) {
	var s dialog.Session
	found, err := helpers.RedisGetJSON(ctx, r.rdb, sessionKey(userID), &s)
	if err != nil {
		return dialog.Session{}, fmt.Errorf("load session %d: %w", userID, err)
	}
	if !found {
		return dialog.NewSession(userID), nil
	}
	s.UserID = userID
	return s, nil
}

func (r *SessionRepository) Save(ctx context.Context, s dialog.Session) error {
	if s.Idle() {
		return r.Delete(ctx, s.UserID)
	}
	s.UpdatedAt = r.now().UTC()
	if err := helpers.RedisSetJSON(ctx, r.rdb, sessionKey(s.UserID), s, r.ttl); err != nil {
		return fmt.Errorf("save session %d: %w", s.UserID, err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, userID int64) error {
	if err := helpers.RedisDel(ctx, r.rdb, sessionKey(userID)); err != nil {
		return fmt.Errorf("delete session %d: %w", userID, err)
	}
	return nil
}

var _ repository.SessionRepository = (*SessionRepository)(nil)
