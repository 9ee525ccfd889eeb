package repository

import (
	"context"
	"time"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

// MealRepository is the append-only consumption log.
type MealRepository interface {
	Append(ctx context.Context, m *entity.Meal) error
	// AppendWithCalorie writes c (insert-if-absent) and m in one transaction.
	// The returned flag reports whether c was newly inserted.
	AppendWithCalorie(ctx context.Context, c *entity.CalorieEntry, m *entity.Meal) (bool, error)
	ListByUser(ctx context.Context, userID int64, since time.Time) ([]entity.Meal, error)
	DailyTotals(ctx context.Context, userID int64, limit int) ([]entity.DayTotal, error)
}
