package repository

import (
	"context"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

// CalorieRepository is the cache-of-record for dish energy densities.
// Get returns ErrNotFound for unknown names. Upsert inserts only when the name is absent and
// reports whether this call created the row; an existing entry is never overwritten.
type CalorieRepository interface {
	Get(ctx context.Context, name string) (*entity.CalorieEntry, error)
	Upsert(ctx context.Context, c *entity.CalorieEntry) (bool, error)
}
