package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/repository"
)

const insertMealSQL = `
	INSERT INTO meals (user_id, dish_name, grams, kcal, eaten_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id
`

type MealRepository struct {
	pool *pgxpool.Pool
}

func NewMealRepository(pool *pgxpool.Pool) *MealRepository {
	return &MealRepository{pool: pool}
}

func insertMeal(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, m *entity.Meal) error {
	if m.EatenAt.IsZero() {
		m.EatenAt = time.Now().UTC()
	}
	return q.QueryRow(ctx, insertMealSQL, m.UserID, m.DishName, m.Grams, m.Kcal, m.EatenAt).Scan(&m.ID)
}

func (r *MealRepository) Append(ctx context.Context, m *entity.Meal) error {
	return insertMeal(ctx, r.pool, m)
}

// AppendWithCalorie stores a user-supplied calorie figure and the meal that used it atomically.
// The calorie insert is skipped when the name already exists; the meal is recorded either way.
func (r *MealRepository) AppendWithCalorie(ctx context.Context, c *entity.CalorieEntry, m *entity.Meal) (bool, error) {
	var inserted bool
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if inserted, err = insertCalorie(ctx, tx, c); err != nil {
			return err
		}
		return insertMeal(ctx, tx, m)
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (r *MealRepository) ListByUser(ctx context.Context, userID int64, since time.Time) ([]entity.Meal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, dish_name, grams, kcal, eaten_at
		FROM meals
		WHERE user_id = $1 AND eaten_at >= $2
		ORDER BY eaten_at ASC, id ASC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Meal
	for rows.Next() {
		var m entity.Meal
		if err := rows.Scan(&m.ID, &m.UserID, &m.DishName, &m.Grams, &m.Kcal, &m.EatenAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DailyTotals returns per-day sums (UTC days), most recent first.
func (r *MealRepository) DailyTotals(ctx context.Context, userID int64, limit int) ([]entity.DayTotal, error) {
	if limit <= 0 {
		limit = 7
	}
	rows, err := r.pool.Query(ctx, `
		SELECT (eaten_at AT TIME ZONE 'UTC')::date AS day, SUM(kcal)
		FROM meals
		WHERE user_id = $1
		GROUP BY day
		ORDER BY day DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.DayTotal
	for rows.Next() {
		var d entity.DayTotal
		if err := rows.Scan(&d.Day, &d.Kcal); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

var _ repository.MealRepository = (*MealRepository)(nil)
