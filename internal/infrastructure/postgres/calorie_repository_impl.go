package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/repository"
)

const insertCalorieSQL = `
	INSERT INTO calories (name, kcal_per_100g, source)
	VALUES ($1, $2, $3)
	ON CONFLICT (name) DO NOTHING
`

type CalorieRepository struct {
	pool *pgxpool.Pool
}

func NewCalorieRepository(pool *pgxpool.Pool) *CalorieRepository {
	return &CalorieRepository{pool: pool}
}

func (r *CalorieRepository) Get(ctx context.Context, name string) (*entity.CalorieEntry, error) {
	c := &entity.CalorieEntry{}
	var source string

	row := r.pool.QueryRow(ctx, `
		SELECT name, kcal_per_100g, source, created_at
		FROM calories
		WHERE name = $1
	`, entity.NormalizeDishName(name))

	if err := row.Scan(&c.Name, &c.KcalPer100g, &source, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	c.Source = entity.CalorieSource(source)
	return c, nil
}

// Upsert relies on the UNIQUE(name) constraint: concurrent writers of the same name race in
// the database and exactly one of them gets inserted=true.
func (r *CalorieRepository) Upsert(ctx context.Context, c *entity.CalorieEntry) (bool, error) {
	return insertCalorie(ctx, r.pool, c)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertCalorie(ctx context.Context, db execer, c *entity.CalorieEntry) (bool, error) {
	c.Name = entity.NormalizeDishName(c.Name)
	tag, err := db.Exec(ctx, insertCalorieSQL, c.Name, c.KcalPer100g, string(c.Source))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

var _ repository.CalorieRepository = (*CalorieRepository)(nil)
