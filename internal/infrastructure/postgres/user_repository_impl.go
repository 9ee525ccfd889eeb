package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/repository"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, display_name, gender, age, height_cm, weight_kg, activity_factor, goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, u.ID, u.DisplayName, string(u.Gender), u.Age, u.HeightCm, u.WeightKg, u.ActivityFactor, string(u.Goal))

	if err := row.Scan(&u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u := &entity.User{}
	var gender, goal string

	row := r.pool.QueryRow(ctx, `
		SELECT id, display_name, gender, age, height_cm, weight_kg, activity_factor, goal, created_at
		FROM users
		WHERE id = $1
	`, id)

	if err := row.Scan(&u.ID, &u.DisplayName, &gender, &u.Age, &u.HeightCm, &u.WeightKg,
		&u.ActivityFactor, &goal, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Gender = entity.Gender(gender)
	u.Goal = entity.Goal(goal)

	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
