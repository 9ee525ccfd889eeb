package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// UserRepository defines the interface for user-related database operations.
// Create returns ErrAlreadyExists when the identity is already registered.
type UserRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}
