package repository

import (
	"context"

	"svmedia/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	// Create inserts a new user; a taken email returns domain.ErrAlreadyExists.
	Create(ctx context.Context, tx Tx, u *model.User) error
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
}
