// Package users declares the account repository contract and its PostgreSQL
// and in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/equiplookup/internal/server/models"
)

// Repository stores accounts and their profiles.
type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A duplicate email
	// yields common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns common.ErrorNotFound when no account matches.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns common.ErrorNotFound when no account matches.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// CountByRole counts accounts holding role.
	CountByRole(ctx context.Context, role string) (int64, error)
}
