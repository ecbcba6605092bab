// Package equipment declares the catalog repository contract and its
// PostgreSQL and in-memory implementations.
package equipment

import (
	"context"

	"github.com/dmitrijs2005/equiplookup/internal/server/models"
)

// Repository stores catalog records.
type Repository interface {
	// Create inserts one record and returns it with ID and CreatedAt set.
	// A duplicate serial number yields common.ErrAlreadyExists.
	Create(ctx context.Context, e *models.Equipment) (*models.Equipment, error)

	// InsertBatch inserts records in order. It is atomic only when the
	// repository is bound to a transaction (or is the in-memory store).
	InsertBatch(ctx context.Context, batch []models.Equipment) ([]models.Equipment, error)

	// List returns every record, newest first.
	List(ctx context.Context) ([]models.Equipment, error)

	// SearchBySerial returns records whose serial number contains pattern,
	// ignoring case. Pattern is matched literally.
	SearchBySerial(ctx context.Context, pattern string) ([]models.Equipment, error)
}
