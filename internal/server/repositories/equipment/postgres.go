package equipment

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/dbx"
	"github.com/dmitrijs2005/equiplookup/internal/server/models"
)

const columns = `id, serial_number, name, image_url, status, category, location, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Equipment) (*models.Equipment, error) {
	query :=
		`INSERT INTO equipment (serial_number, name, image_url, status, category, location)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		e.SerialNumber, e.Name, e.ImageURL, e.Status, e.Category, e.Location).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("serial number %q: %w", e.SerialNumber, common.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) InsertBatch(ctx context.Context, batch []models.Equipment) ([]models.Equipment, error) {
	out := make([]models.Equipment, 0, len(batch))
	for i := range batch {
		e := batch[i]
		if _, err := r.Create(ctx, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Equipment, error) {
	query := `SELECT ` + columns + ` FROM equipment
		 ORDER BY created_at DESC
		 `
	return r.query(ctx, query)
}

func (r *PostgresRepository) SearchBySerial(ctx context.Context, pattern string) ([]models.Equipment, error) {
	query := `SELECT ` + columns + ` FROM equipment
		 WHERE serial_number ILIKE $1 ESCAPE '\'
		 ORDER BY serial_number
		 `
	return r.query(ctx, query, "%"+likeEscaper.Replace(pattern)+"%")
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]models.Equipment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Equipment, 0)
	for rows.Next() {
		var e models.Equipment
		if err := rows.Scan(&e.ID, &e.SerialNumber, &e.Name, &e.ImageURL, &e.Status, &e.Category, &e.Location, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
