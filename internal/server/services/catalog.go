package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/dbx"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/dmitrijs2005/equiplookup/internal/server/models"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/repomanager"
)

// CatalogService validates catalog requests and runs them against the
// equipment repository. Image references of returned records are resolved
// through the ImageResolver.
type CatalogService struct {
	repomanager repomanager.RepositoryManager
	images      ImageResolver
	logger      logging.Logger
}

func NewCatalogService(m repomanager.RepositoryManager, images ImageResolver, logger logging.Logger) *CatalogService {
	return &CatalogService{repomanager: m, images: images, logger: logger.With("module", "catalog")}
}

// List returns every record, newest first.
func (s *CatalogService) List(ctx context.Context) ([]models.Equipment, error) {
	out, err := s.repomanager.Equipment(s.repomanager.DB()).List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "list", err)
	}
	return s.resolve(ctx, out), nil
}

// Search returns records whose serial number contains pattern, ignoring
// case. A blank pattern is a validation error.
func (s *CatalogService) Search(ctx context.Context, pattern string) ([]models.Equipment, error) {
	pattern = common.NormalizeSerial(pattern)
	if pattern == "" {
		return nil, &common.ValidationError{Message: "serial_number query parameter is required"}
	}
	out, err := s.repomanager.Equipment(s.repomanager.DB()).SearchBySerial(ctx, pattern)
	if err != nil {
		return nil, s.internal(ctx, "search", err)
	}
	return s.resolve(ctx, out), nil
}

// Create stores one record. Optional fields default to "".
func (s *CatalogService) Create(ctx context.Context, in models.Equipment) (*models.Equipment, error) {
	in.SerialNumber = common.NormalizeSerial(in.SerialNumber)
	if in.SerialNumber == "" {
		return nil, &common.ValidationError{Message: "serial_number is required"}
	}
	e, err := s.repomanager.Equipment(s.repomanager.DB()).Create(ctx, &in)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, s.internal(ctx, "create", err)
	}
	resolved := s.resolve(ctx, []models.Equipment{*e})
	return &resolved[0], nil
}

// BulkCreate stores batch all-or-nothing. Every item is validated before
// anything is written.
func (s *CatalogService) BulkCreate(ctx context.Context, batch []models.Equipment) ([]models.Equipment, error) {
	if len(batch) == 0 {
		return nil, &common.ValidationError{Message: "equipment array must not be empty"}
	}

	var missing []int
	for i := range batch {
		batch[i].SerialNumber = common.NormalizeSerial(batch[i].SerialNumber)
		if batch[i].SerialNumber == "" {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return nil, &common.ValidationError{Message: "all items must have serial_number", Indexes: missing}
	}

	var out []models.Equipment
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Equipment(tx).InsertBatch(ctx, batch)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, s.internal(ctx, "bulk create", err)
	}

	s.logger.Info(ctx, "bulk insert", "count", len(out))
	return s.resolve(ctx, out), nil
}

func (s *CatalogService) resolve(ctx context.Context, list []models.Equipment) []models.Equipment {
	if s.images == nil {
		return list
	}
	for i := range list {
		if list[i].ImageURL != "" {
			list[i].ImageURL = s.images.Resolve(ctx, list[i].ImageURL)
		}
	}
	return list
}

func (s *CatalogService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "catalog "+op+" failed", "error", err)
	return fmt.Errorf("%s: %w", op, common.ErrorInternal)
}
