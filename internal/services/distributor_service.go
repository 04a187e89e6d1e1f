package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/storage"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/logger"
)

const distributorsDir = "distributors"

// DistributorInput carries create/update fields for a distributor.
type DistributorInput struct {
	Name     *string
	Email    *string
	Phone    *string
	Address  *string
	Website  *string
	StatusID *uint
	Logo     AssetChange
}

// DistributorService manages resellers.
type DistributorService struct {
	db         *gorm.DB
	store      storage.Store
	pagination Pagination
	log        *zap.Logger
}

// NewDistributorService constructs a DistributorService.
func NewDistributorService(db *gorm.DB, store storage.Store, pagination Pagination) (*DistributorService, error) {
	if db == nil {
		return nil, errors.New("distributor service: db is required")
	}
	return &DistributorService{db: db, store: store, pagination: pagination, log: logger.WithModule("distributors")}, nil
}

// List returns a page of distributors whose name or email contains search.
func (s *DistributorService) List(ctx context.Context, search string, page, size int) (Page[models.Distributor], error) {
	ctx = ensureContext(ctx)
	page, size = s.pagination.normalise(page, size)

	query := s.db.WithContext(ctx).Model(&models.Distributor{})
	if search != "" {
		pattern := likePattern(search)
		query = query.Where(likeClause("name")+" OR "+likeClause("email"), pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[models.Distributor]{}, fmt.Errorf("distributor service: count distributors: %w", err)
	}
	var distributors []models.Distributor
	if err := query.Preload("Status").Order("name ASC, id ASC").Offset((page - 1) * size).Limit(size).Find(&distributors).Error; err != nil {
		return Page[models.Distributor]{}, fmt.Errorf("distributor service: list distributors: %w", err)
	}
	return newPage(distributors, page, size, total), nil
}

// Get loads a distributor.
func (s *DistributorService) Get(ctx context.Context, id uint) (*models.Distributor, error) {
	var distributor models.Distributor
	if err := s.db.WithContext(ensureContext(ctx)).Preload("Status").First(&distributor, id).Error; err != nil {
		return nil, notFoundOr(err, "distributor service: load distributor %d", id)
	}
	return &distributor, nil
}

// Create inserts a distributor.
func (s *DistributorService) Create(ctx context.Context, input DistributorInput) (*models.Distributor, error) {
	ctx = ensureContext(ctx)
	fields := apperrors.FieldErrors{}
	if trimmed(input.Name) == "" {
		fields.Add("name", "The name field is required.")
	}
	if input.StatusID == nil {
		fields.Add("status_id", "The status field is required.")
	}
	if err := s.validate(ctx, input, fields); err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	distributor := models.Distributor{
		Name:     trimmed(input.Name),
		Email:    trimmed(input.Email),
		Phone:    trimmed(input.Phone),
		Address:  trimmed(input.Address),
		Website:  trimmed(input.Website),
		StatusID: *input.StatusID,
	}
	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		logo, err := batch.apply(ctx, assetDir(distributorsDir, dirImages), nil, input.Logo)
		if err != nil {
			return err
		}
		distributor.Logo = logo
		if err := tx.Omit("Status").Create(&distributor).Error; err != nil {
			return fmt.Errorf("distributor service: create distributor: %w", err)
		}
		return nil
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, distributor.ID)
}

// Update applies input to distributor id.
func (s *DistributorService) Update(ctx context.Context, id uint, input DistributorInput) (*models.Distributor, error) {
	ctx = ensureContext(ctx)
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := apperrors.FieldErrors{}
	if input.Name != nil && trimmed(input.Name) == "" {
		fields.Add("name", "The name field is required.")
	}
	if err := s.validate(ctx, input, fields); err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	batch := newAssetBatch(s.store, s.log)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		for column, value := range map[string]*string{
			"name":    input.Name,
			"email":   input.Email,
			"phone":   input.Phone,
			"address": input.Address,
			"website": input.Website,
		} {
			if value != nil {
				updates[column] = trimmed(value)
			}
		}
		if input.StatusID != nil {
			updates["status_id"] = *input.StatusID
		}
		if input.Logo.Action != AssetKeep {
			logo, err := batch.apply(ctx, assetDir(distributorsDir, dirImages), current.Logo, input.Logo)
			if err != nil {
				return err
			}
			updates["logo"] = logo
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Distributor{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("distributor service: update distributor %d: %w", id, err)
		}
		return nil
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes distributor id and its logo.
func (s *DistributorService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var distributor models.Distributor
		if err := tx.First(&distributor, id).Error; err != nil {
			return notFoundOr(err, "distributor service: load distributor %d", id)
		}
		if err := tx.Delete(&distributor).Error; err != nil {
			return fmt.Errorf("distributor service: delete distributor %d: %w", id, err)
		}
		batch.discard(distributor.Logo)
		return nil
	})
	batch.finish(ctx, err)
	return err
}

func (s *DistributorService) validate(ctx context.Context, input DistributorInput, fields apperrors.FieldErrors) error {
	if email := trimmed(input.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			fields.Add("email", "The email must be a valid email address.")
		}
	}
	if input.StatusID != nil {
		if err := validateStatus(ctx, s.db, *input.StatusID, fields); err != nil {
			return fmt.Errorf("distributor service: %w", err)
		}
	}
	return nil
}
