package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/storage"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/logger"
)

const componentsDir = "components"

// ComponentInput carries create/update fields for a component.
type ComponentInput struct {
	Name        *string
	SKU         *string
	Description *string
	StatusID    *uint
	Img         AssetChange
}

// ComponentService manages product components.
type ComponentService struct {
	db         *gorm.DB
	store      storage.Store
	pagination Pagination
	log        *zap.Logger
}

// NewComponentService constructs a ComponentService.
func NewComponentService(db *gorm.DB, store storage.Store, pagination Pagination) (*ComponentService, error) {
	if db == nil {
		return nil, errors.New("component service: db is required")
	}
	return &ComponentService{db: db, store: store, pagination: pagination, log: logger.WithModule("components")}, nil
}

// List returns a page of components whose name or sku contains search.
func (s *ComponentService) List(ctx context.Context, search string, page, size int) (Page[models.Component], error) {
	ctx = ensureContext(ctx)
	page, size = s.pagination.normalise(page, size)

	query := s.db.WithContext(ctx).Model(&models.Component{})
	if search != "" {
		pattern := likePattern(search)
		query = query.Where(likeClause("name")+" OR "+likeClause("sku"), pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[models.Component]{}, fmt.Errorf("component service: count components: %w", err)
	}
	var components []models.Component
	if err := query.Preload("Status").Order("name ASC, id ASC").Offset((page - 1) * size).Limit(size).Find(&components).Error; err != nil {
		return Page[models.Component]{}, fmt.Errorf("component service: list components: %w", err)
	}
	return newPage(components, page, size, total), nil
}

// Get loads a component.
func (s *ComponentService) Get(ctx context.Context, id uint) (*models.Component, error) {
	var component models.Component
	if err := s.db.WithContext(ensureContext(ctx)).Preload("Status").First(&component, id).Error; err != nil {
		return nil, notFoundOr(err, "component service: load component %d", id)
	}
	return &component, nil
}

// Create inserts a component.
func (s *ComponentService) Create(ctx context.Context, input ComponentInput) (*models.Component, error) {
	ctx = ensureContext(ctx)
	fields := apperrors.FieldErrors{}
	if trimmed(input.Name) == "" {
		fields.Add("name", "The name field is required.")
	}
	if input.StatusID == nil {
		fields.Add("status_id", "The status field is required.")
	} else if err := validateStatus(ctx, s.db, *input.StatusID, fields); err != nil {
		return nil, fmt.Errorf("component service: %w", err)
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	component := models.Component{
		Name:        trimmed(input.Name),
		SKU:         trimmed(input.SKU),
		Description: trimmed(input.Description),
		StatusID:    *input.StatusID,
	}
	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		img, err := batch.apply(ctx, assetDir(componentsDir, dirImages), nil, input.Img)
		if err != nil {
			return err
		}
		component.Img = img
		if err := tx.Omit("Status").Create(&component).Error; err != nil {
			return fmt.Errorf("component service: create component: %w", err)
		}
		return nil
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, component.ID)
}

// Update applies input to component id.
func (s *ComponentService) Update(ctx context.Context, id uint, input ComponentInput) (*models.Component, error) {
	ctx = ensureContext(ctx)
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := apperrors.FieldErrors{}
	if input.Name != nil && trimmed(input.Name) == "" {
		fields.Add("name", "The name field is required.")
	}
	if input.StatusID != nil {
		if err := validateStatus(ctx, s.db, *input.StatusID, fields); err != nil {
			return nil, fmt.Errorf("component service: %w", err)
		}
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	batch := newAssetBatch(s.store, s.log)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if input.Name != nil {
			updates["name"] = trimmed(input.Name)
		}
		if input.SKU != nil {
			updates["sku"] = trimmed(input.SKU)
		}
		if input.Description != nil {
			updates["description"] = trimmed(input.Description)
		}
		if input.StatusID != nil {
			updates["status_id"] = *input.StatusID
		}
		if input.Img.Action != AssetKeep {
			img, err := batch.apply(ctx, assetDir(componentsDir, dirImages), current.Img, input.Img)
			if err != nil {
				return err
			}
			updates["img"] = img
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Component{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("component service: update component %d: %w", id, err)
		}
		return nil
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes component id and detaches it from products.
func (s *ComponentService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var component models.Component
		if err := tx.First(&component, id).Error; err != nil {
			return notFoundOr(err, "component service: load component %d", id)
		}
		if err := tx.Exec("DELETE FROM product_components WHERE component_id = ?", id).Error; err != nil {
			return fmt.Errorf("component service: detach products: %w", err)
		}
		if err := tx.Delete(&component).Error; err != nil {
			return fmt.Errorf("component service: delete component %d: %w", id, err)
		}
		batch.discard(component.Img)
		return nil
	})
	batch.finish(ctx, err)
	return err
}
