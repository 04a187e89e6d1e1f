package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/storage"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/logger"
)

const webPagesDir = "web-pages"

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// WebPageInput carries create/update fields for a web page.
type WebPageInput struct {
	Slug     *string
	Title    *string
	StatusID *uint
	Grid     *[]GridItemInput
}

// WebPageService manages storefront content pages.
type WebPageService struct {
	db         *gorm.DB
	store      storage.Store
	products   ProductSnapshotter
	pagination Pagination
	log        *zap.Logger
}

// NewWebPageService constructs a WebPageService.
func NewWebPageService(db *gorm.DB, store storage.Store, pagination Pagination) (*WebPageService, error) {
	if db == nil {
		return nil, errors.New("web page service: db is required")
	}
	return &WebPageService{
		db:         db,
		store:      store,
		products:   productSnapshots{db: db},
		pagination: pagination,
		log:        logger.WithModule("web_pages"),
	}, nil
}

// List returns a page of web pages whose title or slug contains search.
func (s *WebPageService) List(ctx context.Context, search string, page, size int) (Page[models.WebPage], error) {
	ctx = ensureContext(ctx)
	page, size = s.pagination.normalise(page, size)

	query := s.db.WithContext(ctx).Model(&models.WebPage{})
	if search != "" {
		pattern := likePattern(search)
		query = query.Where(likeClause("title")+" OR "+likeClause("slug"), pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[models.WebPage]{}, fmt.Errorf("web page service: count pages: %w", err)
	}
	var pages []models.WebPage
	if err := query.Preload("Status").Order("slug ASC").Offset((page - 1) * size).Limit(size).Find(&pages).Error; err != nil {
		return Page[models.WebPage]{}, fmt.Errorf("web page service: list pages: %w", err)
	}
	if err := s.decorate(ctx, pages...); err != nil {
		return Page[models.WebPage]{}, err
	}
	return newPage(pages, page, size, total), nil
}

// Get loads a page by id with product info attached to its grid.
func (s *WebPageService) Get(ctx context.Context, id uint) (*models.WebPage, error) {
	return s.find(ensureContext(ctx), "id = ?", id)
}

// GetBySlug loads a page by slug.
func (s *WebPageService) GetBySlug(ctx context.Context, slug string) (*models.WebPage, error) {
	return s.find(ensureContext(ctx), "slug = ?", strings.ToLower(strings.TrimSpace(slug)))
}

// Create inserts a page authored by actorID.
func (s *WebPageService) Create(ctx context.Context, actorID *uint, input WebPageInput) (*models.WebPage, error) {
	ctx = ensureContext(ctx)

	fields := apperrors.FieldErrors{}
	title := trimmed(input.Title)
	if title == "" {
		fields.Add("title", "The title field is required.")
	}
	slug := Slugify(trimmed(input.Slug))
	if slug == "" {
		slug = Slugify(title)
	}
	if input.StatusID == nil {
		fields.Add("status_id", "The status field is required.")
	}
	if err := s.validate(ctx, 0, slug, input, fields); err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	page := models.WebPage{
		Slug:      slug,
		Title:     title,
		StatusID:  *input.StatusID,
		CreatedBy: actorID,
		UpdatedBy: actorID,
	}
	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.Grid != nil {
			grid, err := mergeGrid(ctx, batch, webPagesDir, nil, *input.Grid)
			if err != nil {
				return err
			}
			page.Grid = datatypes.JSONSlice[models.GridItem](grid)
		}
		if err := tx.Omit("Status").Create(&page).Error; err != nil {
			return writeError(err, "slug", "web page service: create page")
		}
		return nil
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, page.ID)
}

// Update applies input to page id on behalf of actorID.
func (s *WebPageService) Update(ctx context.Context, id uint, actorID *uint, input WebPageInput) (*models.WebPage, error) {
	ctx = ensureContext(ctx)

	var current models.WebPage
	if err := s.db.WithContext(ctx).First(&current, id).Error; err != nil {
		return nil, notFoundOr(err, "web page service: load page %d", id)
	}

	fields := apperrors.FieldErrors{}
	if input.Title != nil && trimmed(input.Title) == "" {
		fields.Add("title", "The title field is required.")
	}
	slug := ""
	if input.Slug != nil {
		if slug = Slugify(trimmed(input.Slug)); slug == "" {
			fields.Add("slug", "The slug field is required.")
		}
	}
	if err := s.validate(ctx, id, slug, input, fields); err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"updated_by": actorID}
		if input.Title != nil {
			updates["title"] = trimmed(input.Title)
		}
		if slug != "" {
			updates["slug"] = slug
		}
		if input.StatusID != nil {
			updates["status_id"] = *input.StatusID
		}
		if input.Grid != nil {
			grid, err := mergeGrid(ctx, batch, webPagesDir, current.Grid, *input.Grid)
			if err != nil {
				return err
			}
			updates["grid"] = datatypes.JSONSlice[models.GridItem](grid)
		}
		if err := tx.Model(&models.WebPage{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return writeError(err, "slug", fmt.Sprintf("web page service: update page %d", id))
		}
		return nil
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes page id and every file referenced by its grid.
func (s *WebPageService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var page models.WebPage
		if err := tx.First(&page, id).Error; err != nil {
			return notFoundOr(err, "web page service: load page %d", id)
		}
		if err := tx.Delete(&page).Error; err != nil {
			return fmt.Errorf("web page service: delete page %d: %w", id, err)
		}
		batch.discardAll(models.GridFilePaths(page.Grid))
		return nil
	})
	batch.finish(ctx, err)
	return err
}

func (s *WebPageService) find(ctx context.Context, query string, arg any) (*models.WebPage, error) {
	var page models.WebPage
	if err := s.db.WithContext(ctx).Preload("Status").Where(query, arg).First(&page).Error; err != nil {
		return nil, notFoundOr(err, "web page service: load page")
	}
	if err := s.decorate(ctx, page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *WebPageService) decorate(ctx context.Context, pages ...models.WebPage) error {
	var ids []uint
	for _, page := range pages {
		ids = append(ids, gridProductIDs(page.Grid)...)
	}
	snapshots, err := s.products.Snapshots(ctx, ids)
	if err != nil {
		return err
	}
	for _, page := range pages {
		decorateGrid(page.Grid, snapshots)
	}
	return nil
}

func (s *WebPageService) validate(ctx context.Context, id uint, slug string, input WebPageInput, fields apperrors.FieldErrors) error {
	if input.StatusID != nil {
		if err := validateStatus(ctx, s.db, *input.StatusID, fields); err != nil {
			return fmt.Errorf("web page service: %w", err)
		}
	}
	if slug != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.WebPage{}).Where("slug = ? AND id <> ?", slug, id).Count(&count).Error; err != nil {
			return fmt.Errorf("web page service: check slug: %w", err)
		}
		if count > 0 {
			fields.Add("slug", "The slug has already been taken.")
		}
	}
	validateGridInputs(input.Grid, fields)
	return nil
}

// Slugify lower-cases value and joins its alphanumeric runs with dashes.
func Slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.Trim(nonSlugChars.ReplaceAllString(value, "-"), "-")
}
