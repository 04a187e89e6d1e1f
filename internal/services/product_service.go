package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/storage"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/logger"
)

const productsDir = "products"

// ProductInput carries create/update fields for a product.
type ProductInput struct {
	Name              *string
	SKU               *string
	Description       *string
	Featured          *bool
	Price             *decimal.Decimal
	StatusID          *uint
	Category          OptionalID
	AttributeValueIDs *[]uint
	MaterialIDs       *[]uint
	ComponentIDs      *[]uint
	Img               AssetChange
	SpecSheet         AssetChange
}

// ProductListOptions filters product listings.
type ProductListOptions struct {
	Search     string
	StatusID   *uint
	CategoryID *uint
	Featured   *bool
	Page       int
	PageSize   int
}

// ProductService manages catalog products.
type ProductService struct {
	db         *gorm.DB
	store      storage.Store
	pagination Pagination
	log        *zap.Logger
}

// NewProductService constructs a ProductService.
func NewProductService(db *gorm.DB, store storage.Store, pagination Pagination) (*ProductService, error) {
	if db == nil {
		return nil, errors.New("product service: db is required")
	}
	return &ProductService{
		db:         db,
		store:      store,
		pagination: pagination,
		log:        logger.WithModule("products"),
	}, nil
}

// List returns a page of products matching opts.
func (s *ProductService) List(ctx context.Context, opts ProductListOptions) (Page[models.Product], error) {
	ctx = ensureContext(ctx)
	page, size := s.pagination.normalise(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Product{})
	if opts.Search != "" {
		pattern := likePattern(opts.Search)
		query = query.Where(likeClause("name")+" OR "+likeClause("sku"), pattern, pattern)
	}
	if opts.StatusID != nil {
		query = query.Where("status_id = ?", *opts.StatusID)
	}
	if opts.CategoryID != nil {
		query = query.Where("category_id = ?", *opts.CategoryID)
	}
	if opts.Featured != nil {
		query = query.Where("featured = ?", *opts.Featured)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[models.Product]{}, fmt.Errorf("product service: count products: %w", err)
	}

	var products []models.Product
	if err := query.Preload("Status").Preload("Category").
		Order("id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&products).Error; err != nil {
		return Page[models.Product]{}, fmt.Errorf("product service: list products: %w", err)
	}
	return newPage(products, page, size, total), nil
}

// Get loads a product with its relations.
func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	ctx = ensureContext(ctx)
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Status").
		Preload("Category").
		Preload("AttributeValues", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("leaf_values.node_id, leaf_values.position, leaf_values.id")
		}).
		Preload("Materials", func(tx *gorm.DB) *gorm.DB { return tx.Order("tree_nodes.position, tree_nodes.id") }).
		Preload("Components").
		First(&product, id).Error
	if err != nil {
		return nil, notFoundOr(err, "product service: load product %d", id)
	}
	return &product, nil
}

// Create inserts a product and its associations.
func (s *ProductService) Create(ctx context.Context, input ProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	fields := apperrors.FieldErrors{}
	if trimmed(input.Name) == "" {
		fields.Add("name", "The name field is required.")
	}
	if trimmed(input.SKU) == "" {
		fields.Add("sku", "The sku field is required.")
	}
	if input.StatusID == nil {
		fields.Add("status_id", "The status field is required.")
	}
	if err := s.validate(ctx, 0, input, fields); err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	product := models.Product{
		Name:        trimmed(input.Name),
		SKU:         trimmed(input.SKU),
		Description: trimmed(input.Description),
		StatusID:    *input.StatusID,
		CategoryID:  input.Category.ID,
	}
	if input.Featured != nil {
		product.Featured = *input.Featured
	}
	if input.Price != nil {
		product.Price = *input.Price
	}

	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applyErr error
		if product.Img, applyErr = batch.apply(ctx, assetDir(productsDir, dirImages), nil, input.Img); applyErr != nil {
			return applyErr
		}
		if product.SpecSheet, applyErr = batch.apply(ctx, assetDir(productsDir, dirFiles), nil, input.SpecSheet); applyErr != nil {
			return applyErr
		}
		if err := tx.Omit(clause.Associations).Create(&product).Error; err != nil {
			return writeError(err, "sku", "product service: create product")
		}
		return s.replaceAssociations(tx, product.ID, input)
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, product.ID)
}

// Update applies input to product id.
func (s *ProductService) Update(ctx context.Context, id uint, input ProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, notFoundOr(err, "product service: load product %d", id)
	}

	fields := apperrors.FieldErrors{}
	if input.Name != nil && trimmed(input.Name) == "" {
		fields.Add("name", "The name field is required.")
	}
	if input.SKU != nil && trimmed(input.SKU) == "" {
		fields.Add("sku", "The sku field is required.")
	}
	if err := s.validate(ctx, id, input, fields); err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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
		if input.Featured != nil {
			updates["featured"] = *input.Featured
		}
		if input.Price != nil {
			updates["price"] = *input.Price
		}
		if input.StatusID != nil {
			updates["status_id"] = *input.StatusID
		}
		if input.Category.Set {
			updates["category_id"] = input.Category.ID
		}
		if input.Img.Action != AssetKeep {
			img, applyErr := batch.apply(ctx, assetDir(productsDir, dirImages), product.Img, input.Img)
			if applyErr != nil {
				return applyErr
			}
			updates["img"] = img
		}
		if input.SpecSheet.Action != AssetKeep {
			sheet, applyErr := batch.apply(ctx, assetDir(productsDir, dirFiles), product.SpecSheet, input.SpecSheet)
			if applyErr != nil {
				return applyErr
			}
			updates["spec_sheet"] = sheet
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return writeError(err, "sku", fmt.Sprintf("product service: update product %d", id))
			}
		}
		return s.replaceAssociations(tx, id, input)
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes product id, its associations and files.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	batch := newAssetBatch(s.store, s.log)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, id).Error; err != nil {
			return notFoundOr(err, "product service: load product %d", id)
		}
		for _, association := range []string{"AttributeValues", "Materials", "Components"} {
			if err := tx.Model(&product).Association(association).Clear(); err != nil {
				return fmt.Errorf("product service: clear %s: %w", association, err)
			}
		}
		if err := tx.Delete(&product).Error; err != nil {
			return fmt.Errorf("product service: delete product %d: %w", id, err)
		}
		batch.discard(product.Img, product.SpecSheet)
		return nil
	})
	batch.finish(ctx, err)
	return err
}

// Snapshots returns the summaries of the products in ids that exist.
func (s *ProductService) Snapshots(ctx context.Context, ids []uint) (map[uint]models.ProductSnapshot, error) {
	return productSnapshots{db: s.db}.Snapshots(ctx, ids)
}

func (s *ProductService) validate(ctx context.Context, id uint, input ProductInput, fields apperrors.FieldErrors) error {
	db := s.db.WithContext(ctx)
	if input.StatusID != nil {
		if err := validateStatus(ctx, s.db, *input.StatusID, fields); err != nil {
			return fmt.Errorf("product service: %w", err)
		}
	}
	if sku := trimmed(input.SKU); sku != "" {
		var count int64
		if err := db.Model(&models.Product{}).Where("sku = ? AND id <> ?", sku, id).Count(&count).Error; err != nil {
			return fmt.Errorf("product service: check sku: %w", err)
		}
		if count > 0 {
			fields.Add("sku", "The sku has already been taken.")
		}
	}
	if input.Price != nil && input.Price.IsNegative() {
		fields.Add("price", "The price must be at least 0.")
	}
	if input.Category.Set && input.Category.ID != nil {
		if err := requireIDs(db.Model(&models.TreeNode{}).Where("kind = ?", models.KindCategory), "tree_nodes.id", []uint{*input.Category.ID}, "category_id", "The selected category is invalid.", fields); err != nil {
			return err
		}
	}
	if input.AttributeValueIDs != nil {
		if err := requireIDs(db.Model(&models.LeafValue{}).
			Joins("JOIN tree_nodes ON tree_nodes.id = leaf_values.node_id").
			Where("tree_nodes.kind = ?", models.KindAttribute), "leaf_values.id", *input.AttributeValueIDs, "attribute_values", "The selected attribute values are invalid.", fields); err != nil {
			return err
		}
	}
	if input.MaterialIDs != nil {
		if err := requireIDs(db.Model(&models.TreeNode{}).Where("kind = ?", models.KindMaterial), "tree_nodes.id", *input.MaterialIDs, "materials", "The selected materials are invalid.", fields); err != nil {
			return err
		}
	}
	if input.ComponentIDs != nil {
		if err := requireIDs(db.Model(&models.Component{}), "components.id", *input.ComponentIDs, "components", "The selected components are invalid.", fields); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductService) replaceAssociations(tx *gorm.DB, id uint, input ProductInput) error {
	product := &models.Product{BaseModel: models.BaseModel{ID: id}}
	if input.AttributeValueIDs != nil {
		var values []models.LeafValue
		if err := tx.Where("id IN ?", idsOrNone(*input.AttributeValueIDs)).Find(&values).Error; err != nil {
			return fmt.Errorf("product service: load attribute values: %w", err)
		}
		if err := tx.Model(product).Association("AttributeValues").Replace(values); err != nil {
			return fmt.Errorf("product service: replace attribute values: %w", err)
		}
	}
	if input.MaterialIDs != nil {
		var materials []models.TreeNode
		if err := tx.Where("kind = ? AND id IN ?", models.KindMaterial, idsOrNone(*input.MaterialIDs)).Find(&materials).Error; err != nil {
			return fmt.Errorf("product service: load materials: %w", err)
		}
		if err := tx.Model(product).Association("Materials").Replace(materials); err != nil {
			return fmt.Errorf("product service: replace materials: %w", err)
		}
	}
	if input.ComponentIDs != nil {
		var components []models.Component
		if err := tx.Where("id IN ?", idsOrNone(*input.ComponentIDs)).Find(&components).Error; err != nil {
			return fmt.Errorf("product service: load components: %w", err)
		}
		if err := tx.Model(product).Association("Components").Replace(components); err != nil {
			return fmt.Errorf("product service: replace components: %w", err)
		}
	}
	return nil
}

// requireIDs records message on field unless every id matches a row of query.
func requireIDs(query *gorm.DB, column string, ids []uint, field, message string, fields apperrors.FieldErrors) error {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil
	}
	var count int64
	if err := query.Where(column+" IN ?", unique).Count(&count).Error; err != nil {
		return fmt.Errorf("check %s: %w", field, err)
	}
	if count != int64(len(unique)) {
		fields.Add(field, message)
	}
	return nil
}

// idsOrNone keeps "IN ?" valid for empty input by matching no row.
func idsOrNone(ids []uint) []uint {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return []uint{0}
	}
	return unique
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// productSnapshots resolves grid product references straight from the products table.
type productSnapshots struct {
	db *gorm.DB
}

func (p productSnapshots) Snapshots(ctx context.Context, ids []uint) (map[uint]models.ProductSnapshot, error) {
	unique := uniqueIDs(ids)
	result := make(map[uint]models.ProductSnapshot, len(unique))
	if len(unique) == 0 {
		return result, nil
	}
	var products []models.Product
	if err := p.db.WithContext(ensureContext(ctx)).
		Select("id", "name", "sku", "description", "img", "featured").
		Where("id IN ?", unique).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load product snapshots: %w", err)
	}
	for _, product := range products {
		result[product.ID] = product.Snapshot()
	}
	return result, nil
}
