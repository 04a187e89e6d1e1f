package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/specsheet"
	"github.com/charlesng35/catalogadmin/internal/storage"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/logger"
)

const maxSheetImageBytes = 8 << 20

// SpecSheet is a PDF ready to be streamed.
type SpecSheet struct {
	Filename string
	Content  io.ReadCloser
}

// SpecSheetService exports product spec sheets.
type SpecSheetService struct {
	db       *gorm.DB
	products *ProductService
	store    storage.Store
	now      func() time.Time
	log      *zap.Logger
}

// NewSpecSheetService constructs a SpecSheetService.
func NewSpecSheetService(db *gorm.DB, products *ProductService, store storage.Store) (*SpecSheetService, error) {
	if db == nil || products == nil {
		return nil, errors.New("spec sheet service: db and product service are required")
	}
	return &SpecSheetService{db: db, products: products, store: store, now: time.Now, log: logger.WithModule("spec_sheets")}, nil
}

// Export streams the uploaded sheet of product id or renders one.
func (s *SpecSheetService) Export(ctx context.Context, id uint) (*SpecSheet, error) {
	ctx = ensureContext(ctx)
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	filename := Slugify(product.SKU)
	if filename == "" {
		filename = fmt.Sprintf("product-%d", product.ID)
	}
	filename += ".pdf"

	if product.SpecSheet != nil && s.store != nil {
		reader, err := s.store.Open(ctx, *product.SpecSheet)
		if err == nil {
			return &SpecSheet{Filename: filename, Content: reader}, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewStorage(err)
		}
		s.log.Warn("uploaded spec sheet missing, rendering instead", zap.Uint("product_id", id), zap.String("path", *product.SpecSheet))
	}

	doc, err := s.document(ctx, product)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := specsheet.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("spec sheet service: %w", err)
	}
	return &SpecSheet{Filename: filename, Content: io.NopCloser(&buf)}, nil
}

func (s *SpecSheetService) document(ctx context.Context, product *models.Product) (specsheet.Document, error) {
	doc := specsheet.Document{
		Title:       product.Name,
		SKU:         product.SKU,
		Price:       product.Price.StringFixed(2),
		Description: product.Description,
		GeneratedAt: s.now(),
	}
	if product.Status != nil {
		doc.Status = product.Status.Name
	}

	if product.CategoryID != nil {
		categoryPath, err := s.categoryPath(ctx, *product.CategoryID)
		if err != nil {
			return doc, err
		}
		doc.CategoryPath = categoryPath
	}

	groups, err := s.attributeGroups(ctx, product.AttributeValues)
	if err != nil {
		return doc, err
	}
	doc.Attributes = groups

	for _, material := range product.Materials {
		doc.Materials = append(doc.Materials, material.Name)
	}
	for _, component := range product.Components {
		doc.Components = append(doc.Components, component.Name)
	}
	doc.Image = s.image(ctx, product.Img)
	return doc, nil
}

// categoryPath walks parent links from id up to the root and returns names root first.
func (s *SpecSheetService) categoryPath(ctx context.Context, id uint) ([]string, error) {
	var names []string
	visited := map[uint]struct{}{}
	current := &id
	for current != nil {
		if _, seen := visited[*current]; seen {
			break
		}
		visited[*current] = struct{}{}
		var node models.TreeNode
		err := s.db.WithContext(ctx).Select("id", "name", "parent_id").First(&node, *current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("spec sheet service: load category %d: %w", *current, err)
		}
		names = append([]string{node.Name}, names...)
		current = node.ParentID
	}
	return names, nil
}

func (s *SpecSheetService) attributeGroups(ctx context.Context, values []models.LeafValue) ([]specsheet.AttributeGroup, error) {
	if len(values) == 0 {
		return nil, nil
	}
	nodeIDs := make([]uint, 0, len(values))
	for _, value := range values {
		nodeIDs = append(nodeIDs, value.NodeID)
	}
	var attributes []models.TreeNode
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", uniqueIDs(nodeIDs)).Find(&attributes).Error; err != nil {
		return nil, fmt.Errorf("spec sheet service: load attributes: %w", err)
	}
	names := make(map[uint]string, len(attributes))
	for _, attribute := range attributes {
		names[attribute.ID] = attribute.Name
	}

	var groups []specsheet.AttributeGroup
	index := map[uint]int{}
	for _, value := range values {
		i, ok := index[value.NodeID]
		if !ok {
			i = len(groups)
			index[value.NodeID] = i
			groups = append(groups, specsheet.AttributeGroup{Name: names[value.NodeID]})
		}
		label := value.Name
		if value.Value != "" && value.Value != value.Name {
			label = fmt.Sprintf("%s (%s)", value.Name, value.Value)
		}
		groups[i].Values = append(groups[i].Values, label)
	}
	return groups, nil
}

// image loads the product picture when it is a readable JPEG or PNG.
func (s *SpecSheetService) image(ctx context.Context, img *string) *specsheet.Image {
	if img == nil || s.store == nil {
		return nil
	}
	imageType := specsheet.ImageType(path.Base(*img))
	if imageType == "" {
		return nil
	}
	reader, err := s.store.Open(ctx, *img)
	if err != nil {
		s.log.Debug("spec sheet image unavailable", zap.String("path", *img), zap.Error(err))
		return nil
	}
	defer reader.Close()
	data, err := io.ReadAll(io.LimitReader(reader, maxSheetImageBytes))
	if err != nil {
		return nil
	}
	return &specsheet.Image{Type: imageType, Data: data}
}
