package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/storage"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/logger"
	"github.com/charlesng35/catalogadmin/pkg/metrics"
)

// ProductSnapshotter resolves product summaries used to decorate grid items.
type ProductSnapshotter interface {
	Snapshots(ctx context.Context, ids []uint) (map[uint]models.ProductSnapshot, error)
}

// OptionalID distinguishes an omitted reference (Set == false) from an explicit
// null (Set with nil ID) or a concrete id.
type OptionalID struct {
	Set bool
	ID  *uint
}

// NodeInput carries create/update fields for a tree node. Nil pointers leave
// the stored value unchanged on update.
type NodeInput struct {
	Name        *string
	Parent      OptionalID
	StatusID    *uint
	Description *string
	Position    *int
	Img         AssetChange
	Video       AssetChange
	Icon        AssetChange
	Grid        *[]GridItemInput
	Values      *[]LeafValueInput
}

// ListOptions controls List.
type ListOptions struct {
	Parentless bool
	Search     string
	Page       int
	PageSize   int
}

// HierarchyService manages one kind of self-referencing tree (categories,
// attributes or materials) together with its leaf values, grid and assets.
type HierarchyService struct {
	db         *gorm.DB
	store      storage.Store
	kind       models.NodeKind
	products   ProductSnapshotter
	pagination Pagination
	log        *zap.Logger
}

// HierarchyOption customises a HierarchyService.
type HierarchyOption func(*HierarchyService)

// WithProductSnapshotter overrides how grid product references are resolved.
func WithProductSnapshotter(p ProductSnapshotter) HierarchyOption {
	return func(s *HierarchyService) {
		if p != nil {
			s.products = p
		}
	}
}

// WithPagination overrides the default page sizes.
func WithPagination(p Pagination) HierarchyOption {
	return func(s *HierarchyService) {
		s.pagination = p
	}
}

// NewHierarchyService constructs a service for kind.
func NewHierarchyService(db *gorm.DB, store storage.Store, kind models.NodeKind, opts ...HierarchyOption) (*HierarchyService, error) {
	if db == nil {
		return nil, errors.New("hierarchy service: db is required")
	}
	if _, ok := models.ParseNodeKind(string(kind)); !ok {
		return nil, fmt.Errorf("hierarchy service: unknown kind %q", kind)
	}
	svc := &HierarchyService{
		db:         db,
		store:      store,
		kind:       kind,
		products:   productSnapshots{db: db},
		pagination: DefaultPagination,
		log:        logger.WithModule("hierarchy").With(zap.String("kind", string(kind))),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Kind returns the node kind handled by the service.
func (s *HierarchyService) Kind() models.NodeKind {
	return s.kind
}

// List returns a page of nodes. Parentless listings return decorated root
// subtrees; a search term filters roots by name and prunes their children with
// FilterChildren.
func (s *HierarchyService) List(ctx context.Context, opts ListOptions) (Page[*NodeView], error) {
	ctx = ensureContext(ctx)
	page, size := s.pagination.normalise(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.TreeNode{}).Where("kind = ?", s.kind)
	if opts.Parentless {
		query = query.Where("parent_id IS NULL")
	}

	var (
		total int64
		nodes []models.TreeNode
	)
	if opts.Search != "" {
		ids, err := s.matchingIDs(query, opts.Search)
		if err != nil {
			return Page[*NodeView]{}, err
		}
		total = int64(len(ids))
		ids = pageSlice(ids, page, size)
		if len(ids) > 0 {
			if err := withNodeRelations(s.db.WithContext(ctx).Model(&models.TreeNode{})).
				Where("id IN ?", ids).
				Order("position ASC, id ASC").
				Find(&nodes).Error; err != nil {
				return Page[*NodeView]{}, fmt.Errorf("hierarchy service: list %s: %w", s.kind.Plural(), err)
			}
		}
	} else {
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return Page[*NodeView]{}, fmt.Errorf("hierarchy service: count %s: %w", s.kind.Plural(), err)
		}
		if err := withNodeRelations(query).
			Order("position ASC, id ASC").
			Offset((page - 1) * size).
			Limit(size).
			Find(&nodes).Error; err != nil {
			return Page[*NodeView]{}, fmt.Errorf("hierarchy service: list %s: %w", s.kind.Plural(), err)
		}
	}

	var views []*NodeView
	switch {
	case !opts.Parentless:
		views = make([]*NodeView, 0, len(nodes))
		for _, node := range nodes {
			views = append(views, newNodeView(node))
		}
	case opts.Search != "":
		views = make([]*NodeView, 0, len(nodes))
		for _, node := range nodes {
			view, err := s.FilterChildren(ctx, newNodeView(node), opts.Search)
			if err != nil {
				return Page[*NodeView]{}, fmt.Errorf("hierarchy service: filter %s: %w", s.kind.Plural(), err)
			}
			views = append(views, view)
		}
	default:
		var err error
		views, err = s.BuildTree(ctx, nodes)
		if err != nil {
			return Page[*NodeView]{}, fmt.Errorf("hierarchy service: build tree: %w", err)
		}
	}

	if err := s.AttachProductInfo(ctx, views...); err != nil {
		return Page[*NodeView]{}, err
	}
	for i := range views {
		views[i] = RemoveEmptyChildren(views[i])
	}

	return newPage(views, page, size, total), nil
}

// matchingIDs returns the ids of nodes whose name contains term, in listing
// order. Matching uses the same Unicode case folding as FilterChildren so
// roots and children agree regardless of the SQL dialect's LOWER.
func (s *HierarchyService) matchingIDs(query *gorm.DB, term string) ([]uint, error) {
	var candidates []struct {
		ID   uint
		Name string
	}
	if err := query.Session(&gorm.Session{}).
		Select("id", "name").
		Order("position ASC, id ASC").
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("hierarchy service: search %s: %w", s.kind.Plural(), err)
	}
	ids := make([]uint, 0, len(candidates))
	for _, candidate := range candidates {
		if containsFold(candidate.Name, term) {
			ids = append(ids, candidate.ID)
		}
	}
	return ids, nil
}

// Get returns a node with its decorated subtree.
func (s *HierarchyService) Get(ctx context.Context, id uint) (*NodeView, error) {
	ctx = ensureContext(ctx)
	node, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	views, err := s.BuildTree(ctx, []models.TreeNode{*node})
	if err != nil {
		return nil, fmt.Errorf("hierarchy service: build tree: %w", err)
	}
	if err := s.AttachProductInfo(ctx, views...); err != nil {
		return nil, err
	}
	return RemoveEmptyChildren(views[0]), nil
}

// Create validates input, stores its uploads and inserts the node in one transaction.
func (s *HierarchyService) Create(ctx context.Context, input NodeInput) (view *NodeView, err error) {
	ctx = ensureContext(ctx)
	defer func() { s.record("create", err) }()

	fields := apperrors.FieldErrors{}
	name := trimmed(input.Name)
	if name == "" {
		fields.Add("name", "The name field is required.")
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

	node := models.TreeNode{
		Kind:        s.kind,
		ParentID:    input.Parent.ID,
		Name:        name,
		StatusID:    *input.StatusID,
		Description: trimmed(input.Description),
	}
	if input.Position != nil {
		node.Position = *input.Position
	}

	owner := s.kind.Plural()
	batch := newAssetBatch(s.store, s.log)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applyErr error
		if node.Img, applyErr = batch.apply(ctx, assetDir(owner, dirImages), nil, input.Img); applyErr != nil {
			return applyErr
		}
		if node.Video, applyErr = batch.apply(ctx, assetDir(owner, dirVideos), nil, input.Video); applyErr != nil {
			return applyErr
		}
		if node.Icon, applyErr = batch.apply(ctx, assetDir(owner, dirIcons), nil, input.Icon); applyErr != nil {
			return applyErr
		}
		if input.Grid != nil {
			grid, gridErr := mergeGrid(ctx, batch, owner, nil, *input.Grid)
			if gridErr != nil {
				return gridErr
			}
			node.Grid = datatypes.JSONSlice[models.GridItem](grid)
		}

		if err := tx.Omit(clause.Associations).Create(&node).Error; err != nil {
			return fmt.Errorf("hierarchy service: create %s: %w", s.kind, err)
		}
		if input.Values != nil {
			if err := syncLeafValues(ctx, tx, batch, owner, node.ID, nil, *input.Values); err != nil {
				return fmt.Errorf("hierarchy service: %w", err)
			}
		}
		return nil
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, node.ID)
}

// Update applies input to node id. Stale files are removed after commit.
func (s *HierarchyService) Update(ctx context.Context, id uint, input NodeInput) (view *NodeView, err error) {
	ctx = ensureContext(ctx)
	defer func() { s.record("update", err) }()

	node, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	fields := apperrors.FieldErrors{}
	if input.Name != nil && trimmed(input.Name) == "" {
		fields.Add("name", "The name field is required.")
	}
	if err := s.validate(ctx, id, input, fields); err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	owner := s.kind.Plural()
	batch := newAssetBatch(s.store, s.log)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if input.Name != nil {
			updates["name"] = trimmed(input.Name)
		}
		if input.Parent.Set {
			updates["parent_id"] = input.Parent.ID
		}
		if input.StatusID != nil {
			updates["status_id"] = *input.StatusID
		}
		if input.Description != nil {
			updates["description"] = trimmed(input.Description)
		}
		if input.Position != nil {
			updates["position"] = *input.Position
		}

		assets := []struct {
			column  string
			dir     string
			current *string
			change  AssetChange
		}{
			{"img", dirImages, node.Img, input.Img},
			{"video", dirVideos, node.Video, input.Video},
			{"icon", dirIcons, node.Icon, input.Icon},
		}
		for _, asset := range assets {
			if asset.change.Action == AssetKeep {
				continue
			}
			next, applyErr := batch.apply(ctx, assetDir(owner, asset.dir), asset.current, asset.change)
			if applyErr != nil {
				return applyErr
			}
			updates[asset.column] = next
		}

		if input.Grid != nil {
			grid, gridErr := mergeGrid(ctx, batch, owner, node.Grid, *input.Grid)
			if gridErr != nil {
				return gridErr
			}
			updates["grid"] = datatypes.JSONSlice[models.GridItem](grid)
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.TreeNode{}).Where("id = ?", node.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("hierarchy service: update %s %d: %w", s.kind, node.ID, err)
			}
		}
		if input.Values != nil {
			if err := syncLeafValues(ctx, tx, batch, owner, node.ID, node.LeafValues, *input.Values); err != nil {
				return fmt.Errorf("hierarchy service: %w", err)
			}
		}
		return nil
	})
	batch.finish(ctx, err)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes node id with its leaf values and files. Direct children move
// up to the deleted node's parent.
func (s *HierarchyService) Delete(ctx context.Context, id uint) (err error) {
	ctx = ensureContext(ctx)
	defer func() { s.record("delete", err) }()

	batch := newAssetBatch(s.store, s.log)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		node, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.TreeNode{}).
			Where("kind = ? AND parent_id = ?", s.kind, node.ID).
			Update("parent_id", node.ParentID).Error; err != nil {
			return fmt.Errorf("hierarchy service: reassign children: %w", err)
		}

		valueIDs := make([]uint, 0, len(node.LeafValues))
		for _, value := range node.LeafValues {
			valueIDs = append(valueIDs, value.ID)
		}
		if err := deleteLeafValues(tx, valueIDs); err != nil {
			return fmt.Errorf("hierarchy service: %w", err)
		}

		switch s.kind {
		case models.KindCategory:
			if err := tx.Model(&models.Product{}).Where("category_id = ?", node.ID).Update("category_id", nil).Error; err != nil {
				return fmt.Errorf("hierarchy service: detach products: %w", err)
			}
		case models.KindMaterial:
			if err := tx.Exec("DELETE FROM product_materials WHERE tree_node_id = ?", node.ID).Error; err != nil {
				return fmt.Errorf("hierarchy service: detach products: %w", err)
			}
		}

		if err := tx.Delete(&models.TreeNode{}, node.ID).Error; err != nil {
			return fmt.Errorf("hierarchy service: delete %s %d: %w", s.kind, node.ID, err)
		}
		batch.discardAll(node.AssetPaths())
		return nil
	})
	batch.finish(ctx, err)
	return err
}

func (s *HierarchyService) load(ctx context.Context, db *gorm.DB, id uint) (*models.TreeNode, error) {
	var node models.TreeNode
	err := withNodeRelations(db.WithContext(ctx)).
		Where("kind = ?", s.kind).
		First(&node, id).Error
	if err != nil {
		return nil, notFoundOr(err, "hierarchy service: load %s %d", s.kind, id)
	}
	return &node, nil
}

// validate checks references shared by create and update. id is zero on create.
func (s *HierarchyService) validate(ctx context.Context, id uint, input NodeInput, fields apperrors.FieldErrors) error {
	if input.StatusID != nil {
		if err := validateStatus(ctx, s.db, *input.StatusID, fields); err != nil {
			return fmt.Errorf("hierarchy service: %w", err)
		}
	}
	if input.Parent.Set && input.Parent.ID != nil {
		if err := s.validateParent(ctx, id, *input.Parent.ID, fields); err != nil {
			return err
		}
	}
	validateGridInputs(input.Grid, fields)
	validateLeafValueInputs(input.Values, fields)
	return nil
}

// validateParent requires parentID to be a node of the same kind that is not
// id itself or one of its descendants.
func (s *HierarchyService) validateParent(ctx context.Context, id, parentID uint, fields apperrors.FieldErrors) error {
	if id != 0 && parentID == id {
		fields.Add("parent_id", "A node cannot be its own parent.")
		return nil
	}

	visited := map[uint]struct{}{}
	current := &parentID
	for current != nil {
		if id != 0 && *current == id {
			fields.Add("parent_id", "A node cannot be moved below one of its descendants.")
			return nil
		}
		if _, seen := visited[*current]; seen {
			return nil
		}
		visited[*current] = struct{}{}

		var ancestor models.TreeNode
		err := s.db.WithContext(ctx).Select("id", "kind", "parent_id").First(&ancestor, *current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && ancestor.Kind != s.kind) {
			if *current == parentID {
				fields.Add("parent_id", "The selected parent is invalid.")
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("hierarchy service: lookup parent %d: %w", *current, err)
		}
		current = ancestor.ParentID
	}
	return nil
}

func (s *HierarchyService) record(operation string, err error) {
	metrics.TreeOperations.WithLabelValues(string(s.kind), operation, metrics.Result(err)).Inc()
	if err != nil && !apperrors.IsValidation(err) && !errors.Is(err, apperrors.ErrNotFound) {
		s.log.Error("tree write failed", zap.String("operation", operation), zap.Error(err))
	}
}
