package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
)

// NodeView is a TreeNode decorated with its subtree. A nil Children field is
// omitted from JSON and marks a leaf after RemoveEmptyChildren.
type NodeView struct {
	models.TreeNode
	Children *[]*NodeView `json:"children,omitempty"`
}

func newNodeView(node models.TreeNode) *NodeView {
	return &NodeView{TreeNode: node}
}

func (v *NodeView) childList() []*NodeView {
	if v == nil || v.Children == nil {
		return nil
	}
	return *v.Children
}

// Walk visits v and every descendant depth first.
func (v *NodeView) Walk(fn func(*NodeView)) {
	if v == nil {
		return
	}
	fn(v)
	for _, child := range v.childList() {
		child.Walk(fn)
	}
}

// loadChildren returns the direct children of parentID ordered by position then id.
func loadChildren(ctx context.Context, db *gorm.DB, kind models.NodeKind, parentID uint) ([]models.TreeNode, error) {
	var children []models.TreeNode
	err := withNodeRelations(db.WithContext(ctx)).
		Where("kind = ? AND parent_id = ?", kind, parentID).
		Order("position ASC, id ASC").
		Find(&children).Error
	if err != nil {
		return nil, fmt.Errorf("load children of %d: %w", parentID, err)
	}
	return children, nil
}

func withNodeRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Status").Preload("LeafValues", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC, id ASC")
	})
}

// BuildTree expands every node into its full descendant chain, issuing one
// children query per node. Input order is preserved and no node is emitted twice.
func (s *HierarchyService) BuildTree(ctx context.Context, nodes []models.TreeNode) ([]*NodeView, error) {
	ctx = ensureContext(ctx)
	visited := make(map[uint]struct{}, len(nodes))
	views := make([]*NodeView, 0, len(nodes))
	for _, node := range nodes {
		if _, ok := visited[node.ID]; ok {
			continue
		}
		visited[node.ID] = struct{}{}
		view := newNodeView(node)
		if err := s.expand(ctx, view, visited); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *HierarchyService) expand(ctx context.Context, view *NodeView, visited map[uint]struct{}) error {
	children, err := loadChildren(ctx, s.db, s.kind, view.ID)
	if err != nil {
		return err
	}
	list := make([]*NodeView, 0, len(children))
	for _, child := range children {
		if _, ok := visited[child.ID]; ok {
			continue
		}
		visited[child.ID] = struct{}{}
		childView := newNodeView(child)
		if err := s.expand(ctx, childView, visited); err != nil {
			return err
		}
		list = append(list, childView)
	}
	view.Children = &list
	return nil
}

// FilterChildren replaces parent's children with those whose own name contains
// term (case-insensitive) and recurses only into the retained children. A child
// that does not match is dropped even when one of its descendants matches.
func (s *HierarchyService) FilterChildren(ctx context.Context, parent *NodeView, term string) (*NodeView, error) {
	if parent == nil {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	return parent, s.filter(ctx, parent, term, map[uint]struct{}{parent.ID: {}})
}

func (s *HierarchyService) filter(ctx context.Context, parent *NodeView, term string, visited map[uint]struct{}) error {
	children, err := loadChildren(ctx, s.db, s.kind, parent.ID)
	if err != nil {
		return err
	}
	retained := make([]*NodeView, 0, len(children))
	for _, child := range children {
		if !containsFold(child.Name, term) {
			continue
		}
		if _, ok := visited[child.ID]; ok {
			continue
		}
		visited[child.ID] = struct{}{}
		childView := newNodeView(child)
		if err := s.filter(ctx, childView, term, visited); err != nil {
			return err
		}
		retained = append(retained, childView)
	}
	parent.Children = &retained
	return nil
}

// RemoveEmptyChildren drops the children field of every node without children.
func RemoveEmptyChildren(view *NodeView) *NodeView {
	if view == nil {
		return nil
	}
	children := view.childList()
	if len(children) == 0 {
		view.Children = nil
		return view
	}
	pruned := make([]*NodeView, len(children))
	for i, child := range children {
		pruned[i] = RemoveEmptyChildren(child)
	}
	view.Children = &pruned
	return view
}

// AttachProductInfo decorates product grid items across the whole subtree with a
// snapshot of the referenced product. Unresolved ids leave product_info absent.
func (s *HierarchyService) AttachProductInfo(ctx context.Context, views ...*NodeView) error {
	ctx = ensureContext(ctx)
	var ids []uint
	for _, view := range views {
		view.Walk(func(node *NodeView) {
			ids = append(ids, gridProductIDs(node.Grid)...)
		})
	}

	snapshots, err := s.products.Snapshots(ctx, ids)
	if err != nil {
		return err
	}
	for _, view := range views {
		view.Walk(func(node *NodeView) {
			decorateGrid(node.Grid, snapshots)
		})
	}
	return nil
}

func gridProductIDs(items []models.GridItem) []uint {
	var ids []uint
	for _, item := range items {
		if id, ok := item.ProductID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func decorateGrid(items []models.GridItem, snapshots map[uint]models.ProductSnapshot) {
	for i := range items {
		items[i].ProductInfo = nil
		id, ok := items[i].ProductID()
		if !ok {
			continue
		}
		if snapshot, found := snapshots[id]; found {
			snap := snapshot
			items[i].ProductInfo = &snap
		}
	}
}
