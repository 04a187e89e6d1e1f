package models

import (
	"strings"

	"gorm.io/datatypes"
)

// NodeKind discriminates the self-referencing hierarchies sharing the tree_nodes table.
type NodeKind string

const (
	KindCategory  NodeKind = "category"
	KindAttribute NodeKind = "attribute"
	KindMaterial  NodeKind = "material"
)

// NodeKinds lists every supported hierarchy kind.
func NodeKinds() []NodeKind {
	return []NodeKind{KindCategory, KindAttribute, KindMaterial}
}

// ParseNodeKind normalises value into a known kind.
func ParseNodeKind(value string) (NodeKind, bool) {
	kind := NodeKind(strings.ToLower(strings.TrimSpace(value)))
	switch kind {
	case KindCategory, KindAttribute, KindMaterial:
		return kind, true
	default:
		return "", false
	}
}

// Plural is the collection name used for routes and storage directories.
func (k NodeKind) Plural() string {
	switch k {
	case KindCategory:
		return "categories"
	default:
		return string(k) + "s"
	}
}

// TreeNode is a category, attribute or material participating in a parent/child hierarchy.
// ParentID always references a node of the same Kind or is nil for roots.
type TreeNode struct {
	BaseModel

	Kind        NodeKind                      `gorm:"size:32;not null;index:idx_tree_nodes_kind_parent,priority:1" json:"kind"`
	ParentID    *uint                         `gorm:"index:idx_tree_nodes_kind_parent,priority:2" json:"parent_id"`
	Parent      *TreeNode                     `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL" json:"-"`
	Name        string                        `gorm:"size:255;not null" json:"name"`
	StatusID    uint                          `gorm:"not null;index" json:"status_id"`
	Status      *Status                       `json:"status,omitempty"`
	Description string                        `gorm:"type:text" json:"description"`
	Img         *string                       `gorm:"size:512" json:"img"`
	Video       *string                       `gorm:"size:512" json:"video"`
	Icon        *string                       `gorm:"size:512" json:"icon"`
	Grid        datatypes.JSONSlice[GridItem] `json:"grid"`
	Position    int                           `gorm:"default:0" json:"position"`

	LeafValues []LeafValue `gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE" json:"values"`
}

// AssetPaths returns every stored file referenced by the node row, its grid and its leaf values.
func (n *TreeNode) AssetPaths() []string {
	if n == nil {
		return nil
	}
	var paths []string
	for _, p := range []*string{n.Img, n.Video, n.Icon} {
		if p != nil && *p != "" {
			paths = append(paths, *p)
		}
	}
	paths = append(paths, GridFilePaths(n.Grid)...)
	for i := range n.LeafValues {
		if img := n.LeafValues[i].Img; img != nil && *img != "" {
			paths = append(paths, *img)
		}
	}
	return paths
}
