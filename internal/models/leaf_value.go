package models

// LeafValue is a simple child record (attribute value, material swatch) owned by one TreeNode.
type LeafValue struct {
	BaseModel

	NodeID   uint    `gorm:"not null;index" json:"node_id"`
	Name     string  `gorm:"size:255;not null" json:"name"`
	Value    string  `gorm:"size:255" json:"value"`
	Img      *string `gorm:"size:512" json:"img"`
	Position int     `gorm:"default:0" json:"position"`
}
