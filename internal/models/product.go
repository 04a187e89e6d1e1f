package models

import "github.com/shopspring/decimal"

// Product is a sellable catalog item.
type Product struct {
	BaseModel

	Name        string          `gorm:"size:255;not null" json:"name"`
	SKU         string          `gorm:"size:64;uniqueIndex;not null" json:"sku"`
	Description string          `gorm:"type:text" json:"description"`
	Img         *string         `gorm:"size:512" json:"img"`
	SpecSheet   *string         `gorm:"size:512" json:"spec_sheet"`
	Featured    bool            `gorm:"default:false;index" json:"featured"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	StatusID    uint            `gorm:"not null;index" json:"status_id"`
	Status      *Status         `json:"status,omitempty"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	Category    *TreeNode       `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`

	AttributeValues []LeafValue `gorm:"many2many:product_attribute_values;constraint:OnDelete:CASCADE" json:"attribute_values,omitempty"`
	Materials       []TreeNode  `gorm:"many2many:product_materials;constraint:OnDelete:CASCADE" json:"materials,omitempty"`
	Components      []Component `gorm:"many2many:product_components;constraint:OnDelete:CASCADE" json:"components,omitempty"`
}

// ProductSnapshot is the read-only summary embedded into product grid items.
type ProductSnapshot struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	Img         *string `json:"img"`
	Featured    bool    `json:"featured"`
}

// Snapshot copies the summary fields of p.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		Img:         p.Img,
		Featured:    p.Featured,
	}
}
