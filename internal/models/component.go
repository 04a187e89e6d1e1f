package models

// Component is a part that products are assembled from.
type Component struct {
	BaseModel

	Name        string  `gorm:"size:255;not null" json:"name"`
	SKU         string  `gorm:"size:64;index" json:"sku"`
	Description string  `gorm:"type:text" json:"description"`
	Img         *string `gorm:"size:512" json:"img"`
	StatusID    uint    `gorm:"not null;index" json:"status_id"`
	Status      *Status `json:"status,omitempty"`
}
