package models

import "gorm.io/datatypes"

// WebPage holds editable storefront content laid out as a grid.
type WebPage struct {
	BaseModel

	Slug      string                        `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	Title     string                        `gorm:"size:255;not null" json:"title"`
	StatusID  uint                          `gorm:"not null;index" json:"status_id"`
	Status    *Status                       `json:"status,omitempty"`
	Grid      datatypes.JSONSlice[GridItem] `json:"grid"`
	CreatedBy *uint                         `json:"created_by"`
	UpdatedBy *uint                         `json:"updated_by"`
}
