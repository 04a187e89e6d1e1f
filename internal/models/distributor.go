package models

// Distributor is a reseller listed on the storefront.
type Distributor struct {
	BaseModel

	Name     string  `gorm:"size:255;not null" json:"name"`
	Email    string  `gorm:"size:255" json:"email"`
	Phone    string  `gorm:"size:64" json:"phone"`
	Address  string  `gorm:"size:512" json:"address"`
	Website  string  `gorm:"size:512" json:"website"`
	Logo     *string `gorm:"size:512" json:"logo"`
	StatusID uint    `gorm:"not null;index" json:"status_id"`
	Status   *Status `json:"status,omitempty"`
}
