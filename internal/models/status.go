package models

// Status is a lookup row referenced by catalog entities (active, inactive, draft).
type Status struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

const (
	StatusActive   uint = 1
	StatusInactive uint = 2
	StatusDraft    uint = 3
)

// DefaultStatuses lists the rows seeded on start-up.
func DefaultStatuses() []Status {
	return []Status{
		{ID: StatusActive, Name: "active"},
		{ID: StatusInactive, Name: "inactive"},
		{ID: StatusDraft, Name: "draft"},
	}
}
