package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
)

// StatusService exposes the status lookup table.
type StatusService struct {
	db *gorm.DB
}

// NewStatusService constructs a StatusService.
func NewStatusService(db *gorm.DB) (*StatusService, error) {
	if db == nil {
		return nil, errors.New("status service: db is required")
	}
	return &StatusService{db: db}, nil
}

// List returns every status ordered by id.
func (s *StatusService) List(ctx context.Context) ([]models.Status, error) {
	var statuses []models.Status
	if err := s.db.WithContext(ensureContext(ctx)).Order("id ASC").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("status service: list statuses: %w", err)
	}
	return statuses, nil
}
