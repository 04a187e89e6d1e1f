package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/pkg/crypto"
)

// SeedOptions controls the rows inserted by SeedData.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Status{},
		&models.User{},
		&models.TreeNode{},
		&models.LeafValue{},
		&models.Component{},
		&models.Product{},
		&models.Distributor{},
		&models.WebPage{},
		&models.CacheEntry{},
	)
}

// SeedData populates lookup statuses and the initial administrator.
func SeedData(db *gorm.DB, opts SeedOptions) error {
	for _, status := range models.DefaultStatuses() {
		if err := db.Where(models.Status{ID: status.ID}).Attrs(status).FirstOrCreate(&models.Status{}).Error; err != nil {
			return fmt.Errorf("seed status %q: %w", status.Name, err)
		}
	}

	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" {
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hashed, err := crypto.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Email:    email,
		Name:     "Administrator",
		Password: hashed,
		IsActive: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}
