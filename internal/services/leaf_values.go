package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
)

// LeafValueInput is a submitted leaf value. A nil or unknown ID creates a new value.
type LeafValueInput struct {
	ID    *uint
	Name  string
	Value string
	Img   AssetChange
}

func validateLeafValueInputs(values *[]LeafValueInput, fields apperrors.FieldErrors) {
	if values == nil {
		return
	}
	for i, value := range *values {
		if value.Name == "" {
			fields.Add(fmt.Sprintf("values.%d.name", i), "The value name field is required.")
		}
	}
}

// syncLeafValues makes the stored values of nodeID match inputs: matching ids are
// updated in place, new entries created and missing ones deleted with their files.
func syncLeafValues(ctx context.Context, tx *gorm.DB, batch *assetBatch, owner string, nodeID uint, existing []models.LeafValue, inputs []LeafValueInput) error {
	byID := make(map[uint]models.LeafValue, len(existing))
	for _, value := range existing {
		byID[value.ID] = value
	}
	dir := assetDir(owner, dirImages)

	seen := make(map[uint]struct{}, len(inputs))
	for position, input := range inputs {
		if input.ID != nil {
			if current, ok := byID[*input.ID]; ok {
				if _, dup := seen[current.ID]; !dup {
					img, err := batch.apply(ctx, dir, current.Img, input.Img)
					if err != nil {
						return err
					}
					updates := map[string]any{
						"name":     input.Name,
						"value":    input.Value,
						"img":      img,
						"position": position,
					}
					if err := tx.Model(&models.LeafValue{}).Where("id = ?", current.ID).Updates(updates).Error; err != nil {
						return fmt.Errorf("update leaf value %d: %w", current.ID, err)
					}
					seen[current.ID] = struct{}{}
					continue
				}
			}
		}

		img, err := batch.apply(ctx, dir, nil, input.Img)
		if err != nil {
			return err
		}
		value := models.LeafValue{
			NodeID:   nodeID,
			Name:     input.Name,
			Value:    input.Value,
			Img:      img,
			Position: position,
		}
		if err := tx.Create(&value).Error; err != nil {
			return fmt.Errorf("create leaf value: %w", err)
		}
	}

	var removed []uint
	for _, value := range existing {
		if _, ok := seen[value.ID]; ok {
			continue
		}
		batch.discard(value.Img)
		removed = append(removed, value.ID)
	}
	return deleteLeafValues(tx, removed)
}

func deleteLeafValues(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Exec("DELETE FROM product_attribute_values WHERE leaf_value_id IN ?", ids).Error; err != nil {
		return fmt.Errorf("detach leaf values: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.LeafValue{}).Error; err != nil {
		return fmt.Errorf("delete leaf values: %w", err)
	}
	return nil
}
