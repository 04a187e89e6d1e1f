package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/charlesng35/catalogadmin/internal/models"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
)

// GridItemInput is a submitted grid cell. Items whose ID matches an existing
// cell update it; any other item is created with a fresh id.
type GridItemInput struct {
	ID    string
	Type  models.GridItemType
	Props map[string]any
	File  AssetChange
}

func validateGridInputs(items *[]GridItemInput, fields apperrors.FieldErrors) {
	if items == nil {
		return
	}
	for i, item := range *items {
		if item.Type != "" && !item.Type.Valid() {
			fields.Add(fmt.Sprintf("grid.%d.type", i), "The selected grid type is invalid.")
		}
	}
}

func gridFileDir(owner string, itemType models.GridItemType) string {
	switch itemType {
	case models.GridImage:
		return assetDir(owner, dirImages)
	case models.GridVideo:
		return assetDir(owner, dirVideos)
	default:
		return assetDir(owner, dirFiles)
	}
}

// mergeGrid applies inputs to existing, storing uploads under owner and
// scheduling files of replaced or dropped cells for removal.
func mergeGrid(ctx context.Context, batch *assetBatch, owner string, existing []models.GridItem, inputs []GridItemInput) ([]models.GridItem, error) {
	existing = models.StripDecorations(existing)
	byID := make(map[string]models.GridItem, len(existing))
	for _, item := range existing {
		byID[item.ID] = item
	}

	kept := make(map[string]struct{}, len(inputs))
	merged := make([]models.GridItem, 0, len(inputs))
	for _, input := range inputs {
		item, ok := byID[input.ID]
		if _, dup := kept[input.ID]; !ok || dup {
			item = models.GridItem{ID: uuid.NewString(), Type: models.GridText}
		}
		if input.Type != "" {
			item.Type = input.Type
		}
		if input.Props != nil {
			item.Props = input.Props
		}

		var current *string
		if item.File != nil && item.File.URL != "" {
			url := item.File.URL
			current = &url
		}
		next, err := batch.apply(ctx, gridFileDir(owner, item.Type), current, input.File)
		if err != nil {
			return nil, err
		}
		if next == nil {
			item.File = nil
		} else {
			item.File = &models.GridFile{URL: *next}
		}

		kept[item.ID] = struct{}{}
		merged = append(merged, item)
	}

	for _, item := range existing {
		if _, ok := kept[item.ID]; ok {
			continue
		}
		if item.File != nil {
			batch.discardAll([]string{item.File.URL})
		}
	}
	return merged, nil
}
