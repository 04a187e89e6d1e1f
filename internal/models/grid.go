package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// GridItemType tags the content carried by a grid cell.
type GridItemType string

const (
	GridText    GridItemType = "text"
	GridImage   GridItemType = "image"
	GridVideo   GridItemType = "video"
	GridProduct GridItemType = "product"
)

// Valid reports whether t is a known grid item type.
func (t GridItemType) Valid() bool {
	switch t {
	case GridText, GridImage, GridVideo, GridProduct:
		return true
	default:
		return false
	}
}

// GridFile references an uploaded asset by relative storage path.
type GridFile struct {
	URL string `json:"url"`
}

// GridItem is a positioned content block inside a node or page grid.
// ProductInfo is populated on read for product items and never persisted.
type GridItem struct {
	ID          string           `json:"id"`
	Type        GridItemType     `json:"type"`
	Props       map[string]any   `json:"props,omitempty"`
	File        *GridFile        `json:"file,omitempty"`
	ProductInfo *ProductSnapshot `json:"product_info,omitempty"`
}

// ProductID extracts props.product_id, accepting numbers and numeric strings.
func (g GridItem) ProductID() (uint, bool) {
	if g.Type != GridProduct || g.Props == nil {
		return 0, false
	}
	raw, ok := g.Props["product_id"]
	if !ok || raw == nil {
		return 0, false
	}

	var parsed uint64
	var err error
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != float64(uint64(v)) {
			return 0, false
		}
		return uint(v), true
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case uint:
		return v, v > 0
	case json.Number:
		parsed, err = strconv.ParseUint(v.String(), 10, 64)
	case string:
		parsed, err = strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	default:
		return 0, false
	}
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

// GridFilePaths lists the stored files referenced by grid items.
func GridFilePaths(items []GridItem) []string {
	var paths []string
	for _, item := range items {
		if item.File != nil && item.File.URL != "" {
			paths = append(paths, item.File.URL)
		}
	}
	return paths
}

// StripDecorations removes read-time fields before the grid is written back.
func StripDecorations(items []GridItem) []GridItem {
	out := make([]GridItem, len(items))
	for i, item := range items {
		item.ProductInfo = nil
		out[i] = item
	}
	return out
}
