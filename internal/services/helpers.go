package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
)

// Pagination bounds the page sizes accepted by list operations.
type Pagination struct {
	DefaultSize int
	MaxSize     int
}

// DefaultPagination mirrors the storefront admin defaults.
var DefaultPagination = Pagination{DefaultSize: 15, MaxSize: 100}

// Page is a single page of list results.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

func (p Pagination) normalise(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	def := p.DefaultSize
	if def <= 0 {
		def = DefaultPagination.DefaultSize
	}
	limit := p.MaxSize
	if limit <= 0 {
		limit = DefaultPagination.MaxSize
	}
	if size <= 0 {
		size = def
	}
	if size > limit {
		size = limit
	}
	return page, size
}

func newPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	last := 1
	if total > 0 && size > 0 {
		last = int(math.Ceil(float64(total) / float64(size)))
	}
	return Page[T]{Items: items, Page: page, PageSize: size, Total: total, LastPage: last}
}

// pageSlice returns the items on the 1-based page.
func pageSlice[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

// likeClause matches column case-insensitively against the escaped pattern from likePattern.
func likeClause(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '!'"
}

// likePattern builds a case-insensitive substring pattern for likeClause.
func likePattern(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	replacer := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + replacer.Replace(term) + "%"
}

func containsFold(value, term string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(strings.TrimSpace(term)))
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func validateStatus(ctx context.Context, db *gorm.DB, statusID uint, fields apperrors.FieldErrors) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Status{}).Where("id = ?", statusID).Count(&count).Error; err != nil {
		return fmt.Errorf("lookup status: %w", err)
	}
	if count == 0 {
		fields.Add("status_id", "The selected status is invalid.")
	}
	return nil
}
