package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/services"
	"github.com/charlesng35/catalogadmin/internal/storage"
	"github.com/charlesng35/catalogadmin/pkg/response"
)

type ProductHandler struct {
	svc        *services.ProductService
	specSheets *services.SpecSheetService
}

type productLimits struct {
	Name        string `json:"name" validate:"omitempty,max=255"`
	SKU         string `json:"sku" validate:"omitempty,max=64"`
	Description string `json:"description" validate:"omitempty,max=65535"`
}

func NewProductHandler(db *gorm.DB, store storage.Store, pagination services.Pagination) (*ProductHandler, error) {
	svc, err := services.NewProductService(db, store, pagination)
	if err != nil {
		return nil, err
	}
	specSheets, err := services.NewSpecSheetService(db, svc, store)
	if err != nil {
		return nil, err
	}
	return &ProductHandler{svc: svc, specSheets: specSheets}, nil
}

// Snapshots exposes the product summaries used to decorate grid items.
func (h *ProductHandler) Snapshots() services.ProductSnapshotter {
	return h.svc
}

// GET /api/products
func (h *ProductHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	result, err := h.svc.List(requestContext(c), services.ProductListOptions{
		Search:     strings.TrimSpace(c.Query("search")),
		StatusID:   parseUintQuery(c, "status_id"),
		CategoryID: parseUintQuery(c, "category_id"),
		Featured:   parseBoolQuery(c, "featured"),
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, result.Items, response.NewMeta(result.Page, result.PageSize, result.Total))
}

// GET /api/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	product, err := h.svc.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// POST /api/products
func (h *ProductHandler) Create(c *gin.Context) {
	p, input, ok := h.decode(c)
	if !ok {
		return
	}
	defer p.close()

	product, err := h.svc.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, product)
}

// PUT /api/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	p, input, ok := h.decode(c)
	if !ok {
		return
	}
	defer p.close()

	product, err := h.svc.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// DELETE /api/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.svc.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/products/:id/spec-sheet
func (h *ProductHandler) SpecSheet(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sheet, err := h.specSheets.Export(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer sheet.Content.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", sheet.Content, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", sheet.Filename),
	})
}

func (h *ProductHandler) decode(c *gin.Context) (*payload, services.ProductInput, bool) {
	p, err := readPayload(c)
	if err != nil {
		response.Error(c, err)
		return nil, services.ProductInput{}, false
	}

	input := services.ProductInput{
		Name:              p.str("name"),
		SKU:               p.str("sku"),
		Description:       p.str("description"),
		Featured:          p.bool("featured"),
		Price:             p.decimal("price"),
		StatusID:          p.uint("status_id", "status"),
		Category:          p.optionalID("category_id", "id_category"),
		AttributeValueIDs: p.uintList("attribute_value_ids"),
		MaterialIDs:       p.uintList("material_ids"),
		ComponentIDs:      p.uintList("component_ids"),
		Img:               p.asset("img"),
		SpecSheet:         p.asset("spec_sheet"),
	}

	limits := productLimits{}
	if input.Name != nil {
		limits.Name = *input.Name
	}
	if input.SKU != nil {
		limits.SKU = *input.SKU
	}
	if input.Description != nil {
		limits.Description = *input.Description
	}
	checkLimits(p.errs, limits)

	if err := p.err(); err != nil {
		p.close()
		response.Error(c, err)
		return nil, services.ProductInput{}, false
	}
	return p, input, true
}
