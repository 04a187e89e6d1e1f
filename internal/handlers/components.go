package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/services"
	"github.com/charlesng35/catalogadmin/internal/storage"
	"github.com/charlesng35/catalogadmin/pkg/response"
)

type ComponentHandler struct {
	svc *services.ComponentService
}

type componentLimits struct {
	Name        string `json:"name" validate:"omitempty,max=255"`
	SKU         string `json:"sku" validate:"omitempty,max=64"`
	Description string `json:"description" validate:"omitempty,max=65535"`
}

func NewComponentHandler(db *gorm.DB, store storage.Store, pagination services.Pagination) (*ComponentHandler, error) {
	svc, err := services.NewComponentService(db, store, pagination)
	if err != nil {
		return nil, err
	}
	return &ComponentHandler{svc: svc}, nil
}

// GET /api/components
func (h *ComponentHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	result, err := h.svc.List(requestContext(c), strings.TrimSpace(c.Query("search")), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, result.Items, response.NewMeta(result.Page, result.PageSize, result.Total))
}

// GET /api/components/:id
func (h *ComponentHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	component, err := h.svc.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, component)
}

// POST /api/components
func (h *ComponentHandler) Create(c *gin.Context) {
	p, input, ok := h.decode(c)
	if !ok {
		return
	}
	defer p.close()

	component, err := h.svc.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, component)
}

// PUT /api/components/:id
func (h *ComponentHandler) Update(c *gin.Context) {
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

	component, err := h.svc.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, component)
}

// DELETE /api/components/:id
func (h *ComponentHandler) Delete(c *gin.Context) {
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

func (h *ComponentHandler) decode(c *gin.Context) (*payload, services.ComponentInput, bool) {
	p, err := readPayload(c)
	if err != nil {
		response.Error(c, err)
		return nil, services.ComponentInput{}, false
	}
	input := services.ComponentInput{
		Name:        p.str("name"),
		SKU:         p.str("sku"),
		Description: p.str("description"),
		StatusID:    p.uint("status_id", "status"),
		Img:         p.asset("img"),
	}
	checkLimits(p.errs, componentLimits{
		Name:        deref(input.Name),
		SKU:         deref(input.SKU),
		Description: deref(input.Description),
	})
	if err := p.err(); err != nil {
		p.close()
		response.Error(c, err)
		return nil, services.ComponentInput{}, false
	}
	return p, input, true
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
