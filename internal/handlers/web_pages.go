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

type WebPageHandler struct {
	svc *services.WebPageService
}

type webPageLimits struct {
	Title string `json:"title" validate:"omitempty,max=255"`
	Slug  string `json:"slug" validate:"omitempty,max=191"`
}

func NewWebPageHandler(db *gorm.DB, store storage.Store, pagination services.Pagination) (*WebPageHandler, error) {
	svc, err := services.NewWebPageService(db, store, pagination)
	if err != nil {
		return nil, err
	}
	return &WebPageHandler{svc: svc}, nil
}

// GET /api/web-pages
func (h *WebPageHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	result, err := h.svc.List(requestContext(c), strings.TrimSpace(c.Query("search")), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, result.Items, response.NewMeta(result.Page, result.PageSize, result.Total))
}

// GET /api/web-pages/:id
func (h *WebPageHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.svc.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// GET /api/web-pages/slug/:slug
func (h *WebPageHandler) GetBySlug(c *gin.Context) {
	page, err := h.svc.GetBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// POST /api/web-pages
func (h *WebPageHandler) Create(c *gin.Context) {
	p, input, ok := h.decode(c)
	if !ok {
		return
	}
	defer p.close()

	page, err := h.svc.Create(requestContext(c), actorID(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, page)
}

// PUT /api/web-pages/:id
func (h *WebPageHandler) Update(c *gin.Context) {
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

	page, err := h.svc.Update(requestContext(c), id, actorID(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// DELETE /api/web-pages/:id
func (h *WebPageHandler) Delete(c *gin.Context) {
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

func (h *WebPageHandler) decode(c *gin.Context) (*payload, services.WebPageInput, bool) {
	p, err := readPayload(c)
	if err != nil {
		response.Error(c, err)
		return nil, services.WebPageInput{}, false
	}
	input := services.WebPageInput{
		Slug:     p.str("slug"),
		Title:    p.str("title"),
		StatusID: p.uint("status_id", "status"),
		Grid:     p.grid("grid"),
	}
	checkLimits(p.errs, webPageLimits{Title: deref(input.Title), Slug: deref(input.Slug)})
	if err := p.err(); err != nil {
		p.close()
		response.Error(c, err)
		return nil, services.WebPageInput{}, false
	}
	return p, input, true
}
