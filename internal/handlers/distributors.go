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

type DistributorHandler struct {
	svc *services.DistributorService
}

type distributorLimits struct {
	Name    string `json:"name" validate:"omitempty,max=255"`
	Email   string `json:"email" validate:"omitempty,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=64"`
	Address string `json:"address" validate:"omitempty,max=512"`
	Website string `json:"website" validate:"omitempty,max=512,url"`
}

func NewDistributorHandler(db *gorm.DB, store storage.Store, pagination services.Pagination) (*DistributorHandler, error) {
	svc, err := services.NewDistributorService(db, store, pagination)
	if err != nil {
		return nil, err
	}
	return &DistributorHandler{svc: svc}, nil
}

// GET /api/distributors
func (h *DistributorHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	result, err := h.svc.List(requestContext(c), strings.TrimSpace(c.Query("search")), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, result.Items, response.NewMeta(result.Page, result.PageSize, result.Total))
}

// GET /api/distributors/:id
func (h *DistributorHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	distributor, err := h.svc.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, distributor)
}

// POST /api/distributors
func (h *DistributorHandler) Create(c *gin.Context) {
	p, input, ok := h.decode(c)
	if !ok {
		return
	}
	defer p.close()

	distributor, err := h.svc.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, distributor)
}

// PUT /api/distributors/:id
func (h *DistributorHandler) Update(c *gin.Context) {
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

	distributor, err := h.svc.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, distributor)
}

// DELETE /api/distributors/:id
func (h *DistributorHandler) Delete(c *gin.Context) {
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

func (h *DistributorHandler) decode(c *gin.Context) (*payload, services.DistributorInput, bool) {
	p, err := readPayload(c)
	if err != nil {
		response.Error(c, err)
		return nil, services.DistributorInput{}, false
	}
	input := services.DistributorInput{
		Name:     p.str("name"),
		Email:    p.str("email"),
		Phone:    p.str("phone"),
		Address:  p.str("address"),
		Website:  p.str("website"),
		StatusID: p.uint("status_id", "status"),
		Logo:     p.asset("logo"),
	}
	checkLimits(p.errs, distributorLimits{
		Name:    deref(input.Name),
		Email:   deref(input.Email),
		Phone:   deref(input.Phone),
		Address: deref(input.Address),
		Website: strings.TrimSpace(deref(input.Website)),
	})
	if err := p.err(); err != nil {
		p.close()
		response.Error(c, err)
		return nil, services.DistributorInput{}, false
	}
	return p, input, true
}
