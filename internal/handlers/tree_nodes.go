package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/services"
	"github.com/charlesng35/catalogadmin/internal/storage"
	"github.com/charlesng35/catalogadmin/pkg/response"
)

// TreeNodeHandler serves one hierarchy kind (categories, attributes or materials).
type TreeNodeHandler struct {
	svc *services.HierarchyService
}

type nodeLimits struct {
	Name        string            `json:"name" validate:"omitempty,max=255"`
	Description string            `json:"description" validate:"omitempty,max=65535"`
	Position    int               `json:"position" validate:"min=0"`
	Values      []leafValueLimits `json:"values" validate:"dive"`
}

type leafValueLimits struct {
	Name  string `json:"name" validate:"max=255"`
	Value string `json:"value" validate:"max=255"`
}

// NewTreeNodeHandler builds a handler for kind. A nil products falls back to
// reading product snapshots straight from the database.
func NewTreeNodeHandler(db *gorm.DB, store storage.Store, kind models.NodeKind, pagination services.Pagination, products services.ProductSnapshotter) (*TreeNodeHandler, error) {
	svc, err := services.NewHierarchyService(db, store, kind,
		services.WithPagination(pagination),
		services.WithProductSnapshotter(products),
	)
	if err != nil {
		return nil, err
	}
	return &TreeNodeHandler{svc: svc}, nil
}

// GET /api/{kind}
func (h *TreeNodeHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	opts := services.ListOptions{
		Parentless: true,
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       page,
		PageSize:   size,
	}
	// Root trees unless the caller asks for parentless=false.
	if parentless := parseBoolQuery(c, "parentless"); parentless != nil {
		opts.Parentless = *parentless
	}

	result, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, result.Items, response.NewMeta(result.Page, result.PageSize, result.Total))
}

// GET /api/{kind}/:id
func (h *TreeNodeHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	node, err := h.svc.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, node)
}

// POST /api/{kind}
func (h *TreeNodeHandler) Create(c *gin.Context) {
	p, input, ok := h.decode(c)
	if !ok {
		return
	}
	defer p.close()

	node, err := h.svc.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, node)
}

// PUT /api/{kind}/:id
func (h *TreeNodeHandler) Update(c *gin.Context) {
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

	node, err := h.svc.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, node)
}

// DELETE /api/{kind}/:id
func (h *TreeNodeHandler) Delete(c *gin.Context) {
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

// decode reads the node payload. On failure the error response has been
// written and any opened uploads are closed.
func (h *TreeNodeHandler) decode(c *gin.Context) (*payload, services.NodeInput, bool) {
	p, err := readPayload(c)
	if err != nil {
		response.Error(c, err)
		return nil, services.NodeInput{}, false
	}

	kind := string(h.svc.Kind())
	input := services.NodeInput{
		Name:        p.str("name", kind),
		Parent:      p.optionalID("parent_id", "id_"+kind),
		StatusID:    p.uint("status_id", "status"),
		Description: p.str("description"),
		Position:    p.int("position"),
		Img:         p.asset("img"),
		Video:       p.asset("video"),
		Icon:        p.asset("icon"),
		Grid:        p.grid("grid"),
		Values:      p.leafValues("values"),
	}

	limits := nodeLimits{}
	if input.Name != nil {
		limits.Name = *input.Name
	}
	if input.Description != nil {
		limits.Description = *input.Description
	}
	if input.Position != nil {
		limits.Position = *input.Position
	}
	if input.Values != nil {
		for _, value := range *input.Values {
			limits.Values = append(limits.Values, leafValueLimits{Name: value.Name, Value: value.Value})
		}
	}
	checkLimits(p.errs, limits)

	if err := p.err(); err != nil {
		p.close()
		response.Error(c, err)
		return nil, services.NodeInput{}, false
	}
	return p, input, true
}
