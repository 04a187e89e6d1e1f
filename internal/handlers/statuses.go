package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/services"
	"github.com/charlesng35/catalogadmin/pkg/response"
)

type StatusHandler struct {
	svc *services.StatusService
}

func NewStatusHandler(db *gorm.DB) (*StatusHandler, error) {
	svc, err := services.NewStatusService(db)
	if err != nil {
		return nil, err
	}
	return &StatusHandler{svc: svc}, nil
}

// GET /api/statuses
func (h *StatusHandler) List(c *gin.Context) {
	statuses, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, statuses)
}
