package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalogadmin/internal/monitoring"
	appErrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/response"
)

// Health reports dependency probes. A down dependency answers 503 with the
// same report in data.
func Health(probes *monitoring.Probes) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := probes.Evaluate(requestContext(c))
		if !report.Healthy() {
			unavailable := appErrors.ErrServiceUnavailable
			c.JSON(unavailable.StatusCode, response.Response{
				Data:  report,
				Error: &response.ErrorInfo{Code: unavailable.Code, Message: unavailable.Message},
			})
			return
		}
		response.Success(c, http.StatusOK, report)
	}
}
