package middleware

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/logger"
	"github.com/charlesng35/catalogadmin/pkg/response"
)

// Recovery turns a handler panic into the INTERNAL_SERVER_ERROR envelope and
// logs it with the stack. Broken client connections are aborted silently by gin.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.WithModule("http").Error("handler panic",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.Stack("stack"),
		)
		response.Error(c, errors.ErrInternalServer)
		c.Abort()
	})
}

// NotFoundHandler answers unknown routes with the NOT_FOUND envelope.
func NotFoundHandler(c *gin.Context) {
	msg := fmt.Sprintf("Route %s %s not found", c.Request.Method, c.Request.URL.Path)
	response.Error(c, errors.New(errors.ErrNotFound.Code, msg, http.StatusNotFound))
}
