package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalogadmin/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, api *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	engine.POST("/api/auth/login", authHandler.Login)
	api.GET("/auth/me", authHandler.Me)
}
