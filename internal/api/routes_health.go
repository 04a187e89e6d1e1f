package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/handlers"
	"github.com/charlesng35/catalogadmin/internal/monitoring"
	"github.com/charlesng35/catalogadmin/internal/storage"
)

const healthProbeTimeout = 2 * time.Second

func registerHealthRoutes(r *gin.Engine, db *gorm.DB, store storage.Store, extra []monitoring.Check) {
	probes := monitoring.NewProbes(healthProbeTimeout)
	probes.Register(monitoring.Database(db), monitoring.Storage(store))
	probes.Register(extra...)

	health := handlers.Health(probes)
	r.GET("/health", health)
	r.GET("/api/health", health)
}

// registerUploadRoutes serves locally stored files when the store's public URL
// is a path on this server.
func registerUploadRoutes(r *gin.Engine, store storage.Store) {
	local, ok := store.(*storage.LocalStore)
	if !ok {
		return
	}
	prefix := strings.TrimRight(local.URL(""), "/")
	if !strings.HasPrefix(prefix, "/") {
		return
	}
	r.Static(prefix, local.Root())
}
