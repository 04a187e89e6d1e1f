package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/handlers"
	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/services"
	"github.com/charlesng35/catalogadmin/internal/storage"
)

var treeRoutePrefixes = map[models.NodeKind]string{
	models.KindCategory:  "/categories",
	models.KindAttribute: "/attributes",
	models.KindMaterial:  "/materials",
}

// crudHandler is implemented by every resource handler.
type crudHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// registerResource mounts list/get/create/update/delete under prefix. Updates
// are also accepted as POST /:id for multipart clients.
func registerResource(api *gin.RouterGroup, prefix string, h crudHandler) *gin.RouterGroup {
	group := api.Group(prefix)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.PUT("/:id", h.Update)
		group.POST("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
	return group
}

func registerCatalogRoutes(api *gin.RouterGroup, db *gorm.DB, store storage.Store, pagination services.Pagination) error {
	productHandler, err := handlers.NewProductHandler(db, store, pagination)
	if err != nil {
		return err
	}

	for _, kind := range models.NodeKinds() {
		handler, err := handlers.NewTreeNodeHandler(db, store, kind, pagination, productHandler.Snapshots())
		if err != nil {
			return err
		}
		registerResource(api, treeRoutePrefixes[kind], handler)
	}

	products := registerResource(api, "/products", productHandler)
	products.GET("/:id/spec-sheet", productHandler.SpecSheet)

	componentHandler, err := handlers.NewComponentHandler(db, store, pagination)
	if err != nil {
		return err
	}
	registerResource(api, "/components", componentHandler)

	distributorHandler, err := handlers.NewDistributorHandler(db, store, pagination)
	if err != nil {
		return err
	}
	registerResource(api, "/distributors", distributorHandler)

	webPageHandler, err := handlers.NewWebPageHandler(db, store, pagination)
	if err != nil {
		return err
	}
	webPages := registerResource(api, "/web-pages", webPageHandler)
	webPages.GET("/slug/:slug", webPageHandler.GetBySlug)

	statusHandler, err := handlers.NewStatusHandler(db)
	if err != nil {
		return err
	}
	api.GET("/statuses", statusHandler.List)
	return nil
}
