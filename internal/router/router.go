package router

import (
	"github.com/gin-gonic/gin"

	"tallyocr/internal/config"
	"tallyocr/internal/handler"
	"tallyocr/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	sessionH *handler.SessionHandler,
	metadataH *handler.MetadataHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(&cfg.CORS))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Review sessions
	sessions := v1.Group("/sessions")
	sessions.POST("", sessionH.Create)
	sessions.GET("/:id", sessionH.Get)
	sessions.DELETE("/:id", sessionH.Clear)
	sessions.POST("/:id/pages", sessionH.AddPage)
	sessions.GET("/:id/pages", sessionH.ListPages)
	sessions.GET("/:id/pages/:pageID", sessionH.GetPage)
	sessions.PUT("/:id/tables/:index", sessionH.UpdateTable)
	sessions.POST("/:id/reconcile", sessionH.Reconcile)
	sessions.PUT("/:id/org-unit", sessionH.SelectOrgUnit)
	sessions.PUT("/:id/facility", sessionH.SelectFacility)
	sessions.PUT("/:id/dataset", sessionH.SelectDataSet)
	sessions.PUT("/:id/period-start", sessionH.SetPeriodStart)
	sessions.POST("/:id/payload", sessionH.GeneratePayload)
	sessions.POST("/:id/submit", sessionH.Submit)
	sessions.GET("/:id/attempts", sessionH.Attempts)
	sessions.GET("/:id/export", sessionH.Export)

	// Metadata lookups for the selection flow
	metadata := v1.Group("/metadata")
	metadata.GET("/org-units", metadataH.SearchOrgUnits)
	metadata.GET("/org-units/:id/children", metadataH.OrgUnitChildren)
	metadata.GET("/datasets", metadataH.DataSets)
	metadata.GET("/datasets/:id/catalog", metadataH.FormCatalog)

	return r
}
