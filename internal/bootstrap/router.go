package bootstrap

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/archive-api/internal/handler"
	"github.com/noah-isme/archive-api/internal/middleware"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/pkg/config"
	"github.com/noah-isme/archive-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/archive-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/archive-api/pkg/middleware/requestid"
)

// NewRouter registers every archive route on a fresh gin engine.
func NewRouter(app *App) *gin.Engine {
	cfg := app.Config
	svc := app.Services

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(app.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.Metrics))

	metricsHandler := handler.NewMetricsHandler(svc.Metrics, app.Queue)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svc.Auth)
	documentHandler := handler.NewDocumentHandler(svc.Documents, svc.Rules)
	versionHandler := handler.NewVersionHandler(svc.Versions)
	relationshipHandler := handler.NewRelationshipHandler(svc.Relationships)
	categoryHandler := handler.NewCategoryHandler(svc.Categories, svc.Subcategories)
	typeHandler := handler.NewDocumentTypeHandler(svc.Types)
	ruleHandler := handler.NewCategoryRuleHandler(svc.Rules)
	auditHandler := handler.NewAuditHandler(svc.Audit, svc.Export)
	exportHandler := handler.NewExportHandler(svc.Export)
	configHandler := handler.NewConfigurationHandler(svc.Config)

	api := r.Group(cfg.APIPrefix)
	if cfg.Archive.RateLimitPerMinute > 0 {
		api.Use(middleware.RateLimit(middleware.NewIPRateLimiter(cfg.Archive.RateLimitPerMinute, cfg.Archive.RateLimitBurst)))
	}

	api.POST("/auth/login", authHandler.Login)
	// Signed tokens carry their own authorization.
	api.GET("/documents/download", documentHandler.Download)
	api.GET("/exports/download", exportHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(svc.Auth))
	secured.Use(middleware.SecurityAudit(svc.Audit, app.Logger.Named("security")))
	secured.GET("/auth/me", authHandler.Me)
	secured.GET("/metrics/summary", middleware.RequireManager(), metricsHandler.Snapshot)

	reader := secured.Group("")
	reader.Use(middleware.RequireReader())
	writer := secured.Group("")
	writer.Use(middleware.RequireWriter())
	manager := secured.Group("")
	manager.Use(middleware.RequireManager())

	reader.GET("/documents", documentHandler.Search)
	reader.GET("/documents/statistics", documentHandler.Statistics)
	reader.GET("/documents/:id", documentHandler.Get)
	reader.GET("/documents/:id/download-url", documentHandler.DownloadURL)
	reader.GET("/documents/:id/versions", versionHandler.History)
	reader.GET("/documents/:id/relationships", relationshipHandler.List)
	writer.POST("/documents", documentHandler.Upload)
	writer.POST("/documents/bulk", documentHandler.BulkUpload)
	writer.PUT("/documents/:id", documentHandler.Update)
	writer.POST("/documents/:id/ocr", documentHandler.ProcessOCR)
	writer.POST("/documents/:id/encrypt", documentHandler.Encrypt)
	writer.POST("/documents/:id/categorize", documentHandler.Categorize)
	writer.POST("/documents/:id/versions", versionHandler.Create)
	writer.POST("/documents/:id/relationships", relationshipHandler.Add)
	manager.POST("/documents/:id/decrypt", documentHandler.Decrypt)
	manager.DELETE("/documents/:id", documentHandler.Delete)

	reader.GET("/versions/:id", versionHandler.Get)
	reader.GET("/versions/:id/integrity", versionHandler.CheckIntegrity)
	reader.POST("/versions/compare", versionHandler.Compare)
	writer.POST("/versions/:id/restore", versionHandler.Restore)
	manager.DELETE("/versions/:id", versionHandler.Delete)

	reader.GET("/relationships/statistics", relationshipHandler.Statistics)
	writer.DELETE("/relationships/:id", relationshipHandler.Remove)

	reader.GET("/categories", categoryHandler.List)
	reader.GET("/categories/tree", categoryHandler.Tree)
	reader.GET("/categories/:id", categoryHandler.Get)
	reader.GET("/categories/:id/hierarchy", categoryHandler.Hierarchy)
	reader.GET("/categories/:id/statistics", categoryHandler.Statistics)
	reader.GET("/categories/:id/documents", categoryHandler.Documents)
	reader.GET("/categories/:id/subcategories", categoryHandler.Subcategories)
	manager.POST("/categories", categoryHandler.Create)
	manager.PUT("/categories/:id", categoryHandler.Update)
	manager.DELETE("/categories/:id", categoryHandler.Delete)

	reader.GET("/subcategories/statistics", categoryHandler.SubcategoryStatistics)
	reader.GET("/subcategories/:id", categoryHandler.GetSubcategory)
	manager.POST("/subcategories", categoryHandler.CreateSubcategory)
	manager.PUT("/subcategories/:id", categoryHandler.UpdateSubcategory)
	manager.DELETE("/subcategories/:id", categoryHandler.DeleteSubcategory)

	reader.GET("/document-types", typeHandler.List)
	reader.GET("/document-types/statistics", typeHandler.Statistics)
	reader.GET("/document-types/:id", typeHandler.Get)
	reader.GET("/document-types/:id/requirements", typeHandler.Requirements)
	reader.POST("/document-types/:id/validate-file", typeHandler.ValidateFile)
	manager.POST("/document-types", typeHandler.Create)
	manager.PUT("/document-types/:id", typeHandler.Update)
	manager.DELETE("/document-types/:id", typeHandler.Delete)

	reader.GET("/category-rules", ruleHandler.List)
	reader.GET("/category-rules/statistics", ruleHandler.Statistics)
	reader.GET("/category-rules/:id", ruleHandler.Get)
	reader.POST("/category-rules/:id/test", ruleHandler.Test)
	manager.POST("/category-rules", ruleHandler.Create)
	manager.POST("/category-rules/apply", ruleHandler.Apply)
	manager.PUT("/category-rules/:id", ruleHandler.Update)
	manager.DELETE("/category-rules/:id", ruleHandler.Delete)

	manager.GET("/audit", auditHandler.List)
	manager.GET("/audit/statistics", auditHandler.Statistics)
	manager.GET("/audit/compliance-report", auditHandler.ComplianceReport)
	manager.GET("/audit/export", auditHandler.Export)
	manager.POST("/audit/cleanup", middleware.RBAC(models.RoleSystemManager), auditHandler.Cleanup)

	reader.POST("/exports/documents", exportHandler.ExportDocuments)

	manager.GET("/archive/config", configHandler.View)
	manager.GET("/archive/config/validate", configHandler.Validate)

	return r
}
