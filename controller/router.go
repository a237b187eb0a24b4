package controller

import (
	"sandbox-app-service/conf"
	"sandbox-app-service/controller/handler"
	"sandbox-app-service/controller/respond"
	"sandbox-app-service/docs"
	"sandbox-app-service/metrics"
	"sandbox-app-service/service/sandbox_service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter setup sandbox app service router
func SetupRouter(cfg *conf.Config, appService *sandbox_service.SandboxAppService) *gin.Engine {
	// Set Swagger host from config
	if cfg.Server.SwaggerBaseUrl != "" {
		docs.SwaggerInfo.Host = cfg.Server.SwaggerBaseUrl
	}
	if cfg.Server.PathPrefix != "" {
		docs.SwaggerInfo.BasePath = cfg.Server.PathPrefix
	}

	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Accept", "Cache-Control", "X-Requested-With", "X-API-Key", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * 3600, // 12 hours
	}
	if len(cfg.Server.AllowedOrigins) == 0 || (len(cfg.Server.AllowedOrigins) == 1 && cfg.Server.AllowedOrigins[0] == "*") {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}
	r.Use(cors.New(corsConfig))

	r.Use(RequestIDMiddleware())
	r.Use(respond.TimingMiddleware())

	appHandler := handler.NewSandboxAppHandler(appService)
	adminHandler := handler.NewAdminHandler(appService, handler.NewAdminVerifier(cfg.Admin))

	v1 := r.Group("/api/v1")
	{
		apps := v1.Group("/apps", APIKeyMiddleware(cfg.Admin.ApiKeys))
		{
			apps.POST("", appHandler.CreateApp)
			apps.GET("", appHandler.ListApps)
			apps.GET("/:appId", appHandler.GetApp)
			apps.POST("/:appId/write", appHandler.Write)
			apps.GET("/:appId/history", appHandler.History)
			apps.GET("/:appId/status", appHandler.Status)
			apps.GET("/:appId/ping", appHandler.Ping)

			// Admin secret guarded
			apps.POST("/:appId/terminate", adminHandler.TerminateApp)
			apps.POST("/:appId/toggle-feature", adminHandler.ToggleFeature)
		}

		// Catalogue size and cleanup totals
		v1.GET("/status", appHandler.ServiceStatus)

		admin := v1.Group("/admin")
		{
			admin.POST("/terminate-all", adminHandler.TerminateAll)
			admin.POST("/cleanup", adminHandler.Cleanup)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "sandbox-app-service",
		})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.InstanceName("swagger")))

	return r
}
