package main

import (
	"context"
	"log"
	"os"

	"github.com/accidentlink/portal/internal/backend"
	"github.com/accidentlink/portal/internal/cache"
	"github.com/accidentlink/portal/internal/config"
	"github.com/accidentlink/portal/internal/handler"
	"github.com/accidentlink/portal/internal/middleware"
	"github.com/accidentlink/portal/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Initialize Redis-backed list cache
	reportCache, err := cache.NewReportCache(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		// Continue without Redis cache (fail-open)
	}

	backendClient := backend.New(cfg.BackendURL, cfg.PhotoBaseURL)

	registry := session.NewRegistry(backendClient, cfg.ScratchDir)
	registry.StartJanitor(context.Background(), cfg.JanitorInterval, cfg.SessionMaxIdle)

	// Initialize handlers
	wizardHandler := handler.NewWizardHandler(registry, reportCache)
	reportHandler := handler.NewReportHandler(backendClient, reportCache)
	analysisHandler := handler.NewAnalysisHandler(registry, backendClient, reportCache)
	dashboardHandler := handler.NewDashboardHandler(backendClient, reportCache)

	// Setup router
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.MetricsMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(registry))
	{
		// Submission wizard
		api.POST("/wizard", wizardHandler.Create)
		api.GET("/wizard/:id", wizardHandler.Get)
		api.PUT("/wizard/:id/draft", wizardHandler.UpdateDraft)
		api.POST("/wizard/:id/next", wizardHandler.Next)
		api.POST("/wizard/:id/prev", wizardHandler.Prev)
		api.POST("/wizard/:id/photos", wizardHandler.StagePhotos)
		api.DELETE("/wizard/:id/photos/:photoID", wizardHandler.UnstagePhoto)
		api.PUT("/wizard/:id/photos/:photoID/caption", wizardHandler.SetCaption)
		api.POST("/wizard/:id/submit", wizardHandler.Submit)
		api.POST("/wizard/:id/retry-photos", wizardHandler.RetryPhotos)
		api.DELETE("/wizard/:id", wizardHandler.Close)

		// Reports
		api.GET("/reports", reportHandler.List)
		api.GET("/reports/:id", reportHandler.Get)
		api.POST("/statements", reportHandler.CreateStatement)

		// Claims analysis
		api.POST("/analysis/:id", analysisHandler.Open)
		api.GET("/analysis/:id", analysisHandler.Get)
		api.POST("/analysis/:id/photo", analysisHandler.RunPhotoAnalysis)
		api.POST("/analysis/:id/discrepancy", analysisHandler.RunDiscrepancyAnalysis)
		api.POST("/analysis/:id/complete", analysisHandler.RunCombinedAnalysis)
		api.POST("/analysis/:id/submit", analysisHandler.Submit)
		api.DELETE("/analysis/:id", analysisHandler.Close)

		// Dashboards
		api.GET("/dashboard/insurance", dashboardHandler.Insurance)
		api.GET("/dashboard/police", dashboardHandler.Police)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	log.Printf("Portal server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
