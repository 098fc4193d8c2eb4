package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"formpilot/config"
	"formpilot/controllers"
	"formpilot/database"
	"formpilot/middleware"
	"formpilot/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg := config.GetAppConfig()

	sessions, err := services.NewBrowserSessionManager(cfg.Browser)
	if err != nil {
		log.Fatalf("Failed to start browser runtime: %v", err)
	}
	defer sessions.Close()

	var vision services.VisionClient
	if cfg.Vision.Endpoint != "" {
		client, err := services.NewGeminiVisionClient(cfg.Vision)
		if err != nil {
			log.Printf("Warning: vision fallback disabled: %v", err)
		} else {
			vision = client
		}
	} else {
		log.Printf("Vision fallback not configured, detection runs heuristics only")
	}

	profiles := services.NewProfileStore(cfg.Redis)
	defer profiles.Close()

	var audit *database.AuditStore
	if os.Getenv("DB_HOST") != "" {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			log.Printf("Warning: audit database unavailable: %v", err)
		} else {
			defer db.Close()
			audit = database.NewAuditStore(db)
			if err := audit.EnsureSchema(context.Background()); err != nil {
				log.Printf("Warning: audit schema setup failed: %v", err)
				audit = nil
			}
		}
	}

	shots := services.NewScreenshotService()
	extractor := services.NewSignalExtractor()
	classifier := services.NewFieldClassifier(cfg.Automation, vision)
	detector := services.NewDetectionSession(extractor, classifier)
	executor := services.NewAutofillExecutor(cfg.Automation)
	pool := services.NewAutomationPool(cfg.Automation, sessions, detector, executor, profiles, shots, audit)

	formController := controllers.NewFormController(pool)
	profileController := controllers.NewProfileController(profiles)
	screenshotController := controllers.NewScreenshotController(shots)
	healthController := controllers.NewHealthController(pool)

	limiters := middleware.CreateRateLimiters()

	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/health", healthController.Health)

	api := r.Group("/api")
	api.Use(limiters["general"].Limit())
	{
		api.POST("/profiles", profileController.Create)
		api.DELETE("/profiles/:ref", profileController.Delete)
		api.GET("/screenshots/url", screenshotController.GetURL)
		api.GET("/screenshots/view/*key", screenshotController.Get)
	}

	form := r.Group("/api/form")
	form.Use(limiters["automation"].Limit())
	{
		form.POST("/detect", formController.Detect)
		form.POST("/fill", formController.Fill)
	}

	log.Printf("formpilot listening on :%s (pool capacity %d)", cfg.Port, pool.Capacity())
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
