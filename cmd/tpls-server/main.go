package main

import (
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/trafficportal/tpls/pkg/tpls/admin"
	"github.com/trafficportal/tpls/pkg/tpls/auth"
	"github.com/trafficportal/tpls/pkg/tpls/config"
	"github.com/trafficportal/tpls/pkg/tpls/database"
	"github.com/trafficportal/tpls/pkg/tpls/links"
	"github.com/trafficportal/tpls/pkg/tpls/models"
	"github.com/trafficportal/tpls/pkg/tpls/portal"
	"github.com/trafficportal/tpls/pkg/tpls/tokens"

	_ "github.com/trafficportal/tpls/api/swagger"
)

// @title Traffic Portal Link Service API
// @version 1.0
// @description Short-link creation proxy for the Traffic Portal, with a local mirror for per-owner listing and management.

// @contact.name Traffic Portal Support
// @contact.url https://github.com/trafficportal/tpls

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cfg := config.Load()
	log.Printf("Starting with config: %s", cfg)

	// Connect to database
	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Create default admin user if no admin exists
	if err := ensureAdminExists(db); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	// Wire components explicitly: validator and store are plain packages,
	// the portal client and link service are constructed once here and
	// handed to the handlers that serve them.
	portalClient := portal.NewClient(portal.Config{
		BaseURL:         cfg.PortalBaseURL,
		APIKey:          cfg.PortalAPIKey,
		ValidateTimeout: cfg.ValidateTimeout,
		CreateTimeout:   cfg.CreateTimeout,
	})
	linkService := links.NewService(db, portalClient)

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "tpls",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Portal token routes (protected)
		tokensHandler := tokens.NewHandler(db)
		tokensHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Link routes (protected)
		linksHandler := links.NewHandler(db, linkService)
		linksHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Admin routes (JWT only, admin role required)
		adminHandler := admin.NewHandler(db)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	log.Printf("Starting tpls server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminExists creates a default admin user if no admin exists in the database.
func ensureAdminExists(db *gorm.DB) error {
	// Check if any admin user exists
	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil // Admin already exists
	}

	// Create default admin user
	hashedPassword, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	adminUser := models.User{
		Email:        "admin@tpls.local",
		Name:         "Admin",
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user: admin@tpls.local (password: changeme)")
	return nil
}
