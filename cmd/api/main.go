package main

import (
	"log"
	"os"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/database"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/handlers"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/middleware"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Firebase is optional - push notifications degrade to no-ops
	if err := services.InitFirebase(); err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	}

	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// WebSocket hub with chat callbacks bound to the database
	hub := services.NewHub()
	hub.ValidateParty = handlers.ChatPartyValidator(db)
	hub.SaveChatMessage = handlers.ChatMessageSaver(db)
	go hub.Run()

	// Background cleanup of stuck and expired rides
	sweeper := services.NewSweeper(db, hub)
	go sweeper.Run()

	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Locally stored uploads (no-op when S3 is configured)
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "/app/uploads"
	}
	r.Static("/uploads", uploadDir)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck(hub))

		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
				users.POST("/avatar", handlers.UploadAvatar(db))
				users.POST("/vehicle-document", handlers.UploadVehicleDocument(db))
				users.POST("/fcm-token", handlers.RegisterFCMToken(db))
			}

			rides := protected.Group("/rides")
			{
				rides.POST("", handlers.CreateRide(db))
				rides.GET("/history", handlers.GetTripHistory(db))
				rides.GET("/nearby-drivers", handlers.GetNearbyDrivers(db))
				rides.GET("/:rideId/status", handlers.GetRideStatus(db))
				rides.POST("/:rideId/cancel", handlers.CancelRide(db, hub))
				rides.POST("/:rideId/complete", handlers.CompleteRide(db, hub))
				rides.POST("/:rideId/rate", handlers.RateRide(db))
				rides.GET("/:rideId/chat/messages", handlers.GetChatMessages(db))
				rides.POST("/:rideId/chat/messages", handlers.PostChatMessage(db, hub))
			}

			driver := protected.Group("/driver")
			driver.Use(middleware.RequireRole(string(models.RoleDriver)))
			{
				driver.POST("/location", handlers.UpdateDriverLocation(db, hub))
				driver.POST("/availability", handlers.UpdateDriverAvailability(db))
				driver.GET("/status", handlers.GetDriverStatus(db))
				driver.GET("/jobs", handlers.GetAvailableJobs(db))
				driver.POST("/rides/:rideId/accept", handlers.AcceptRide(db, hub))
				driver.POST("/rides/:rideId/start", handlers.StartRide(db, hub))
				driver.POST("/rides/:rideId/complete", handlers.CompleteRide(db, hub))
				driver.POST("/rides/:rideId/cancel", handlers.DriverCancelRide(db, hub))
				driver.POST("/rides/:rideId/no-show", handlers.NoShowRide(db, hub))
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(string(models.RoleAdmin)))
			{
				admin.GET("/rides", handlers.AdminListRides(db))
				admin.DELETE("/rides/:rideId", handlers.AdminDeleteRide(db))
				admin.GET("/drivers", handlers.AdminListDrivers(db))
				admin.POST("/sweep", handlers.AdminTriggerSweep(sweeper))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
