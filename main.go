package main

import (
	"context"

	"campusoul/internal/config"
	"campusoul/internal/database"
	"campusoul/internal/handlers"
	"campusoul/internal/middleware"
	"campusoul/internal/redis"
	"campusoul/internal/services"
	"campusoul/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	if err := database.SeedInterests(db); err != nil {
		logrus.WithError(err).Fatal("Failed to seed interests")
	}

	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize object storage")
	}
	if err := storage.EnsureBucket(context.Background()); err != nil {
		logrus.WithError(err).Warn("Failed to ensure storage bucket")
	}

	push, err := services.NewPushService(context.Background(), cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize push service")
	}

	hub := websocket.NewHub()

	matching := services.NewMatchingService(db)
	messaging := services.NewMessagingService(db)
	discovery := services.NewDiscoveryService(db, cfg.DiscoveryPageSize)

	authHandler := handlers.NewAuthHandler(db, redisClient, cfg)
	userHandler := handlers.NewUserHandler(db, cfg, discovery, matching)
	interestHandler := handlers.NewInterestHandler(db)
	matchHandler := handlers.NewMatchHandler(db, redisClient, matching, push, hub)
	messageHandler := handlers.NewMessageHandler(db, messaging, push, hub)
	imageHandler := handlers.NewImageHandler(db, cfg, storage)

	middleware.RegisterValidators()

	router := setupRoutes(db, redisClient, authHandler, userHandler, interestHandler, matchHandler, messageHandler, imageHandler, hub)

	logrus.WithField("port", cfg.Port).Info("Server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

func setupRoutes(db *gorm.DB, redisClient *redis.Client, authHandler *handlers.AuthHandler, userHandler *handlers.UserHandler,
	interestHandler *handlers.InterestHandler, matchHandler *handlers.MatchHandler,
	messageHandler *handlers.MessageHandler, imageHandler *handlers.ImageHandler,
	hub *websocket.Hub) *gin.Engine {

	router := gin.Default()
	router.Use(cors.Default())

	authRequired := middleware.AuthRequired(db, redisClient)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	users := router.Group("/users")
	{
		users.POST("/register", authHandler.Register)
		users.POST("/login", authHandler.Login)

		authed := users.Group("")
		authed.Use(authRequired)
		{
			authed.POST("/logout", authHandler.Logout)
			authed.GET("", userHandler.DiscoverUsers)
			authed.POST("/interests", userHandler.AddInterest)
			authed.DELETE("/interests/:interestId", userHandler.RemoveInterest)
			authed.POST("/device-token", userHandler.RegisterDeviceToken)
			authed.GET("/:userId", userHandler.GetProfile)
			authed.PATCH("/:userId", middleware.SelfRequired(), userHandler.UpdateProfile)
			authed.DELETE("/:userId", middleware.SelfRequired(), userHandler.DeleteUser)
		}
	}

	interests := router.Group("/interests")
	interests.Use(authRequired)
	{
		interests.GET("", interestHandler.ListInterests)
		interests.POST("", middleware.AdminRequired(), interestHandler.CreateInterest)
		interests.DELETE("/:id", middleware.AdminRequired(), interestHandler.DeleteInterest)
	}

	matchs := router.Group("/matchs")
	matchs.Use(authRequired)
	{
		matchs.POST("/like", matchHandler.LikeUser)
		matchs.GET("/list", matchHandler.ListMatches)
		matchs.POST("/unmatch/:matchId", matchHandler.Unmatch)
		matchs.GET("/:matchId", matchHandler.GetMatch)
	}

	messages := router.Group("/messages")
	messages.Use(authRequired)
	{
		messages.POST("/send", messageHandler.SendMessage)
		messages.GET("/:matchId", messageHandler.GetMessages)
		messages.GET("/:matchId/last", messageHandler.GetLastMessage)
		messages.GET("/:matchId/unread", messageHandler.GetUnreadCount)
	}

	images := router.Group("/images")
	images.Use(authRequired)
	{
		images.POST("", imageHandler.UploadImage)
		images.GET("/:imageId", imageHandler.GetImage)
		images.DELETE("/:imageId", imageHandler.DeleteImage)
	}

	router.GET("/ws", authRequired, func(c *gin.Context) {
		websocket.HandleWebSocket(hub, c)
	})

	return router
}
