package router

import (
	"log"

	"marketsync/config"
	"marketsync/internal/handler"
	"marketsync/internal/middleware"
	"marketsync/internal/repository"
	"marketsync/internal/service"
	"marketsync/internal/ws"
	"marketsync/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)

	hub := ws.NewHub()

	// Services
	fcmSvc := service.NewFCMService(cfg.Firebase.ServiceAccountPath)
	if fcmSvc != nil {
		log.Printf("[FCM] Push notifications enabled")
	} else if cfg.Firebase.ServiceAccountPath != "" {
		log.Printf("[FCM] Push notifications disabled: failed to init (check service account file)")
	} else {
		log.Printf("[FCM] Push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable")
	}
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, fcmSvc, hub)
	bookingSvc := service.NewBookingService(bookingRepo, userRepo, notifSvc)
	messageSvc := service.NewMessageService(messageRepo, bookingSvc, notifSvc, hub)
	presenceSvc := service.NewPresenceService(presenceRepo, hub)

	// Handlers
	meHandler := handler.NewMeHandler(userRepo)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	presenceHandler := handler.NewPresenceHandler(presenceSvc)
	uploadHandler := handler.NewUploadHandler(cloud, cfg.Cloudinary.Folder)

	api := r.Group("/api/v1")
	api.Use(
		middleware.AuthRequired(&cfg.JWT),
		middleware.EnsureUser(userRepo),
		middleware.RateLimit(middleware.NewInMemoryRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)),
	)
	{
		api.GET("/me", meHandler.GetProfile)
		api.POST("/me/fcm-token", meHandler.RegisterFCMToken)

		api.GET("/notifications", notificationHandler.List)
		api.PUT("/notifications/read", notificationHandler.SetRead)
		api.PUT("/notifications/read-all", notificationHandler.MarkAllRead)

		api.POST("/bookings", bookingHandler.Create)
		api.GET("/bookings/:id", bookingHandler.Get)
		api.POST("/bookings/:id/quotes", bookingHandler.Quote)
		api.GET("/bookings/:id/messages", messageHandler.List)
		api.POST("/bookings/:id/messages", messageHandler.Send)
		api.PUT("/bookings/:id/messages/read", messageHandler.MarkThreadRead)

		api.GET("/presence", presenceHandler.List)
		api.PUT("/presence", presenceHandler.SetPresence)

		api.POST("/uploads/chat", uploadHandler.UploadChatMedia)
	}

	r.GET("/ws/feed", handler.UpgradeFeedWS(&cfg.JWT, hub, bookingSvc))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "feed_clients": hub.ClientCount()})
	})

	return r
}
