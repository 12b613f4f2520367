package server

import (
	"log"
	"strings"
	"time"

	"skippy.dog/server/internal/config"
	"skippy.dog/server/internal/jobs"
	"skippy.dog/server/internal/middleware"
	"skippy.dog/server/internal/realtime"
	"skippy.dog/server/internal/search"
	"skippy.dog/server/pkg/mailer"
	"skippy.dog/server/pkg/storage"

	availabilityHttp "skippy.dog/server/internal/modules/availability/delivery/http"
	availabilityRepo "skippy.dog/server/internal/modules/availability/repository"
	availabilityService "skippy.dog/server/internal/modules/availability/service"

	conversationHttp "skippy.dog/server/internal/modules/conversation/delivery/http"
	conversationRepo "skippy.dog/server/internal/modules/conversation/repository"
	conversationService "skippy.dog/server/internal/modules/conversation/service"

	meetingHttp "skippy.dog/server/internal/modules/meeting/delivery/http"
	meetingRepo "skippy.dog/server/internal/modules/meeting/repository"
	meetingService "skippy.dog/server/internal/modules/meeting/service"

	messageHttp "skippy.dog/server/internal/modules/message/delivery/http"
	messageRepo "skippy.dog/server/internal/modules/message/repository"
	messageService "skippy.dog/server/internal/modules/message/service"

	profileHttp "skippy.dog/server/internal/modules/profile/delivery/http"
	profileService "skippy.dog/server/internal/modules/profile/service"

	userHttp "skippy.dog/server/internal/modules/user/delivery/http"
	userRepo "skippy.dog/server/internal/modules/user/repository"
	userService "skippy.dog/server/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *jobs.Scheduler
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	users := userRepo.NewUserRepository(db)

	imageStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := search.NewService(meiliClient)

	mail := mailer.NewResendMailer()
	publisher := realtime.NewPublisher(redisClient)

	authSvc := userService.NewAuthService(users)
	authHandler := userHttp.NewAuthHandler(authSvc)

	profileSvc := profileService.NewProfileService(users, imageStorage, searchSvc)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	availabilities := availabilityRepo.NewAvailabilityRepository(db)
	availabilitySvc := availabilityService.NewAvailabilityService(availabilities, searchSvc, redisClient, cfg)
	availabilityHandler := availabilityHttp.NewAvailabilityHandler(availabilitySvc)

	conversations := conversationRepo.NewConversationRepository(db)
	messages := messageRepo.NewMessageRepository(db)

	messageSvc := messageService.NewMessageService(messages, conversations, users, publisher, mail, redisClient, cfg)
	messageHandler := messageHttp.NewMessageHandler(messageSvc)

	conversationSvc := conversationService.NewConversationService(conversations, messages)
	conversationHandler := conversationHttp.NewConversationHandler(conversationSvc)

	meetings := meetingRepo.NewMeetingRepository(db)
	meetingSvc := meetingService.NewMeetingService(meetings, conversations, users, mail)
	meetingHandler := meetingHttp.NewMeetingHandler(meetingSvc)

	realtimeHandler := realtime.NewHandler(redisClient)

	scheduler := jobs.NewScheduler()
	scheduler.Register(jobs.NewMeetingReminderJob(meetings, users, mail))
	scheduler.Start()

	router := gin.New()
	setupCORS(router, cfg)
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware()

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}
	api.GET("/availability", availabilityHandler.List)
	api.GET("/availability/search", availabilityHandler.Search)
	api.GET("/availability/:id", availabilityHandler.Get)
	api.GET("/profiles", profileHandler.List)
	api.GET("/profiles/search", profileHandler.Search)

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/profile/me", profileHandler.GetMe)
		protected.PUT("/profile", profileHandler.UpdateMe)
		protected.POST("/profile/photo", profileHandler.UploadPhoto)
		protected.GET("/profiles/:userID", profileHandler.GetByID)

		protected.POST("/availability", availabilityHandler.Create)
		protected.PUT("/availability/:id", availabilityHandler.Update)
		protected.DELETE("/availability/:id", availabilityHandler.Delete)

		protected.GET("/conversations", conversationHandler.List)
		protected.GET("/conversations/:id", conversationHandler.Get)
		protected.POST("/conversations/:id/read", messageHandler.MarkConversationRead)

		protected.POST("/messages", messageHandler.Send)
		protected.GET("/messages/unread", messageHandler.Unread)
		protected.GET("/messages/with/:userID", messageHandler.TimelineWith)
		protected.POST("/messages/:id/read", messageHandler.MarkMessageRead)
		protected.POST("/messages/read-from/:senderID", messageHandler.MarkSenderRead)
		protected.POST("/messages/read-all", messageHandler.MarkAllRead)
		protected.GET("/messages/ws", realtimeHandler.HandleWebSocket)

		protected.POST("/meetings", meetingHandler.Create)
		protected.GET("/meetings/upcoming", meetingHandler.ListUpcoming)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   scheduler,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) Shutdown() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func setupCORS(router *gin.Engine, cfg *config.Config) {
	origins := strings.Split(cfg.AllowedOrigins, ",")

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
