package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/sparkvest/internal/config"
	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/flow"
	"anoa.com/sparkvest/internal/job"
	"anoa.com/sparkvest/internal/middleware"
	"anoa.com/sparkvest/pkg/logger"
	"anoa.com/sparkvest/pkg/mailer"
	"anoa.com/sparkvest/pkg/payment"
	"anoa.com/sparkvest/pkg/realtime"
	"anoa.com/sparkvest/pkg/storage"
	"anoa.com/sparkvest/pkg/token"

	adminHttp "anoa.com/sparkvest/internal/modules/admin/delivery/http"
	adminService "anoa.com/sparkvest/internal/modules/admin/service"

	commentHttp "anoa.com/sparkvest/internal/modules/comment/delivery/http"
	commentRepo "anoa.com/sparkvest/internal/modules/comment/repository"
	commentService "anoa.com/sparkvest/internal/modules/comment/service"

	dashboardHttp "anoa.com/sparkvest/internal/modules/dashboard/delivery/http"
	dashboardService "anoa.com/sparkvest/internal/modules/dashboard/service"

	investmentHttp "anoa.com/sparkvest/internal/modules/investment/delivery/http"
	investmentRepo "anoa.com/sparkvest/internal/modules/investment/repository"
	investmentService "anoa.com/sparkvest/internal/modules/investment/service"

	notiHttp "anoa.com/sparkvest/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/sparkvest/internal/modules/notification/repository"
	notifService "anoa.com/sparkvest/internal/modules/notification/service"

	profileHttp "anoa.com/sparkvest/internal/modules/profile/delivery/http"
	profileService "anoa.com/sparkvest/internal/modules/profile/service"

	projectHttp "anoa.com/sparkvest/internal/modules/project/delivery/http"
	projectRepo "anoa.com/sparkvest/internal/modules/project/repository"
	projectService "anoa.com/sparkvest/internal/modules/project/service"

	searchService "anoa.com/sparkvest/internal/modules/search/service"

	userHttp "anoa.com/sparkvest/internal/modules/user/delivery/http"
	userRepo "anoa.com/sparkvest/internal/modules/user/repository"
	userService "anoa.com/sparkvest/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *job.Scheduler
}

// backends groups the pieces that have a Redis and an in-process flavour.
type backends struct {
	flows   flow.Store
	revoker token.Revoker
	broker  realtime.Broker
}

func newBackends(cfg *config.Config, redisClient *redis.Client) backends {
	if redisClient == nil {
		logger.L().Warn().Msg("redis not configured, using in-memory flow store, revocation list and broker")
		return backends{
			flows:   flow.NewMemoryStore(cfg.FlowTTL),
			revoker: token.NewMemoryRevoker(),
			broker:  realtime.NewMemoryBroker(),
		}
	}
	return backends{
		flows:   flow.NewRedisStore(redisClient, cfg.FlowTTL),
		revoker: token.NewRedisRevoker(redisClient),
		broker:  realtime.NewRedisBroker(redisClient),
	}
}

func newFileStorage(cfg *config.Config) (storage.FileStorage, error) {
	if cfg.CloudinaryURL != "" {
		return storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryUploadFolder)
	}
	logger.L().Warn().Str("dir", cfg.UploadDir).Msg("cloudinary not configured, storing uploads on disk")
	return storage.NewLocalStorage(cfg.UploadDir, cfg.PublicBaseURL)
}

func newMailSender(cfg *config.Config) mailer.Sender {
	if cfg.SMTPHost == "" {
		return mailer.NewLogSender(logger.With("mailer"))
	}
	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
		Timeout:  cfg.MailTimeout,
	})
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	shared := newBackends(cfg, redisClient)

	fileStorage, err := newFileStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("init file storage: %w", err)
	}

	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	otpGateway := mailer.NewGateway(newMailSender(cfg), cfg.FlowTTL)
	paymentGateway := payment.NewRazorpayClient(payment.Config{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		BaseURL:   cfg.RazorpayBaseURL,
		Timeout:   cfg.PaymentTimeout,
	})
	projectIndex := searchService.NewProjectIndex(cfg.MeiliHost, cfg.MeiliAPIKey)

	// Repositories
	userRepository := userRepo.NewUserRepository(db)
	projectRepository := projectRepo.NewProjectRepository(db)
	investmentRepository := investmentRepo.NewInvestmentRepository(db)
	commentRepository := commentRepo.NewCommentRepository(db)
	notificationRepository := notifRepo.NewNotificationRepository(db)

	// Notification Module
	notificationSvc := notifService.NewNotificationService(notificationRepository, shared.broker)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, shared.broker)

	// User Module
	googleProvider := userService.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.OAuthTimeout)
	authSvc := userService.NewAuthService(userRepository, shared.flows, otpGateway, tokens, shared.revoker, googleProvider, cfg.OTPMaxAttempts)
	authHandler := userHttp.NewAuthHandler(authSvc, cfg.FrontendURL, !cfg.IsDevelopment())
	directoryHandler := userHttp.NewDirectoryHandler(userService.NewDirectoryService(userRepository))

	profileSvc := profileService.NewProfileService(userRepository)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	// Project Module
	projectSvc := projectService.NewProjectService(projectRepository, fileStorage, projectIndex)
	projectHandler := projectHttp.NewProjectHandler(projectSvc, shared.broker)

	// Investment Module
	investmentSvc := investmentService.NewInvestmentService(
		investmentRepository,
		projectRepository,
		shared.flows,
		paymentGateway,
		fileStorage,
		notificationSvc,
		shared.broker,
		cfg.PaymentCurrency,
	)
	investmentHandler := investmentHttp.NewInvestmentHandler(investmentSvc)

	// Comment Module
	commentSvc := commentService.NewCommentService(commentRepository, projectRepository, notificationSvc)
	commentHandler := commentHttp.NewCommentHandler(commentSvc)

	// Admin Module
	adminSvc := adminService.NewAdminService(projectRepository, userRepository, investmentRepository, projectIndex, notificationSvc)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	dashboardSvc := dashboardService.NewDashboardService(projectSvc, investmentSvc, adminSvc)
	dashboardHandler := dashboardHttp.NewDashboardHandler(dashboardSvc)

	// Background jobs
	scheduler := job.NewScheduler()
	if err := scheduler.Register(job.NewReindexJob(projectRepository, projectIndex, cfg.ReindexSchedule)); err != nil {
		return nil, err
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	if cfg.CloudinaryURL == "" {
		router.Static("/static", cfg.UploadDir)
	}

	authMiddleware := middleware.NewAuthMiddleware(userRepository, tokens, shared.revoker)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/otp/verify", authHandler.VerifyOtp)
		auth.POST("/otp/resend", authHandler.ResendOtp)
		auth.POST("/password/forgot", authHandler.ForgotPassword)
		auth.POST("/password/verify", authHandler.VerifyPasswordOtp)
		auth.POST("/password/reset", authHandler.ResetPassword)
		auth.GET("/google/login", authHandler.GoogleLogin)
		auth.GET("/google/callback", authHandler.GoogleCallback)
	}
	api.GET("/projects/explore", projectHandler.Explore)

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)

		// Profile routes
		protected.GET("/profile/me", profileHandler.GetCurrentProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)

		protected.GET("/users/search", directoryHandler.SearchUsers)
		protected.GET("/investments", investmentHandler.MyInvestments)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Routes that act on the loaded account
		member := protected.Group("")
		member.Use(authMiddleware.LoadUser())
		{
			member.GET("/dashboard", dashboardHandler.Dashboard)

			member.GET("/projects", projectHandler.Browse)
			member.GET("/projects/search", projectHandler.Search)
			member.GET("/projects/:id", projectHandler.Detail)
			member.GET("/projects/:id/live", projectHandler.Live)

			member.GET("/projects/:id/comments", commentHandler.List)
			member.POST("/projects/:id/comments", commentHandler.PostComment)
			member.POST("/comments/:id/reply", commentHandler.Reply)
			member.POST("/comments/:id/like", commentHandler.ToggleLike)
			member.DELETE("/comments/:id", commentHandler.Delete)
		}

		owner := protected.Group("")
		owner.Use(authMiddleware.RequireRole(entity.RoleIdeaOwner))
		{
			owner.POST("/projects", projectHandler.Submit)
		}

		investor := protected.Group("")
		investor.Use(authMiddleware.RequireRole(entity.RoleInvestor))
		{
			investor.POST("/projects/:id/invest", investmentHandler.Initiate)
			investor.POST("/payments/confirm", investmentHandler.Confirm)
		}

		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/dashboard", adminHandler.Dashboard)
			adminGroup.GET("/projects", adminHandler.ListProjects)
			adminGroup.GET("/projects/:id", adminHandler.ProjectDetail)
			adminGroup.POST("/projects/:id/approve", adminHandler.Approve)
			adminGroup.POST("/projects/:id/reject", adminHandler.Reject)
			adminGroup.POST("/projects/:id/feedback", adminHandler.Feedback)
			adminGroup.GET("/users", adminHandler.ListUsers)
			adminGroup.PUT("/users/:id", adminHandler.UpdateUser)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   scheduler,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr and starts the scheduler until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.L().Info().Msg("http server stopped")
	return nil
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
