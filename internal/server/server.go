package server

import (
	"context"
	"net/http"
	"time"

	"anoa.com/isfportal/internal/config"
	"anoa.com/isfportal/internal/middleware"
	"anoa.com/isfportal/pkg/logger"
	"anoa.com/isfportal/pkg/ratelimit"
	"anoa.com/isfportal/pkg/storage"

	assetHttp "anoa.com/isfportal/internal/modules/asset/delivery/http"
	assetRepo "anoa.com/isfportal/internal/modules/asset/repository"
	assetService "anoa.com/isfportal/internal/modules/asset/service"

	chatHttp "anoa.com/isfportal/internal/modules/chat/delivery/http"
	chatService "anoa.com/isfportal/internal/modules/chat/service"

	contentHttp "anoa.com/isfportal/internal/modules/content/delivery/http"
	contentRepo "anoa.com/isfportal/internal/modules/content/repository"
	contentService "anoa.com/isfportal/internal/modules/content/service"

	identityHttp "anoa.com/isfportal/internal/modules/identity/delivery/http"
	identityRepo "anoa.com/isfportal/internal/modules/identity/repository"
	identityService "anoa.com/isfportal/internal/modules/identity/service"

	realtimeHttp "anoa.com/isfportal/internal/modules/realtime/delivery/http"
	realtimeService "anoa.com/isfportal/internal/modules/realtime/service"

	searchHttp "anoa.com/isfportal/internal/modules/search/delivery/http"
	searchService "anoa.com/isfportal/internal/modules/search/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Dependencies are the external clients the server is built on.
type Dependencies struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Storage storage.ObjectStorage
	Chat    chatService.ChatService
	Search  searchService.SearchService
}

type Server struct {
	engine *gin.Engine
	http   *http.Server
	cron   *cron.Cron
	deps   Dependencies
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := ratelimit.NewRedisLimiter(deps.Redis)

	accountRepository := identityRepo.NewAccountRepository(deps.DB)
	tokenStore := identityRepo.NewTokenStore(deps.Redis)
	authSvc := identityService.NewAuthService(accountRepository, tokenStore, limiter, identityService.Options{
		Secret:              cfg.JWTSecret,
		AccessTTL:           cfg.JWTTTL,
		RefreshTTL:          cfg.RefreshTTL,
		RequireConfirmation: cfg.AuthRequireConfirmation,
		PublicURL:           cfg.PublicURL,
		SignInWindow:        cfg.RateLimitSignIn,
	})
	authHandler := identityHttp.NewAuthHandler(authSvc)

	broker := realtimeService.NewRedisBroker(deps.Redis)
	realtimeHandler := realtimeHttp.NewRealtimeHandler(broker)

	contentSvc := contentService.NewContentService(contentRepo.NewContentRepository(deps.DB), broker, deps.Search)
	contentHandler := contentHttp.NewContentHandler(contentSvc)

	assetSvc := assetService.NewAssetService(assetRepo.NewAssetRepository(deps.DB), deps.Storage, cfg.AssetOrphanAge)
	assetHandler := assetHttp.NewAssetHandler(assetSvc)

	// Start Orphan Cleanup Job (Background)
	scheduler := cron.New()
	if _, err := assetService.ScheduleCleanup(scheduler, cfg.AssetCleanupSchedule, assetSvc); err != nil {
		return nil, err
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(accountRepository, tokenStore, cfg.JWTSecret)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/auth/v1")
	{
		auth.POST("/signup", authHandler.SignUp)
		auth.POST("/token", authHandler.Token)
		auth.GET("/verify", authHandler.Verify)
		auth.POST("/logout", authMiddleware.RequireAuth(), authHandler.Logout)
		auth.GET("/user", authMiddleware.RequireAuth(), authHandler.GetUser)
	}

	// Table-level gating happens in the content service.
	rest := router.Group("/rest/v1")
	rest.Use(authMiddleware.OptionalAuth())
	{
		rest.GET("/:table", contentHandler.List)
		rest.POST("/:table", contentHandler.Insert)
		rest.DELETE("/:table", contentHandler.Delete)
	}

	router.GET("/realtime/v1/:table", realtimeHandler.Subscribe)

	router.POST("/storage/v1/object/:bucket/*path",
		authMiddleware.RequireAuth(),
		authMiddleware.RequireAdmin(),
		assetHandler.Upload,
	)

	api := router.Group("/api")
	{
		if deps.Chat != nil {
			api.Any("/chat", chatHttp.NewChatHandler(deps.Chat, limiter, cfg.RateLimitChat).Chat)
		} else {
			api.Any("/chat", func(c *gin.Context) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chat is not configured"})
			})
		}
		if deps.Search != nil {
			api.GET("/search", searchHttp.NewSearchHandler(deps.Search).Search)
		}
	}

	return &Server{
		engine: router,
		cron:   scheduler,
		deps:   deps,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run blocks until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.cron.Start()
	logger.Info().Str("addr", s.http.Addr).Msg("server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	<-s.cron.Stop().Done()
	if s.deps.Chat != nil {
		s.deps.Chat.Close()
	}
	return s.http.Shutdown(ctx)
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Prefer"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
