package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"anoa.com/isfportal/internal/bootstrap"
	"anoa.com/isfportal/internal/config"
	"anoa.com/isfportal/internal/server"
	"anoa.com/isfportal/pkg/database"
	"anoa.com/isfportal/pkg/logger"
	"anoa.com/isfportal/pkg/storage"

	chatService "anoa.com/isfportal/internal/modules/chat/service"
	searchService "anoa.com/isfportal/internal/modules/search/service"

	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Configure(logger.Config{
		Level:  logger.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	db, err := database.Connect(database.Options{
		Host:     cfg.DBHost,
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Name:     cfg.DBName,
		Port:     cfg.DBPort,
		Debug:    cfg.IsDevelopment(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}

	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed roles")
	}
	if cfg.IsDevelopment() {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed admin user")
		}
		if err := bootstrap.SeedTeam(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed team roster")
		}
	}

	// Refresh tokens, rate limits and change notifications all live in redis.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	redisClient := redis.NewClient(redisOpts)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	cancelPing()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	imageStorage, err := storage.NewCloudinaryStorage(storage.CloudinaryOptions{
		CloudName:  cfg.CloudinaryCloudName,
		APIKey:     cfg.CloudinaryAPIKey,
		APISecret:  cfg.CloudinaryAPISecret,
		RootFolder: cfg.CloudinaryUploadFolder,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize cloudinary storage")
	}

	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := searchService.NewMeiliSearchService(meiliClient)

	// Chat is optional; without a key /api/chat answers 503.
	var chat chatService.ChatService
	if cfg.GeminiAPIKey != "" {
		chat, err = chatService.NewGeminiChat(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize gemini")
		}
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, chat disabled")
	}

	srv, err := server.NewServer(cfg, server.Dependencies{
		DB:      db,
		Redis:   redisClient,
		Storage: imageStorage,
		Chat:    chat,
		Search:  searchSvc,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatal().Err(err).Msg("server exited with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	_ = redisClient.Close()
	logger.Info().Msg("server stopped")
}
