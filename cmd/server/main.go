package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"anoa.com/sparkvest/internal/bootstrap"
	"anoa.com/sparkvest/internal/config"
	"anoa.com/sparkvest/internal/server"
	"anoa.com/sparkvest/pkg/database"
	"anoa.com/sparkvest/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Configure(cfg.AppEnv, os.Stdout)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.Options{
		Host:     cfg.DBHost,
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Name:     cfg.DBName,
		Port:     cfg.DBPort,
		SSLMode:  cfg.DBSSLMode,
		Debug:    cfg.IsDevelopment(),
	})
	if err != nil {
		logger.L().Fatal().Err(err).Msg("database connection failed")
	}

	if err := bootstrap.Migrate(db); err != nil {
		logger.L().Fatal().Err(err).Msg("migration failed")
	}

	if cfg.IsDevelopment() {
		if _, err := bootstrap.EnsureAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.L().Fatal().Err(err).Msg("failed to seed admin user")
		}
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("redis connection failed")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	srv, err := server.NewServer(cfg, db, redisClient)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to build server")
	}

	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		logger.L().Fatal().Err(err).Msg("server exited with error")
	}
}
