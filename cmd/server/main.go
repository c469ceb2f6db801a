package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/openlearn/lms-api/internal/api"
	"github.com/openlearn/lms-api/internal/infrastructure/config"
	mongoinfra "github.com/openlearn/lms-api/internal/infrastructure/db/mongo"
	redisinfra "github.com/openlearn/lms-api/internal/infrastructure/db/redis"
	"github.com/openlearn/lms-api/internal/infrastructure/storage"
	"github.com/openlearn/lms-api/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Console: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongoinfra.Connect(ctx, mongoinfra.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisinfra.Connect(ctx, redisinfra.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()

	assets, err := storage.Get(storage.Config{
		Endpoint:      cfg.AssetStore.Endpoint,
		AccessKey:     cfg.AssetStore.AccessKey,
		SecretKey:     cfg.AssetStore.SecretKey,
		Bucket:        cfg.AssetStore.Bucket,
		Region:        cfg.AssetStore.Region,
		UseSSL:        cfg.AssetStore.UseSSL,
		PublicBaseURL: cfg.AssetStore.PublicBaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect asset store")
	}
	if err := assets.EnsureBucket(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure asset bucket")
	}

	e := api.NewRouter(cfg, db, rdb, assets)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.Env).Msg("lms-api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
