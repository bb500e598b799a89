package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/iflyair/ifly-backend/internal/api"
	"github.com/iflyair/ifly-backend/internal/app"
	"github.com/iflyair/ifly-backend/internal/core/service"
	mongodb "github.com/iflyair/ifly-backend/internal/infrastructure/db/mongo"
	redisdb "github.com/iflyair/ifly-backend/internal/infrastructure/db/redis"
	"github.com/iflyair/ifly-backend/internal/infrastructure/queue"
	"github.com/iflyair/ifly-backend/internal/pkg/config"
	"github.com/iflyair/ifly-backend/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	store := mongodb.NewRecordStore(db)
	authRepo := mongodb.NewAuthRepository(db, store)
	if err := authRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}

	// --- Notification pipeline ---
	dedup := redisdb.NewNotificationDedup(rdb)
	sink := service.NewNotificationService(store, dedup, log)
	dispatcher := queue.NewDispatcher(cfg.NotifyWorkers, sink, log)
	dispatcher.Start(ctx)

	// --- Access layer ---
	registry := app.BuildRegistry(dispatcher)
	if err := store.EnsureIndexes(ctx, registry.Names()); err != nil {
		log.Fatal().Err(err).Msg("record index creation failed")
	}

	resources := service.NewResourceService(registry, store, log)
	auth := service.NewAuthService(authRepo, store, cfg.JWTSecret, cfg.TokenTTL)

	e := api.NewRouter(api.Deps{
		Registry:  registry,
		Resources: resources,
		Auth:      auth,
		Mongo:     db,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		Logger:    log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
