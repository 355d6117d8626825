// Package main runs the movie-night coordination HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cinelobby/backend/config"
	"github.com/cinelobby/backend/internal/auth"
	"github.com/cinelobby/backend/internal/middleware"
	"github.com/cinelobby/backend/internal/ratelimit"
	"github.com/cinelobby/backend/internal/sessions"
	"github.com/cinelobby/backend/pkg/database"
	"github.com/cinelobby/backend/pkg/redis"
	"github.com/cinelobby/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	joinLimiter := ratelimit.NewLimiter(rdb.Client, cfg.RateLimit.JoinLimit,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	sessionRepo := sessions.NewSessionRepository(pool)
	participantRepo := sessions.NewParticipantRepository(pool)
	coordinator := sessions.NewCoordinator(sessionRepo, participantRepo, logger)
	sessionHandler := sessions.NewHandler(coordinator, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Join-code lookups are rate limited per client to slow code guessing.
	limited := middleware.RateLimit(joinLimiter, logger)

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/sessions", sessionHandler.Create)
		api.POST("/sessions/join", limited, sessionHandler.Join)
		api.GET("/sessions/self", sessionHandler.Self)
		api.GET("/sessions/code/:code", limited, sessionHandler.GetByCode)
		api.GET("/sessions/:id/participants", sessionHandler.ListParticipants)
		api.PATCH("/sessions/:id/status", sessionHandler.UpdateStatus)
		api.DELETE("/sessions/:id/leave", sessionHandler.Leave)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
