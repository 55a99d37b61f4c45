package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notebook-ai/config"
	"notebook-ai/internal/apis/routes"
	"notebook-ai/internal/di"
	"notebook-ai/internal/middleware"
	"notebook-ai/internal/services"
	"notebook-ai/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal().Err(err).Msg("failed to load environment variables")
	}

	logger.Init(logger.Config{
		Level:  config.Env.LogLevel,
		Pretty: config.Env.IsDevelopment(),
	})

	if !config.Env.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	di.Initialize()

	ginApp := gin.New()
	ginApp.Use(middleware.CustomRecoveryMiddleware())
	ginApp.Use(gin.Logger())
	ginApp.Use(cors.New(cors.Config{
		AllowOrigins: []string{config.Env.CorsAllowedOrigin},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"User-Agent",
			"Referer",
			"X-Encryption-Key",
			"Access-Control-Allow-Origin",
			"Access-Control-Allow-Credentials",
		},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupDefaultRoutes(ginApp)

	registry, err := di.GetSubmissionRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get submission registry")
	}
	cancelBus, err := di.GetCancelBus()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get cancel bus")
	}

	srv := &http.Server{
		Addr:              ":" + config.Env.Port,
		Handler:           ginApp,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info().Str("port", config.Env.Port).Str("environment", config.Env.Environment).Msg("starting notebook-ai server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := cancelBus.Listen(groupCtx, registry.HandleCancelRequest)
		if err != nil && !errors.Is(err, context.Canceled) {
			// Local stops keep working without the bus.
			log.Error().Err(err).Msg("cancel bus stopped")
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info().Msg("notebook-ai is shutting down")

		if n := registry.CancelAll(services.ErrCancelled); n > 0 {
			log.Info().Int("submissions", n).Msg("cancelled active submissions")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr := srv.Shutdown(shutdownCtx)

		// Submissions still flagging their assistant message need the store.
		registry.CancelAll(services.ErrCancelled)
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), services.MarkFailedTimeout+5*time.Second)
		defer cancelDrain()
		if err := registry.WaitIdle(drainCtx); err != nil {
			log.Warn().Int("submissions", registry.Len()).Msg("shutting down with unfinished submissions")
		}
		return shutdownErr
	})

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("notebook-ai stopped with error")
	}

	if mongoClient, err := di.GetMongoClient(); err == nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}

	log.Info().Msg("notebook-ai has been shut down")
}
