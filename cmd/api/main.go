package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roundsettle/internal/bootstrap"
	"roundsettle/internal/handlers"
	"roundsettle/internal/middleware"
	"roundsettle/internal/routes"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "api", bootstrap.Options{UseMemory: os.Getenv("USE_MEMORY") == "1"})
	if err != nil {
		logrus.Fatalf("> 初始化失败: %v", err)
	}
	defer app.Close()
	logger := app.Logger
	settings := app.Settings

	if settings.AdminToken == "" && settings.AdminJWTSecret == "" {
		logger.Warn("> ADMIN_TOKEN and ADMIN_JWT_SECRET are empty, admin routes will reject every request")
	}

	h := handlers.NewHandler(handlers.Deps{
		Ledger:       app.Ledger,
		Indexer:      app.Indexer,
		Sweeper:      app.Sweeper,
		Finalizer:    app.Finalizer,
		PostFinalize: app.PostFinalize,
		SwapFees:     app.SwapFees,
		Logger:       logger,
	})

	// Set up router
	r := routes.SetupRouter(h, routes.Options{
		AllowedOrigins: settings.AllowedOrigins,
		Auth: middleware.AdminAuthConfig{
			Token:     settings.AdminToken,
			JWTSecret: []byte(settings.AdminJWTSecret),
		},
		RateLimit: middleware.RateLimiterConfig{
			RequestsPerSecond: float64(settings.RateLimitRPS),
			Burst:             settings.RateLimitBurst,
		},
		Metrics: app.Metrics,
		Stop:    ctx.Done(),
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("server shutdown")
		}
	}()

	logger.Infof("> API listening on :%s", settings.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server: ", err)
	}
}
