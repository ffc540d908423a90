package main // Entry point of the fleet API server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/fleet-management/internal/app"
	"github.com/iliyamo/fleet-management/internal/config"
	"github.com/iliyamo/fleet-management/internal/handler"
	"github.com/iliyamo/fleet-management/internal/router"
	"github.com/iliyamo/fleet-management/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load() // .env + environment
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	images, err := storage.NewLocalStore(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}
	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))

	router.Mount(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, a.Users, a.Tokens),
		Fuel:          handler.NewFuelHandler(a.Fleet, images, cfg.MaxUploadBytes),
		Assignments:   handler.NewAssignmentHandler(a.Fleet),
		Vehicles:      handler.NewVehicleHandler(a.Vehicles),
		Personnel:     handler.NewPersonnelHandler(cfg, a.Users),
		Incidents:     handler.NewIncidentHandler(a.Fleet),
		Notifications: handler.NewNotificationHandler(a.Notifications),
	}, router.Options{
		JWTSecret:      cfg.JWTSecret,
		DB:             a.DB,
		Redis:          rdb,
		RateLimit:      config.LoadRateLimitConfig(),
		Cache:          config.LoadCacheConfig(),
		Metrics:        a.Metrics,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env), slog.String("db", a.Dialect.Name))
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
