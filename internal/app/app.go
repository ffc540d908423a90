// Package app wires configuration, storage and the fleet core together for
// the server and the command line tool.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/iliyamo/fleet-management/internal/config"
	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/imagemeta"
	"github.com/iliyamo/fleet-management/internal/metrics"
	"github.com/iliyamo/fleet-management/internal/queue"
	"github.com/iliyamo/fleet-management/internal/repository"
	"github.com/iliyamo/fleet-management/internal/service"
)

// notifier is a service.Notifier that must be flushed on shutdown.
type notifier interface {
	service.Notifier
	Close()
}

// App holds the long-lived dependencies shared by every entry point.
type App struct {
	Cfg     config.Config
	Logger  *slog.Logger
	DB      *sql.DB
	Dialect database.Dialect
	Metrics *metrics.Recorder

	Users         *repository.UserRepo
	Tokens        *repository.TokenRepo
	Vehicles      *repository.VehicleRepo
	Notifications *repository.NotificationRepo
	Fleet         *service.Fleet

	notifier notifier
}

// OpenDB connects to the configured database.
func OpenDB(cfg config.Config) (*sql.DB, database.Dialect, error) {
	d, err := database.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, database.Dialect{}, err
	}
	var db *sql.DB
	if d.Name == database.SQLite.Name {
		db, err = database.OpenSQLite(cfg.SQLitePath)
	} else {
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		return nil, database.Dialect{}, fmt.Errorf("open %s: %w", d.Name, err)
	}
	return db, d, nil
}

// New opens the database, applies the schema and builds the core.
// Notifications go to RabbitMQ when RabbitURL is set and straight into the
// notifications table otherwise.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, d, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &App{
		Cfg:           cfg,
		Logger:        logger,
		DB:            db,
		Dialect:       d,
		Users:         repository.NewUserRepo(db, d),
		Tokens:        repository.NewTokenRepo(db),
		Vehicles:      repository.NewVehicleRepo(db, d),
		Notifications: repository.NewNotificationRepo(db, d),
	}
	if cfg.RabbitURL != "" {
		a.notifier = queue.NewPublisher(cfg.RabbitURL, 0, logger)
		logger.Info("notifications via rabbitmq", slog.String("queue", queue.NotificationQueue))
	} else {
		a.notifier = queue.NewDirectSink(a.Notifications, 0, logger)
		logger.Info("notifications stored directly")
	}

	opts := service.Options{
		DefaultAlertThreshold: cfg.FuelAlertThreshold,
		Notifier:              a.notifier,
		Extractor:             imagemeta.NewExtractor(),
	}
	if cfg.MetricsEnabled {
		a.Metrics = metrics.NewRecorder()
		opts.Observer = a.Metrics
	}
	a.Fleet = service.New(db, d, opts)
	return a, nil
}

// Close flushes pending notifications and closes the database.
func (a *App) Close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn("close database", slog.String("error", err.Error()))
	}
}

// ActorByEmail resolves an active user into the actor the core expects.
func (a *App) ActorByEmail(ctx context.Context, email string) (service.Actor, error) {
	u, err := a.Users.GetByEmail(ctx, email)
	if err != nil {
		return service.Actor{}, fmt.Errorf("user %s: %w", email, err)
	}
	if !u.IsActive {
		return service.Actor{}, fmt.Errorf("user %s is deactivated", email)
	}
	return service.Actor{ID: u.ID, Roles: []string{u.Role}}, nil
}
