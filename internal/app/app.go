package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/config"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/analytics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/repository/sqlite"
	analyticsService "github.com/cmlabs-hris/attendance-metrics-go/internal/service/analytics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/service/daymetrics"
	metricsService "github.com/cmlabs-hris/attendance-metrics-go/internal/service/metrics"
	recalculationService "github.com/cmlabs-hris/attendance-metrics-go/internal/service/recalculation"
)

// App holds the services shared by the API server and the CLI.
type App struct {
	Config        *config.Config
	DB            *database.DB
	Rules         attendance.Rules
	JWT           jwt.Service
	Hub           *sse.Hub
	Analytics     analytics.Service
	Metrics       metrics.Service
	Recalculation recalculation.Service
	Runner        *recalculationService.Runner

	closers []func()
}

// New connects to the record store, opens the checkpoint backend and wires
// every service. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	rules, err := cfg.Analytics.Rules()
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{
		Config: cfg,
		DB:     db,
		Rules:  rules,
		JWT:    jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration),
		Hub:    sse.NewHub(),
	}
	a.closers = append(a.closers, db.Close)

	progressStore, err := a.openProgressStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	attendanceRepo := postgresql.NewAttendanceRepository(db, rules.Location)
	metricRepo := postgresql.NewUnifiedMetricRepository(db, rules.Location)

	a.Analytics = analyticsService.NewAnalyticsService(attendanceRepo, rules, nil)
	a.Metrics = metricsService.NewMetricsService(metricRepo, rules.Location)

	recalc := recalculationService.NewRecalculationService(
		attendanceRepo,
		metricRepo,
		progressStore,
		postgresql.NewTransactor(db),
		daymetrics.NewCalculator(rules),
		recalculationService.Options{
			CheckpointEveryDays: cfg.Recalculation.CheckpointEveryDays,
			DefaultMonth:        cfg.Recalculation.DefaultMonth,
			OnCheckpoint:        recalculationService.PublishProgress(a.Hub),
		},
	)
	a.Recalculation = recalc
	a.Runner = recalculationService.NewRunner(recalc)

	return a, nil
}

func (a *App) openProgressStore(ctx context.Context) (recalculation.ProgressStore, error) {
	switch a.Config.Recalculation.CheckpointBackend {
	case "sqlite":
		gormDB, err := database.NewSQLiteDB(a.Config.Recalculation.SQLitePath)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := gormDB.DB(); err == nil {
			a.closers = append(a.closers, func() { _ = sqlDB.Close() })
		}
		store := sqlite.NewProgressStore(gormDB)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		slog.Info("Recalculation checkpoints stored in sqlite", "path", a.Config.Recalculation.SQLitePath)
		return store, nil
	default:
		store := postgresql.NewRecalculationProgressRepository(a.DB)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}

// Close releases connections in reverse order of opening
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
