package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/app"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-metrics-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/logger"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		App:     "attendance-metrics",
		Version: version,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Format:  cfg.App.LogFormat,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	scheduler := cron.NewScheduler(application.Rules.Location)
	if cfg.Recalculation.ScheduleEnabled {
		jobs := cron.NewRecalculationJobs(application.Runner, application.Rules.Location, cfg.Recalculation.ScheduleLookback)
		if err := jobs.RegisterJobs(scheduler, cfg.Recalculation.Schedule); err != nil {
			slog.Error("Failed to register cron jobs", "error", err)
			os.Exit(1)
		}
	}
	scheduler.Start()

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{Logger: log, AllowedOrigins: cfg.App.AllowedOrigins},
		application.JWT,
		appHTTP.NewAnalyticsHandler(application.Analytics),
		appHTTP.NewMetricsHandler(application.Metrics),
		appHTTP.NewRecalculationHandler(application.Runner, application.Recalculation, application.Hub, application.JWT),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end when the process is asked to stop
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	scheduler.Stop()
	// Running recalculations pause and write their checkpoint before the pool closes
	if err := application.Runner.Shutdown(shutdownCtx); err != nil {
		slog.Error("Recalculation runner shutdown failed", "error", err)
	}
}
