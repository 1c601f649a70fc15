package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"librarydesk/internal/chaos"
	"librarydesk/internal/circulation"
	"librarydesk/internal/clients"
	"librarydesk/internal/config"
	"librarydesk/internal/desk"
	"librarydesk/internal/querycache"
	"librarydesk/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	faults := chaos.Faults{
		Latency:     cfg.ChaosLatency,
		BlastRadius: cfg.ChaosBlastRadius,
		StatusCode:  cfg.ChaosStatusCode,
	}
	if faults.Enabled() {
		httpClient.Transport = chaos.NewTransport(http.DefaultTransport, faults)
		logger.Warn("fault injection enabled", "blast_radius", faults.BlastRadius, "latency", faults.Latency, "status_code", faults.StatusCode)
	}

	dataService := clients.NewDataServiceClient(cfg.DataServiceURL,
		clients.WithHTTPClient(httpClient),
		clients.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		clients.WithReadRetries(cfg.ReadRetries),
		clients.WithLogger(logger),
	)

	app := desk.NewAppContext(cfg.ThemeMode, desk.Branch{ID: cfg.DefaultBranchID})
	d, err := desk.New(
		desk.Services{Catalog: dataService, Membership: dataService, Circulation: dataService},
		circulation.NewCalculator(circulation.WithFinePerDay(cfg.FinePerDay)),
		querycache.New(),
		app,
		logger,
	)
	if err != nil {
		logger.Error("failed to build desk", "error", err)
		os.Exit(1)
	}

	go func() {
		ticker := time.NewTicker(cfg.SessionIdle / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.SweepSessions(cfg.SessionIdle)
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           d.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting circulation desk", "port", cfg.Port, "data_service", cfg.DataServiceURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server", "error", err)
	}
}
