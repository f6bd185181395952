package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"headset-bridge/internal/auth"
	"headset-bridge/internal/calls"
	"headset-bridge/internal/config"
	"headset-bridge/internal/devices"
	"headset-bridge/internal/eventlog"
	"headset-bridge/internal/headset"
	"headset-bridge/internal/httpapi"
	"headset-bridge/internal/reporting"
	"headset-bridge/internal/vendors"
	"headset-bridge/pkg/logger"
	"headset-bridge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// diagnosticsTTL expires the redis event list when the daemon stops writing to it.
const diagnosticsTTL = 7 * 24 * time.Hour

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(runToken(os.Args[2:], os.Stdout, os.Stderr))
	}

	// Root context that cancels on shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run starts the daemon and blocks until ctx is done or the server fails. Failures are
// logged before returning so the log file is flushed by the deferred closers.
func run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		return err
	}

	log, logCloser := logger.New(logger.Options{Env: cfg.App.Env, File: cfg.App.LogFile})
	defer logCloser.Close()
	slog.SetDefault(log)
	log.Info("headsetd starting", "env", cfg.App.Env)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var authManager *auth.Manager
	if cfg.AuthEnabled() {
		authManager, err = auth.NewManager(cfg.Auth)
		if err != nil {
			log.Error("auth init failed", "err", err)
			return err
		}
	} else {
		log.Warn("JWT_SECRET not set, control API is unauthenticated")
	}

	diagnostics, rdb, err := openDiagnostics(ctx, cfg)
	if err != nil {
		log.Error("redis init failed", "err", err)
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	history, db, err := openHistory(ctx, cfg, log)
	if err != nil {
		log.Error("postgres init failed", "err", err)
		return err
	}
	if db != nil {
		defer db.Close()
	}

	impls := buildImplementations(cfg.Headset, diagnostics, log)
	orch := headset.New(devices.NewMatcher(nil), impls, headset.Options{
		Logger:  log,
		History: history,
	})

	h := httpapi.Handlers{
		Headset:     orch,
		History:     history,
		Diagnostics: diagnostics,
		Reports:     reporting.NewService(reporting.Sources{History: history, Events: diagnostics}),
		Stream:      httpapi.StreamOptions{AllowedOrigins: cfg.App.AllowedOrigins},
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(log))
	registerRoutes(r, h, authManager)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("headsetd listening", "addr", srv.Addr, "env", cfg.App.Env, "auth", cfg.AuthEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closing the orchestrator first ends event streams so Shutdown is not held open.
	orch.Close(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// buildImplementations creates one polling implementation per supported vendor.
func buildImplementations(hc config.HeadsetConfig, diagnostics *eventlog.Service, log *slog.Logger) []headset.Implementation {
	clientOpts := vendors.ClientOptions{Timeout: hc.RequestTimeout, Logger: log}
	implOpts := vendors.Options{
		ActivePollingInterval:      hc.ActivePollInterval,
		ConnectedDeviceInterval:    hc.ConnectedInterval,
		DisconnectedDeviceInterval: hc.DisconnectedInterval,
		MaxRetryInterval:           hc.MaxRetryInterval,
		Diagnostics:                vendors.EventLogAdapter{Log: diagnostics},
		Logger:                     log,
	}

	protocols := []vendors.Protocol{
		vendors.NewPlantronics(
			vendors.NewClient(vendors.VendorPlantronics, orDefault(hc.PlantronicsURL, vendors.PlantronicsBaseURL), clientOpts),
			hc.PluginName,
		),
		vendors.NewJabra(
			vendors.NewClient(vendors.VendorJabra, orDefault(hc.JabraURL, vendors.JabraBaseURL), clientOpts),
			hc.PluginName,
		),
		vendors.NewSennheiser(
			vendors.NewClient(vendors.VendorSennheiser, orDefault(hc.SennheiserURL, vendors.SennheiserBaseURL), clientOpts),
			hc.PluginName,
		),
	}

	out := make([]headset.Implementation, 0, len(protocols))
	for _, p := range protocols {
		out = append(out, vendors.New(p, implOpts))
	}
	return out
}

// openDiagnostics keeps raw vendor events in redis when configured, in memory otherwise.
func openDiagnostics(ctx context.Context, cfg config.Config) (*eventlog.Service, *redis.Client, error) {
	maxEvents := cfg.Headset.DiagnosticsMaxEvents
	if !cfg.RedisEnabled() {
		return eventlog.NewService(eventlog.NewMemoryRepo(maxEvents)), nil, nil
	}
	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		return nil, nil, err
	}
	repo := eventlog.NewRedisRepo(rdb, eventlog.DefaultRedisKey, maxEvents, diagnosticsTTL)
	return eventlog.NewService(repo), rdb, nil
}

// openHistory keeps finished calls in postgres when configured, in memory otherwise.
func openHistory(ctx context.Context, cfg config.Config, log *slog.Logger) (*calls.History, *sql.DB, error) {
	if !cfg.DBEnabled() {
		return calls.NewHistory(calls.NewMemoryRepo()), nil, nil
	}
	db, err := utils.OpenHistoryStore(ctx, utils.HistoryStoreConfig{
		DSN:         cfg.PostgresDSN(),
		StartupWait: 30 * time.Second,
		Logger:      log,
	})
	if err != nil {
		return nil, nil, err
	}
	repo := calls.NewSQLRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate call history: %w", err)
	}
	return calls.NewHistory(repo), db, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
