package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/claude/livereps/internal/catalog"
	"github.com/claude/livereps/internal/config"
	"github.com/claude/livereps/internal/events"
	"github.com/claude/livereps/internal/ingest/alpha"
	"github.com/claude/livereps/internal/localstore"
	"github.com/claude/livereps/internal/logging"
	livemcp "github.com/claude/livereps/internal/mcp"
	"github.com/claude/livereps/internal/metrics"
	"github.com/claude/livereps/internal/scheduler"
	"github.com/claude/livereps/internal/server"
	"github.com/claude/livereps/internal/service"
	"github.com/claude/livereps/internal/session"
	"github.com/claude/livereps/internal/storage"
	"github.com/claude/livereps/internal/telemetry"
	"github.com/go-redis/redis/v8"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// backend is the persistence surface shared by the postgres and sqlite stores.
type backend interface {
	session.Store
	service.ReadStore
	catalog.Source
	catalog.Writer
	alpha.Importer
	server.UserStore
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional .env file with LIVEREPS_* overrides")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	boot := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := config.LoadDotEnv(*envPath); err != nil {
		boot.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, logCloser := logging.New(logging.Params{
		Level:      cfg.Logging.Level,
		JSON:       cfg.Logging.Format == "json",
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logCloser.Close()
	log.Info("LiveReps starting", "version", Version, "driver", cfg.Database.Driver)

	if err := run(cfg, *migrateOnly, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, migrateOnly bool, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, Version, log)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// Open the store
	var store backend
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		if migrateOnly {
			log.Info("migrate-only: sqlite schema is applied on open")
		}
		ls, err := localstore.Open(ctx, cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening sqlite store: %w", err)
		}
		defer ls.Close()
		store = ls
		log.Info("sqlite store opened", "path", cfg.Database.Path)
	default:
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, cfg.Database.Migrations); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied")
		if migrateOnly {
			log.Info("migrate-only: exiting")
			return nil
		}
		db, err := storage.New(ctx, dsn, cfg.Tracing.Enabled)
		if err != nil {
			return fmt.Errorf("connecting database: %w", err)
		}
		defer db.Close()
		store = db
		log.Info("database connected")
	}
	if migrateOnly {
		return nil
	}

	// Seed workout definitions from the catalog file
	if cfg.Catalog.Path != "" {
		f, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		n, err := catalog.Seed(ctx, f, store)
		if err != nil {
			return fmt.Errorf("seeding catalog: %w", err)
		}
		log.Info("catalog seeded", "workouts", n, "path", cfg.Catalog.Path)
	}
	cached := catalog.NewCached(store, cfg.Catalog.CacheMB, log)

	// Event sinks
	sinks := events.Fanout{events.NewLogSink(log)}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, events will only be logged", "addr", cfg.Redis.Addr, "error", err)
		} else {
			sinks = append(sinks, events.NewRedisSink(rdb, cfg.Redis.Channel))
			log.Info("redis event sink enabled", "addr", cfg.Redis.Addr)
		}
	}

	mm := metrics.NewManager("livereps", "", prometheus.DefaultRegisterer)

	loc, err := cfg.Session.Location()
	if err != nil {
		return fmt.Errorf("session timezone: %w", err)
	}
	machine := session.NewMachine(store, cached, sinks, mm, log, session.Config{
		AutosaveInterval:  cfg.Session.AutosaveInterval,
		CheckpointTimeout: cfg.Session.CheckpointTimeout,
		AsyncCheckpoints:  cfg.Session.AsyncCheckpoints,
		Location:          loc,
	})
	defer machine.Close()

	registry := session.NewRegistry()
	sched := scheduler.New(machine, registry, mm, log, cfg.Session.TickInterval)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	svc := service.New(machine, registry, store, nil, cfg.Readiness.WeeklyTarget, log)
	srv := server.New(svc, alpha.NewProvider(store, loc, log), cfg.Auth.APIKey, mm, log)
	srv.SetMetricsHandler(promhttp.Handler())

	mcpSrv := livemcp.New(svc, Version, log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		ts := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := ts.Start(); err != nil {
			return fmt.Errorf("tsnet start: %w", err)
		}
		defer ts.Close()

		lc, err := ts.LocalClient()
		if err != nil {
			return fmt.Errorf("tsnet local client: %w", err)
		}
		srv.SetTailscale(lc, store)

		listener, err = ts.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
