package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/crumbworks/sheetforge/internal/config"
	"github.com/crumbworks/sheetforge/internal/core"
	"github.com/crumbworks/sheetforge/internal/logging"
	"github.com/crumbworks/sheetforge/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"template_dir", cfg.Templates.Dir,
		"compose_max_concurrent", cfg.Compose.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Row source: native pgx pool, database/sql, or none. Inline table
	// rows work without any database.
	var (
		source  core.RowSource
		pool    *pgxpool.Pool
		pinger  web.Pinger
		auditor *core.Auditor
	)
	switch {
	case cfg.Database.UsesPool():
		pool, err = openPool(ctx, cfg)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		source = core.NewPoolSource(pool)
		pinger = pool

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		}

	case cfg.Database.UsesSQL():
		db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			slog.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxConns)
		db.SetConnMaxLifetime(cfg.Database.MaxConnLifetime)
		if err := db.PingContext(ctx); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		source = core.NewSQLSource(db)
		pinger = web.PingFunc(db.PingContext)
		slog.Info("connected to database", "driver", cfg.Database.Driver)

	default:
		slog.Info("no database configured, query-backed tables disabled")
	}

	store, err := core.NewTemplateStore(cfg.Templates.Dir, cfg.Templates.MaxFileSize, slog.Default())
	if err != nil {
		slog.Error("failed to open template store", "error", err)
		os.Exit(1)
	}

	reports, err := core.LoadReports(cfg.Reports.Dir, slog.Default())
	if err != nil {
		slog.Error("failed to load report definitions", "error", err)
		os.Exit(1)
	}
	slog.Info("report definitions loaded", "count", reports.Len())

	limiter := core.NewComposeLimiter(cfg.Compose.MaxConcurrent, cfg.Compose.MaxWaitTime)

	// Audit trail needs the pgx pool.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	if pool != nil && cfg.Audit.Enabled {
		auditor = core.NewAuditor(pool, slog.Default())
		if err := auditor.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare audit schema", "error", err)
			os.Exit(1)
		}
		go auditor.StartAuditPruner(jobCtx, core.PrunerConfig{
			RetentionDays: cfg.Audit.RetentionDays,
			Interval:      cfg.Audit.PruneInterval,
		})
	}

	var delivery *core.Delivery
	if cfg.Delivery.Enabled {
		delivery, err = core.NewDelivery(ctx, cfg.Delivery.Bucket, cfg.Delivery.Prefix, cfg.Delivery.Region, slog.Default())
		if err != nil {
			slog.Error("failed to configure S3 delivery", "error", err)
			os.Exit(1)
		}
		slog.Info("S3 delivery enabled", "bucket", cfg.Delivery.Bucket, "prefix", cfg.Delivery.Prefix)
	}

	service := core.NewService(core.ServiceDeps{
		Templates: store,
		Reports:   reports,
		Limiter:   limiter,
		Source:    source,
		Auditor:   auditor,
		Delivery:  delivery,
		Options: core.ServiceOptions{
			QueryTimeout:     cfg.Database.QueryTimeout,
			ComposeTimeout:   cfg.Compose.Timeout,
			MaxBatchSize:     cfg.Compose.MaxBatchSize,
			BatchParallelism: cfg.Compose.BatchParallelism,
		},
		Log: slog.Default(),
	})

	server := web.NewServer(service, cfg, pinger, slog.Default())

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for compositions to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("compositions did not complete in time", "error", err)
			} else {
				slog.Info("all compositions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// openPool builds the pgx pool from configuration and verifies the
// connection.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
