package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/okian/kpiboard/internal/adapters/crm"
	"github.com/okian/kpiboard/internal/adapters/http/api"
	"github.com/okian/kpiboard/internal/adapters/http/swagger"
	app "github.com/okian/kpiboard/internal/app"
	"github.com/okian/kpiboard/internal/config"
	"github.com/okian/kpiboard/internal/domain/dedupe"
	"github.com/okian/kpiboard/internal/session"
	"github.com/okian/kpiboard/pkg/logger"
	"github.com/okian/kpiboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: "Loads configuration (defaults, then the YAML file named by " + config.EnvConfigFile +
		", then " + config.EnvPrefix + "* variables), restores the session and serves the API until SIGINT or SIGTERM.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.InitWithFormat(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	registerRuntimeCollectors()

	sess, err := session.Load(cfg.SessionFile)
	if err != nil {
		log.Warn(ctx, "session file unreadable; starting signed out",
			logger.String("path", cfg.SessionFile), logger.Error(err))
		sess = session.New(session.Data{})
	}
	if sess.Token() != "" && sess.Expired(time.Now()) {
		log.Warn(ctx, "stored session token has expired; signing out")
		sess.SetToken("")
	}
	defer func() {
		if cfg.SessionFile == "" {
			return
		}
		if err := sess.Save(cfg.SessionFile); err != nil {
			log.Error(context.Background(), "failed to save session", logger.String("path", cfg.SessionFile), logger.Error(err))
		}
	}()

	svc, err := buildService(ctx, cfg, sess, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// buildService assembles the service from configuration. The CRM source
// is only wired when a base URL is configured.
func buildService(ctx context.Context, cfg *config.Config, sess *session.Session, log logger.Logger) (*app.Service, error) {
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithFetchConcurrency(cfg.FetchConcurrency),
		app.WithRefreshInterval(cfg.RefreshInterval()),
		app.WithSnapshotInterval(cfg.SnapshotInterval()),
		app.WithCurrency(cfg.CurrencySymbol, cfg.Locale),
		app.WithSession(sess),
	}

	if cfg.CRMBaseURL != "" {
		client, err := crm.NewClient(cfg.CRMBaseURL,
			crm.WithTokenFunc(func() string {
				if t := sess.Token(); t != "" {
					return t
				}
				return cfg.CRMToken
			}),
			crm.WithTimeout(cfg.CRMTimeout()),
			crm.WithLogger(log.Named("crm")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create CRM client: %w", err)
		}
		opts = append(opts, app.WithSource(client))
	} else {
		log.Warn(ctx, "no CRM base URL configured; only pushed snapshots will be scored")
	}

	if cfg.DedupeBackend == config.DedupeBackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		opts = append(opts, app.WithDeduper(dedupe.NewRedisDeduper(rdb,
			dedupe.WithTTL(cfg.DedupeTTL()),
			dedupe.WithRedisLogger(log.Named("dedupe")),
		)))
	}
	return app.New(opts...), nil
}

// newHandler registers the docs and business routes.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, cfg.MaxLeaderboardLimit, api.WithLogger(log.Named("api"))).Register(ctx, mux)
	return mux
}

func registerRuntimeCollectors() {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		_ = metrics.GetRegistry().Register(c)
	}
}
