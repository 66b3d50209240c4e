package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/FAForever/faf-rating-service/internal/adapters/http/ops"
	"github.com/FAForever/faf-rating-service/internal/adapters/mq/bus"
	"github.com/FAForever/faf-rating-service/internal/adapters/mq/notify"
	"github.com/FAForever/faf-rating-service/internal/adapters/repository"
	app "github.com/FAForever/faf-rating-service/internal/app"
	"github.com/FAForever/faf-rating-service/internal/config"
	"github.com/FAForever/faf-rating-service/internal/domain/model"
	"github.com/FAForever/faf-rating-service/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	drainTimeout      = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	db, err := repository.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Error(ctx, "failed to open database", logger.Error(err))
		return
	}
	defer db.Close()

	store := repository.NewStore(db, repository.WithDefaultRating(model.Rating{
		Mean:      cfg.StartRatingMean,
		Deviation: cfg.StartRatingDeviation,
	}))
	if err := store.Migrate(); err != nil {
		log.Error(ctx, "failed to migrate schema", logger.Error(err))
		return
	}

	directory := repository.NewDirectory(store)

	// In-process bus; a broker-backed Bus slots in here unchanged.
	messageBus := bus.NewMemoryBus()
	notifier := notify.NewPublisher(messageBus, cfg.ExchangeName, cfg.RatingUpdateRoutingKey)

	svc := app.New(store, directory, messageBus, notifier,
		app.WithLogger(log),
		app.WithQueueSize(cfg.QueueSize),
		app.WithRefreshInterval(time.Duration(cfg.DirectoryRefreshSeconds)*time.Second),
		app.WithRequestTimeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second),
		app.WithRequestBinding(cfg.ExchangeName, cfg.RatingRequestRoutingKey),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}

	// Operational HTTP surface: health and metrics.
	mux := http.NewServeMux()
	ops.NewServer(svc).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down, draining rating backlog...")

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := svc.Shutdown(drainCtx); err != nil {
		log.Error(ctx, "service drain failed", logger.Error(err))
	}
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
