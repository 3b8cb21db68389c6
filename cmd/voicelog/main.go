// Command voicelog runs the voice session event log service.
//
// By default it serves the HTTP API. With -worker it runs the notify worker
// loop instead, consuming queued notification jobs and delivering them to
// the configured webhook. Both modes share the same env-driven config.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voxops/go-voicelog-backend/internal/config"
	httpapi "github.com/voxops/go-voicelog-backend/internal/http"
	"github.com/voxops/go-voicelog-backend/internal/notify"
	"github.com/voxops/go-voicelog-backend/internal/observability"
	"github.com/voxops/go-voicelog-backend/internal/repo"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	workerMode := flag.Bool("worker", false, "run the notify worker instead of the API server")
	flag.Parse()

	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	nc := connectNATS(cfg)
	if nc != nil {
		defer nc.Close()
	}

	if *workerMode {
		runWorker(ctx, cfg, nc)
		return
	}
	runServer(ctx, cfg, nc)
}

// setupLogging configures the global zerolog logger from config.
func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// connectNATS dials the broker when configured. A missing or unreachable
// broker is not fatal: the service runs with the dispatcher disabled and
// mutations report notify_enqueued=false.
func connectNATS(cfg config.Config) *nats.Conn {
	if cfg.Notify.URL == "" {
		log.Info().Msg("NATS_URL not set; notify dispatch disabled")
		return nil
	}
	nc, err := nats.Connect(cfg.Notify.URL,
		nats.Name("voicelog"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.Notify.URL).Msg("NATS unreachable; notify dispatch disabled")
		return nil
	}
	log.Info().Str("url", cfg.Notify.URL).Msg("connected to NATS")
	return nc
}

func runServer(ctx context.Context, cfg config.Config, nc *nats.Conn) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	queue := &notify.Dispatcher{SubjectPrefix: cfg.Notify.SubjectPrefix}
	if nc != nil {
		queue.Conn = nc
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, queue, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("api server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
		return
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func runWorker(ctx context.Context, cfg config.Config, nc *nats.Conn) {
	if nc == nil {
		log.Fatal().Msg("worker mode requires NATS_URL")
	}
	w := &notify.Worker{
		Conn:          nc,
		SubjectPrefix: cfg.Notify.SubjectPrefix,
		WebhookURL:    cfg.Notify.WebhookURL,
		Logger:        log.Logger,
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker failed")
	}
	log.Info().Msg("worker stopped")
}
