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

	"golang.org/x/sync/errgroup"

	"custodia/internal/alert"
	"custodia/internal/audit"
	"custodia/internal/blobstore"
	"custodia/internal/casefile"
	"custodia/internal/command"
	"custodia/internal/evidence"
	"custodia/internal/gatekeeper"
	"custodia/internal/integrity"
	"custodia/internal/intel"
	"custodia/internal/officer"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/kafka"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/postgres"
	"custodia/internal/platform/redis"
	transporthttp "custodia/internal/transport/http"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	m := metrics.New()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	var officerStore officer.Store = officer.NewPostgres(db)
	if cfg.RedisAddr != "" {
		cache, err := redis.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer cache.Close()
		officerStore = officer.NewRedisCache(officerStore, cache.Client, 5*time.Minute, log)
		log.Info("officer cache enabled", "redis_addr", cfg.RedisAddr)
	}

	auditOpts := []audit.Option{
		audit.WithLogger(log),
		audit.WithQueryCap(cfg.AuditQueryCap),
	}
	var mirror *audit.KafkaMirror
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer producer.Close()
		mirror = audit.NewKafkaMirror(producer, log, 1024)
		auditOpts = append(auditOpts, audit.WithMirror(mirror))
		log.Info("audit mirror enabled", "topic", cfg.AuditTopic)
	}
	recorder := audit.NewRecorder(audit.NewPostgres(db), auditOpts...)

	dispatcher := alert.NewDispatcher(alert.NewPostgres(db),
		alert.WithLogger(log), alert.WithMetrics(m))

	var blobs blobstore.Client
	if cfg.BlobStoreURL != "" {
		blobs = blobstore.NewHTTP(cfg.BlobStoreURL, cfg.BlobStoreTimeout)
	} else {
		// Local development fallback; evidence bytes do not survive restart.
		log.Warn("blob store URL not configured, using in-memory store")
		blobs = blobstore.NewMemory()
	}

	gate := gatekeeper.New(officerStore, recorder, cfg.JWTSigningKey,
		gatekeeper.WithLogger(log),
		gatekeeper.WithMetrics(m),
		gatekeeper.WithSessionTTL(cfg.SessionTTL))
	cases := casefile.New(casefile.NewPostgres(db), recorder, dispatcher,
		casefile.WithLogger(log), casefile.WithMetrics(m))
	evidenceSvc := evidence.New(evidence.NewPostgres(db), casefile.NewPostgres(db), blobs, recorder,
		evidence.WithLogger(log), evidence.WithMetrics(m))
	verifier := integrity.New(evidenceSvc, evidence.NewPostgres(db), blobs, recorder, dispatcher,
		integrity.WithLogger(log), integrity.WithMetrics(m))

	intelOpts := []intel.Option{intel.WithLogger(log)}
	if cfg.CompletionURL != "" {
		intelOpts = append(intelOpts,
			intel.WithCompletion(intel.NewHTTPCompletion(cfg.CompletionURL, cfg.CompletionTimeout)))
	}
	intelligence := intel.New(cases, evidenceSvc, dispatcher, recorder, intelOpts...)

	router := command.New(gate, cases, evidenceSvc, verifier, intelligence, recorder,
		command.WithLogger(log), command.WithMetrics(m))
	handler := transporthttp.NewHandler(router, log)
	srv := httpserver.New(cfg.Addr, handler.Routes())

	g, gctx := errgroup.WithContext(ctx)
	if mirror != nil {
		g.Go(func() error {
			if err := mirror.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
