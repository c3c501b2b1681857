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

	httpapi "github.com/navigategovuk/telldoug2-sub001/internal/http"
	"github.com/navigategovuk/telldoug2-sub001/internal/moderation"
	moderationhandler "github.com/navigategovuk/telldoug2-sub001/internal/moderation/handler"
	moderationmetrics "github.com/navigategovuk/telldoug2-sub001/internal/moderation/metrics"
	"github.com/navigategovuk/telldoug2-sub001/internal/owners"
	"github.com/navigategovuk/telldoug2-sub001/internal/platform/config"
	"github.com/navigategovuk/telldoug2-sub001/internal/platform/httpserver"
	"github.com/navigategovuk/telldoug2-sub001/internal/platform/logger"
	"github.com/navigategovuk/telldoug2-sub001/internal/platform/middleware"
	platformpg "github.com/navigategovuk/telldoug2-sub001/internal/platform/postgres"
	platformredis "github.com/navigategovuk/telldoug2-sub001/internal/platform/redis"
	"github.com/navigategovuk/telldoug2-sub001/internal/policy"
	policyhandler "github.com/navigategovuk/telldoug2-sub001/internal/policy/handler"
	policymetrics "github.com/navigategovuk/telldoug2-sub001/internal/policy/metrics"
	"github.com/navigategovuk/telldoug2-sub001/internal/provider"
	audit "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit"
	kafkapublisher "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit/publishers/kafka"
	auditmemory "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit/store/memory"
	auditpg "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit/store/postgres"
	auditworker "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit/worker"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/tx"
)

const auditInboxSize = 1024

// main wires dependencies and owns the process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise (local
	// development and tests).
	var (
		policyStore     policy.Store
		moderationStore moderation.Store
		ownerStore      owners.Store
		auditStore      audit.Store
		txRunner        tx.Runner = tx.NewPassthroughRunner()
	)
	if cfg.DatabaseURL != "" {
		db, err := platformpg.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := platformpg.Migrate(ctx, db); err != nil {
			return err
		}
		policyStore = policy.NewPostgres(db)
		moderationStore = moderation.NewPostgres(db)
		ownerStore = owners.NewPostgres(db)
		auditStore = auditpg.New(db)
		txRunner = tx.NewSQLRunner(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		policyStore = policy.NewInMemoryStore()
		moderationStore = moderation.NewInMemoryStore()
		ownerStore = owners.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
	}

	group, ctx := errgroup.WithContext(ctx)

	// Audit pipeline: Postgres/memory store of record, optional Kafka
	// fan-out drained by a worker.
	publisherOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := kafkapublisher.New(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return err
		}
		defer sink.Close()

		inbox := make(chan audit.Event, auditInboxSize)
		publisherOpts = append(publisherOpts, audit.WithSinkInbox(inbox))
		worker := auditworker.New(sink, inbox, log)
		group.Go(func() error { return worker.Run(ctx) })
	}
	auditPublisher := audit.NewPublisher(auditStore, publisherOpts...)

	// Policy service, with the Redis read-through cache when configured.
	policyOpts := []policy.Option{
		policy.WithLogger(log),
		policy.WithAuditPublisher(auditPublisher),
		policy.WithMetrics(policymetrics.New()),
		policy.WithTxRunner(txRunner),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		policyOpts = append(policyOpts, policy.WithCache(policy.NewActiveVersionCache(redisClient.Client)))
	}
	policyService, err := policy.New(policyStore, policyOpts...)
	if err != nil {
		return err
	}

	aiProvider := provider.NewOpenAIProvider(cfg.Provider, provider.WithOpenAILogger(log))

	moderationService, err := moderation.New(moderationStore, policyService, aiProvider,
		moderation.WithLogger(log),
		moderation.WithAuditPublisher(auditPublisher),
		moderation.WithMetrics(moderationmetrics.New()),
		moderation.WithTxRunner(txRunner),
		moderation.WithOwnerStore(ownerStore),
	)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(
		middleware.NewJWTValidator(cfg.JWTSigningKey),
		log,
		moderationhandler.New(moderationService, log),
		policyhandler.New(policyService, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("moderation api listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
