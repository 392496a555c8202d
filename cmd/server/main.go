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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"regulus/internal/adapters/fieldcrypt"
	"regulus/internal/adapters/ledger"
	"regulus/internal/adapters/notify"
	"regulus/internal/adapters/risk"
	"regulus/internal/adapters/simulated"
	"regulus/internal/challenge"
	challengeMetrics "regulus/internal/challenge/metrics"
	challengeModels "regulus/internal/challenge/models"
	challengeMemory "regulus/internal/challenge/store/memory"
	challengeRedis "regulus/internal/challenge/store/redis"
	"regulus/internal/engine"
	jwttoken "regulus/internal/jwt_token"
	"regulus/internal/platform/config"
	"regulus/internal/platform/database"
	"regulus/internal/platform/httpserver"
	"regulus/internal/platform/kafka"
	"regulus/internal/platform/kafka/producer"
	"regulus/internal/platform/logger"
	"regulus/internal/platform/metrics"
	platformRedis "regulus/internal/platform/redis"
	policyAdapters "regulus/internal/policy/adapters"
	"regulus/internal/policy/dlp"
	"regulus/internal/policy/gate"
	policyMetrics "regulus/internal/policy/metrics"
	policyModels "regulus/internal/policy/models"
	"regulus/internal/policy/store/counter"
	httptransport "regulus/internal/transport/http"
	"regulus/internal/workflow"
	wfMetrics "regulus/internal/workflow/metrics"
	wfModels "regulus/internal/workflow/models"
	"regulus/internal/workflow/ports"
	"regulus/internal/workflow/schema"
	"regulus/internal/workflow/steps"
	wfMemory "regulus/internal/workflow/store/memory"
	wfSQL "regulus/internal/workflow/store/sqlstore"
	audit "regulus/pkg/platform/audit"
	auditMemory "regulus/pkg/platform/audit/store/memory"
	auditSQL "regulus/pkg/platform/audit/store/sqlstore"
	"regulus/pkg/requestcontext"
)

const (
	shutdownTimeout = 15 * time.Second
	// counterHorizon is the longest DLP window; older counters are swept.
	counterHorizon = 24 * time.Hour
)

// main wires the engine from environment configuration, serves HTTP and
// drains background work on SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("regulus exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() && cfg.EncryptionKeys == "" {
		return errors.New("ENCRYPTION_KEYS is required in production")
	}

	reg := metrics.NewRegistry()

	// Storage
	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	trail, err := audit.New(ctx, stores.audit,
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics(reg)),
		audit.WithFlushInterval(cfg.Audit.FlushInterval),
		audit.WithBatchSize(cfg.Audit.BatchSize),
	)
	if err != nil {
		return fmt.Errorf("init audit trail: %w", err)
	}
	trail.Start()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := trail.Close(closeCtx); err != nil {
			log.Error("audit trail drain failed", "error", err)
		}
	}()

	// Messaging
	messaging, err := openMessaging(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer messaging.close()

	seed := &simulated.Seed{}
	if cfg.SeedPath != "" {
		if seed, err = simulated.LoadSeed(cfg.SeedPath); err != nil {
			return err
		}
	}

	// Challenge authenticator
	scorer, err := risk.New(stores.counters)
	if err != nil {
		return err
	}
	signer, err := challenge.NewProofSigner(cfg.StepUp.ProofSigningKey, cfg.StepUp.ProofTTL)
	if err != nil {
		return fmt.Errorf("init proof signer: %w", err)
	}
	codeSender, err := notify.NewCodeSender(messaging.codes)
	if err != nil {
		return err
	}
	challenges, err := challenge.New(stores.challenges, stores.devices, stores.proofs, signer,
		challenge.WithLogger(log),
		challenge.WithMetrics(challengeMetrics.New(reg)),
		challenge.WithAuditor(trail),
		challenge.WithCodeSender(codeSender),
		challenge.WithFactorDirectory(simulated.FactorsFromSeed(seed.Factors, challengeModels.MethodSMS, challengeModels.MethodEmail)),
		challenge.WithRiskScorer(scorer),
		challenge.WithChallengeTTL(cfg.StepUp.ChallengeTTL),
		challenge.WithMaxAttempts(cfg.StepUp.MaxAttempts),
	)
	if err != nil {
		return fmt.Errorf("init challenge service: %w", err)
	}

	// Policy gate
	policies, err := loadPolicies(cfg.Policy.DLPPolicyPath)
	if err != nil {
		return err
	}
	challengeAdapter := policyAdapters.NewChallengeAdapter(challenges)
	policyGate, err := gate.New(policies, stores.counters, trail,
		gate.WithLogger(log),
		gate.WithMetrics(policyMetrics.New(reg)),
		gate.WithDeviceTrust(challengeAdapter),
		gate.WithStepUpProofs(challengeAdapter),
		gate.WithChallengeIssuer(challengeAdapter),
		gate.WithRiskScorer(scorer),
	)
	if err != nil {
		return fmt.Errorf("init policy gate: %w", err)
	}

	// Workflow engine
	workflows, err := buildWorkflows(cfg, log, reg, stores.workflows, trail, policyGate, messaging, seed)
	if err != nil {
		return err
	}
	if cfg.Workflow.RecoverOnStart {
		n, err := workflows.RecoverInterrupted(requestcontext.WithTime(ctx, time.Now()), systemContext("startup-recovery"))
		if err != nil {
			return fmt.Errorf("recover interrupted workflows: %w", err)
		}
		if n > 0 {
			log.Warn("failed workflows interrupted mid-step", "count", n)
		}
	}

	facade, err := engine.New(policyGate, challenges, workflows, trail, engine.WithLogger(log))
	if err != nil {
		return err
	}

	// HTTP
	sessions := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Session.SigningKey, cfg.Session.Issuer))
	router := httptransport.NewRouter(httptransport.New(facade, log), httptransport.RouterConfig{
		Sessions: sessions,
		Metrics:  metrics.Handler(reg),
		OpsToken: cfg.OpsToken,
		Checks:   healthChecks(stores, messaging),
		Logger:   log,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting regulus", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Policy.DLPPolicyPath != "" && cfg.Policy.WatchDLP {
		watcher, err := dlp.NewWatcher(cfg.Policy.DLPPolicyPath, policies,
			dlp.WithWatcherLogger(log),
			dlp.WithWatcherAudit(trail),
		)
		if err != nil {
			return fmt.Errorf("init dlp watcher: %w", err)
		}
		g.Go(func() error { return watcher.Run(gctx) })
	}
	g.Go(func() error {
		sweep(gctx, cfg.StepUp.SweepInterval, log, stores, challenges)
		return nil
	})

	return g.Wait()
}

// systemContext is the security context of work the process does on its own.
func systemContext(session string) policyModels.SecurityContext {
	return policyModels.SecurityContext{
		ActorID:   "system",
		ActorRole: policyModels.RoleAdmin,
		SessionID: session,
	}
}

func loadPolicies(path string) (*dlp.Registry, error) {
	if path == "" {
		return dlp.NewRegistry(dlp.Default()), nil
	}
	set, err := dlp.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load dlp policy: %w", err)
	}
	return dlp.NewRegistry(set), nil
}

func buildWorkflows(cfg config.Server, log *slog.Logger, reg prometheus.Registerer, store workflow.Store, trail *audit.Trail, authorizer workflow.Authorizer, messaging *messaging, seed *simulated.Seed) (*workflow.Engine, error) {
	var crypto *fieldcrypt.Keyring
	var err error
	if cfg.EncryptionKeys != "" {
		crypto, err = fieldcrypt.Parse(cfg.EncryptionKeys)
	} else {
		log.Warn("ENCRYPTION_KEYS not set; sensitive fields use a per-process key")
		crypto, err = fieldcrypt.Ephemeral()
	}
	if err != nil {
		return nil, fmt.Errorf("init field encryption: %w", err)
	}

	registry := simulated.NewRegistry(seed.Practitioners...)
	stepCfg := steps.DefaultConfig()
	stepCfg.Fees = map[wfModels.Type]int64{
		wfModels.TypeOnboarding: cfg.Workflow.OnboardingFee,
		wfModels.TypeRenewal:    cfg.Workflow.RenewalFee,
	}
	stepCfg.Currency = cfg.Workflow.Currency
	stepCfg.MinCPDCredits = cfg.Workflow.MinCPDCredits
	stepCfg.BulkConcurrency = cfg.Workflow.BulkConcurrency

	stepRegistry, err := steps.Build(steps.Deps{
		Crypto:       crypto,
		Ledger:       messaging.ledger,
		Notifier:     messaging.notifier,
		Payments:     simulated.NewPayments(),
		KYC:          simulated.NewKYC(),
		Documents:    simulated.NewDocuments(),
		Registry:     registry,
		Certificates: simulated.NewCertificates(registry),
		Inspectors:   simulated.NewInspectors(seed.Inspectors),
		Logger:       log,
	}, stepCfg)
	if err != nil {
		return nil, fmt.Errorf("build workflow steps: %w", err)
	}

	validator, err := schema.New()
	if err != nil {
		return nil, fmt.Errorf("compile workflow schemas: %w", err)
	}
	eng, err := workflow.New(store, stepRegistry, trail, authorizer,
		workflow.WithLogger(log),
		workflow.WithMetrics(wfMetrics.New(reg)),
		workflow.WithPayloadValidator(validator),
		workflow.WithStepTimeout(cfg.Workflow.StepTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("init workflow engine: %w", err)
	}
	return eng, nil
}

// stores holds the persistence backends. SQL keeps the audit trail and
// workflows; Redis, when configured, keeps counters and challenges so that
// quotas hold across instances.
type stores struct {
	db         *sql.DB
	redis      *platformRedis.Client
	audit      audit.Store
	workflows  workflow.Store
	counters   counterStore
	challenges challenge.ChallengeStore
	devices    challenge.DeviceStore
	proofs     challenge.ProofStore

	memCounters *counter.InMemoryCounterStore
	memProofs   *challengeMemory.ProofStore
}

type counterStore interface {
	gate.CounterStore
	risk.Counter
}

func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	s := &stores{}

	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.db = db
		auditStore := auditSQL.New(db)
		if err := auditStore.Migrate(ctx); err != nil {
			s.close()
			return nil, fmt.Errorf("migrate audit store: %w", err)
		}
		wfStore := wfSQL.New(db)
		if err := wfStore.Migrate(ctx); err != nil {
			s.close()
			return nil, fmt.Errorf("migrate workflow store: %w", err)
		}
		s.audit, s.workflows = auditStore, wfStore
	} else {
		if cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL is required in production")
		}
		log.Warn("DATABASE_URL not set; audit trail and workflows are kept in memory")
		s.audit, s.workflows = auditMemory.NewInMemoryStore(), wfMemory.New()
	}

	rdb, err := platformRedis.New(ctx, cfg.Redis)
	if err != nil {
		s.close()
		return nil, err
	}
	if rdb != nil {
		s.redis = rdb
		s.counters = counter.NewRedis(rdb.Client)
		s.challenges = challengeRedis.NewChallengeStore(rdb.Client)
		s.devices = challengeRedis.NewDeviceStore(rdb.Client)
		s.proofs = challengeRedis.NewProofStore(rdb.Client)
		return s, nil
	}

	s.memCounters = counter.New()
	s.memProofs = challengeMemory.NewProofStore()
	s.counters = s.memCounters
	s.challenges = challengeMemory.NewChallengeStore()
	s.devices = challengeMemory.NewDeviceStore()
	s.proofs = s.memProofs
	return s, nil
}

func (s *stores) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

// messaging holds the ledger anchor and notification senders. Without Kafka
// all fall back to in-process versions. Step-up codes never fail over to
// the log sender: an undelivered code must fail the challenge.
type messaging struct {
	client   *kgo.Client
	ledger   ports.LedgerAnchor
	notifier notify.Sender
	codes    notify.Sender
}

func openMessaging(ctx context.Context, cfg config.Server, log *slog.Logger, reg prometheus.Registerer) (*messaging, error) {
	client, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return nil, err
	}
	if client == nil {
		if cfg.IsProduction() {
			return nil, errors.New("KAFKA_BROKERS is required in production")
		}
		log.Warn("KAFKA_BROKERS not set; ledger anchors are kept in memory and notifications are logged")
		logSender := notify.NewLogSender(log)
		return &messaging{ledger: ledger.NewMemory(), notifier: logSender, codes: logSender}, nil
	}

	if err := kafka.EnsureTopics(ctx, client, 1, cfg.Kafka.LedgerTopic, cfg.Kafka.NotificationTopic); err != nil {
		client.Close()
		return nil, err
	}
	pub, err := producer.New(client, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	anchor, err := ledger.New(pub, cfg.Kafka.LedgerTopic, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	sender, err := notify.NewKafkaSender(pub, cfg.Kafka.NotificationTopic, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	notifier, err := notify.NewFailoverSender(sender, notify.NewLogSender(log),
		notify.WithFailoverLogger(log),
		notify.WithStateGauge(promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "regulus_notification_breaker_open",
			Help: "1 while workflow notifications are diverted to the log sender",
		})),
	)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &messaging{client: client, ledger: anchor, notifier: notifier, codes: sender}, nil
}

func (m *messaging) close() {
	if m.client != nil {
		m.client.Close()
	}
}

// healthChecks probes the external backends actually in use.
func healthChecks(s *stores, m *messaging) map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{}
	if s.db != nil {
		checks["database"] = s.db.PingContext
	}
	if s.redis != nil {
		checks["redis"] = s.redis.Health
	}
	if m.client != nil {
		checks["kafka"] = m.client.Ping
	}
	return checks
}

// sweep reclaims expired challenges and, for in-memory backends, stale
// counters and proofs. Redis expires those keys itself.
func sweep(ctx context.Context, interval time.Duration, log *slog.Logger, s *stores, challenges *challenge.Service) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sctx := requestcontext.WithTime(ctx, now)
			if n, err := challenges.Sweep(sctx); err != nil {
				log.Warn("challenge sweep failed", "error", err)
			} else if n > 0 {
				log.Debug("expired challenges swept", "count", n)
			}
			if s.memCounters != nil {
				s.memCounters.Sweep(now, counterHorizon)
			}
			if s.memProofs != nil {
				s.memProofs.Sweep(now)
			}
		}
	}
}
