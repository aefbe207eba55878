package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quorumd/internal/config"
	"quorumd/internal/domain"
	"quorumd/internal/infra/auditmem"
	"quorumd/internal/infra/crypto"
	"quorumd/internal/infra/db"
	"quorumd/internal/infra/executor"
	"quorumd/internal/infra/govmem"
	httpinfra "quorumd/internal/infra/http"
	"quorumd/internal/infra/policyopa"
	"quorumd/internal/infra/ratelimit"
	"quorumd/internal/infra/redisstore"
	"quorumd/internal/infra/translog"
	"quorumd/internal/infra/validators"
	"quorumd/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)

	if cfg.ValidatorsFile == "" {
		logger.Fatal().Msg("VALIDATORS_FILE is required")
	}
	validatorSet, err := validators.LoadFile(cfg.ValidatorsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load validator snapshot")
	}
	logger.Info().
		Int("validators", validatorSet.Size()).
		Int("threshold", validatorSet.Threshold()).
		Msg("validator trust root loaded")

	store, err := db.NewStore(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if store.DB != nil {
		if err := store.Migrate(); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
	}

	proposals, sessions, attempts := buildStores(store, redisClient, logger)
	auditLog := buildAuditLog(cfg, store, logger)
	cryptoSvc := crypto.NewService()
	notifier := executor.NewLogNotifier(logger)

	var actionExec domain.ActionExecutor
	if cfg.ExecutorURL != "" {
		actionExec, err = executor.NewWebhook(cfg.ExecutorURL, cfg.ExecutorToken, nil)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build executor webhook")
		}
	} else {
		logger.Warn().Msg("EXECUTOR_URL not set; finalized actions will not be delivered")
	}

	var policy domain.PolicyEngine
	if cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), cfg.PolicyBundlePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load policy bundle")
		}
		policy = engine
	}

	verification := &usecase.Verification{
		Sessions:      sessions,
		Audit:         auditLog,
		Notifier:      notifier,
		TTL:           cfg.SessionTTL(),
		AppendTimeout: cfg.ExecutorTimeout(),
	}

	srv := httpinfra.NewServerWithDeps(cfg, httpinfra.ServerDeps{
		Create: &usecase.CreateProposal{
			Proposals: proposals,
			Policy:    policy,
			Audit:     auditLog,
			Notifier:  notifier,
			TTL:       cfg.ProposalTTL(),
		},
		Vote: &usecase.CastVote{
			Proposals:   proposals,
			Validators:  validatorSet,
			Verifier:    cryptoSvc,
			Executor:    actionExec,
			Attempts:    attempts,
			Audit:       auditLog,
			Notifier:    notifier,
			ExecTimeout: cfg.ExecutorTimeout(),
		},
		Retry: &usecase.ExecutionRetry{
			Proposals:   proposals,
			Executor:    actionExec,
			Attempts:    attempts,
			Audit:       auditLog,
			Notifier:    notifier,
			ExecTimeout: cfg.ExecutorTimeout(),
		},
		Verif:       verification,
		Proposals:   proposals,
		Attempts:    attempts,
		Audit:       auditLog,
		Validators:  validatorSet,
		Logger:      logger,
		RateLimiter: buildRateLimiter(cfg, redisClient),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting server")
	if err := srv.Run(ctx); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server exited")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
	defer cancel()
	if err := verification.Drain(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("audit appends still in flight at shutdown")
	}
	logger.Info().Msg("shutdown complete")
}

func buildStores(store *db.Store, redisClient *redis.Client, logger zerolog.Logger) (usecase.ProposalRepository, usecase.SessionRepository, domain.ExecutionAttemptRepository) {
	if redisClient != nil {
		proposals, err := redisstore.NewProposalStore(redisClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build redis proposal store")
		}
		sessions, err := redisstore.NewSessionStore(redisClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build redis session store")
		}
		attempts := attemptStore(store)
		logger.Info().Msg("using redis proposal and session stores")
		return proposals, sessions, attempts
	}
	if store.DB != nil {
		logger.Info().Msg("using postgres proposal and session stores")
		return db.NewProposalRepo(store.DB, nil), db.NewSessionRepo(store.DB, nil), db.NewAttemptRepo(store.DB)
	}
	logger.Warn().Msg("no REDIS_ADDR or POSTGRES_DSN; using in-memory stores")
	return govmem.NewProposalStore(), govmem.NewSessionStore(), govmem.NewAttemptStore()
}

func attemptStore(store *db.Store) domain.ExecutionAttemptRepository {
	if store.DB != nil {
		return db.NewAttemptRepo(store.DB)
	}
	return govmem.NewAttemptStore()
}

func buildAuditLog(cfg config.Config, store *db.Store, logger zerolog.Logger) domain.AuditLog {
	switch cfg.AuditBackend {
	case "db":
		if store.DB == nil {
			logger.Fatal().Msg("AUDIT_BACKEND=db requires POSTGRES_DSN")
		}
		return db.NewAuditRepo(store.DB, nil)
	case "translog":
		client, err := translog.NewClient(cfg.TranslogURL, cfg.TranslogToken, &http.Client{
			Timeout: time.Duration(cfg.TranslogTimeout) * time.Second,
		}, nil)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build translog client")
		}
		return client
	case "memory":
		logger.Warn().Msg("audit backend is in-memory; the trail does not survive restarts")
		return auditmem.New()
	default:
		logger.Fatal().Str("backend", cfg.AuditBackend).Msg("unknown audit backend")
		return nil
	}
}

func buildRateLimiter(cfg config.Config, redisClient *redis.Client) domain.RateLimiter {
	if cfg.RateLimitRequests <= 0 {
		return nil
	}
	if redisClient != nil {
		return ratelimit.NewRedisLimiter(redisClient, nil)
	}
	return ratelimit.NewMemoryLimiter(nil, cfg.RateLimitMaxKeys)
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Str("app", "quorumd").Logger()
}
