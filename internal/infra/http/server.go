package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"quorumd/internal/config"
	"quorumd/internal/domain"
	"quorumd/internal/infra/auth"
	"quorumd/internal/infra/ratelimit"
	"quorumd/internal/usecase"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine
	log zerolog.Logger

	createUC *usecase.CreateProposal
	voteUC   *usecase.CastVote
	retryUC  *usecase.ExecutionRetry
	verifUC  *usecase.Verification

	proposals  usecase.ProposalRepository
	attempts   domain.ExecutionAttemptRepository
	audit      domain.AuditLog
	validators *domain.ValidatorSet

	adminAPIKey   string
	authenticator *auth.HeaderAuthenticator
	authorizer    domain.Authorizer

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration
	rateLimitClosed   bool
}

type ServerDeps struct {
	Create     *usecase.CreateProposal
	Vote       *usecase.CastVote
	Retry      *usecase.ExecutionRetry
	Verif      *usecase.Verification
	Proposals  usecase.ProposalRepository
	Attempts   domain.ExecutionAttemptRepository
	Audit      domain.AuditLog
	Validators *domain.ValidatorSet

	Logger      zerolog.Logger
	Authorizer  domain.Authorizer
	RateLimiter domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:           cfg,
		r:             r,
		log:           deps.Logger,
		createUC:      deps.Create,
		voteUC:        deps.Vote,
		retryUC:       deps.Retry,
		verifUC:       deps.Verif,
		proposals:     deps.Proposals,
		attempts:      deps.Attempts,
		audit:         deps.Audit,
		validators:    deps.Validators,
		adminAPIKey:   cfg.AdminAPIKey,
		authenticator: auth.NewHeaderAuthenticator(),
		authorizer:    deps.Authorizer,
	}
	if s.authorizer == nil {
		s.authorizer = auth.NewAuthorizer()
	}
	s.initRateLimit(deps.RateLimiter)
	s.r.Use(s.requestLog())
	s.routes()
	return s
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	s.rateLimiter = override
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		s.rateLimiter = ratelimit.NewMemoryLimiter(nil, s.cfg.RateLimitMaxKeys)
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"audit_backend": s.cfg.AuditBackend,
			"validators":    s.validators.Size(),
			"threshold":     s.validators.Threshold(),
		})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/proposals", s.handleCreateProposal)
		v1.GET("/proposals/:proposal_id", s.handleGetProposal)
		v1.POST("/proposals/:proposal_id/votes", s.handleCastVote)
		v1.GET("/proposals/:proposal_id/attempts", s.handleListAttempts)
		v1.POST("/proposals/:proposal_id/retry", s.handleRetryExecution)

		v1.POST("/sessions", s.handleOpenSession)
		v1.GET("/sessions/:exchange_id", s.handleGetSession)
		v1.POST("/events/verified", s.handleVerifiedEvent)

		v1.GET("/audit/entries", s.handleAuditRange)
		v1.GET("/audit/entries/:index", s.handleAuditEntry)
		v1.GET("/audit/verify", s.handleAuditVerify)

		v1.GET("/validators", s.handleListValidators)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.r,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
