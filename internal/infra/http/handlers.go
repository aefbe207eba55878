package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"quorumd/internal/domain"
	"quorumd/internal/infra/auth"
	"quorumd/internal/usecase"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createProposalRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

type proposalResponse struct {
	ID            string          `json:"id"`
	Action        string          `json:"action"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Requestor     string          `json:"requestor"`
	Approvals     []string        `json:"approvals"`
	ApprovalCount int             `json:"approval_count"`
	Threshold     int             `json:"threshold"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
	ExpiresAt     string          `json:"expires_at"`
}

type voteRequest struct {
	ValidatorID string               `json:"validator_id"`
	Signature   domain.VoteSignature `json:"signature"`
}

type sessionResponse struct {
	ExchangeID string `json:"exchange_id"`
	Status     string `json:"status"`
	Requestor  string `json:"requestor"`
	CreatedAt  string `json:"created_at"`
	ExpiresAt  string `json:"expires_at"`
}

type verifiedEventRequest struct {
	ExchangeID  string            `json:"exchange_id"`
	Success     bool              `json:"success"`
	ContentHash string            `json:"content_hash"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type attemptResponse struct {
	ProposalID string `json:"proposal_id"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	ErrorCode  string `json:"error_code,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type auditEntryResponse struct {
	UUID      string           `json:"uuid"`
	Index     int64            `json:"index"`
	Timestamp string           `json:"ts"`
	Body      domain.AuditBody `json:"body"`
	BodyHash  string           `json:"body_hash"`
	PrevHash  string           `json:"prev_hash"`
	EntryHash string           `json:"entry_hash"`
}

func (s *Server) handleCreateProposal(c *gin.Context) {
	principal, ok := s.requireAuth(c, auth.PermProposalsCreate, false)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "proposals:create", principal) {
		return
	}
	var req createProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	proposal, err := s.createUC.Execute(c.Request.Context(), usecase.CreateProposalRequest{
		Action:    domain.ActionKind(req.Action),
		Payload:   req.Payload,
		Requestor: principal,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.proposalToResponse(proposal))
}

func (s *Server) handleGetProposal(c *gin.Context) {
	if _, ok := s.requireAuth(c, auth.PermProposalsRead, true); !ok {
		return
	}
	proposal, err := s.proposals.Get(c.Request.Context(), c.Param("proposal_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.proposalToResponse(*proposal))
}

// handleCastVote is not principal-gated: the vote signature itself is the
// credential, checked against the validator trust root.
func (s *Server) handleCastVote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if !s.enforceRateLimit(c, "votes:cast", domain.Principal{Subject: req.ValidatorID}) {
		return
	}
	proposal, err := s.voteUC.Execute(c.Request.Context(), usecase.CastVoteRequest{
		ProposalID:  c.Param("proposal_id"),
		ValidatorID: req.ValidatorID,
		Signature:   req.Signature,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.proposalToResponse(proposal))
}

func (s *Server) handleListAttempts(c *gin.Context) {
	if _, ok := s.requireAuth(c, auth.PermProposalsRead, true); !ok {
		return
	}
	proposalID := c.Param("proposal_id")
	if _, err := s.proposals.Get(c.Request.Context(), proposalID); err != nil {
		writeError(c, err)
		return
	}
	attempts, err := s.attempts.ListByProposal(c.Request.Context(), proposalID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptToResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"attempts": out})
}

func (s *Server) handleRetryExecution(c *gin.Context) {
	if _, ok := s.requireAuth(c, auth.PermAdminRetry, true); !ok {
		return
	}
	attempt, err := s.retryUC.Execute(c.Request.Context(), c.Param("proposal_id"))
	if err != nil {
		if attempt.ProposalID == "" {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"attempt": attemptToResponse(attempt),
			"error":   errorResponse{Code: "DEPENDENCY_FAILED", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": attemptToResponse(attempt)})
}

func (s *Server) handleOpenSession(c *gin.Context) {
	principal, ok := s.requireAuth(c, auth.PermSessionsOpen, false)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "sessions:open", principal) {
		return
	}
	session, err := s.verifUC.Open(c.Request.Context(), principal.Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionToResponse(session))
}

func (s *Server) handleGetSession(c *gin.Context) {
	if _, ok := s.requireAuth(c, auth.PermSessionsRead, true); !ok {
		return
	}
	session, err := s.verifUC.Get(c.Request.Context(), c.Param("exchange_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(*session))
}

func (s *Server) handleVerifiedEvent(c *gin.Context) {
	if _, ok := s.requireAuth(c, auth.PermEventsIngest, true); !ok {
		return
	}
	var req verifiedEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.verifUC.HandleVerifiedEvent(c.Request.Context(), usecase.VerifiedEvent{
		ExchangeID:  req.ExchangeID,
		Success:     req.Success,
		ContentHash: req.ContentHash,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	status := "dropped"
	switch {
	case result.Logged:
		status = "logged"
	case result.Duplicate:
		status = "duplicate"
	}
	c.JSON(http.StatusOK, gin.H{"result": status})
}

func (s *Server) handleAuditEntry(c *gin.Context) {
	if _, ok := s.requireAuth(c, auth.PermAuditRead, true); !ok {
		return
	}
	index, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil || index < 1 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid audit index")
		return
	}
	entry, err := s.audit.Get(c.Request.Context(), index)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, auditToResponse(entry))
}

func (s *Server) handleAuditRange(c *gin.Context) {
	if _, ok := s.requireAuth(c, auth.PermAuditRead, true); !ok {
		return
	}
	from, to, ok := parseAuditRange(c)
	if !ok {
		return
	}
	entries, err := s.audit.Range(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditToResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func (s *Server) handleAuditVerify(c *gin.Context) {
	if _, ok := s.requireAuth(c, auth.PermAuditRead, true); !ok {
		return
	}
	from, to, ok := parseAuditRange(c)
	if !ok {
		return
	}
	if err := usecase.VerifyAuditChain(c.Request.Context(), s.audit, from, to); err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrDependency) {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": false, "reason": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "from": from, "to": to})
}

func (s *Server) handleListValidators(c *gin.Context) {
	if _, ok := s.requireAuth(c, auth.PermAdminValidators, true); !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"threshold":  s.validators.Threshold(),
		"size":       s.validators.Size(),
		"validators": s.validators.IDs(),
	})
}

func (s *Server) proposalToResponse(p domain.Proposal) proposalResponse {
	approvals := p.Approvals
	if approvals == nil {
		approvals = []string{}
	}
	return proposalResponse{
		ID:            p.ID,
		Action:        string(p.Action),
		Payload:       p.Payload,
		Requestor:     p.Requestor,
		Approvals:     approvals,
		ApprovalCount: len(approvals),
		Threshold:     s.validators.Threshold(),
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339Nano),
		ExpiresAt:     p.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}
}

func attemptToResponse(a domain.ExecutionAttempt) attemptResponse {
	return attemptResponse{
		ProposalID: a.ProposalID,
		Action:     string(a.Action),
		Status:     a.Status,
		ErrorCode:  a.ErrorCode,
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func sessionToResponse(session domain.VerificationSession) sessionResponse {
	return sessionResponse{
		ExchangeID: session.ExchangeID,
		Status:     string(session.Status),
		Requestor:  session.Requestor,
		CreatedAt:  session.CreatedAt.UTC().Format(time.RFC3339Nano),
		ExpiresAt:  session.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}
}

func auditToResponse(entry domain.AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		UUID:      entry.UUID,
		Index:     entry.Index,
		Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
		Body:      entry.Body,
		BodyHash:  entry.BodyHash,
		PrevHash:  entry.PrevHash,
		EntryHash: entry.EntryHash,
	}
}

func parseAuditRange(c *gin.Context) (int64, int64, bool) {
	from, err := strconv.ParseInt(c.Query("from"), 10, 64)
	if err != nil || from < 1 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid from index")
		return 0, 0, false
	}
	to, err := strconv.ParseInt(c.Query("to"), 10, 64)
	if err != nil || to < from {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid to index")
		return 0, 0, false
	}
	return from, to, true
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, domain.ErrSignatureInvalid):
		status, code = http.StatusBadRequest, "SIGNATURE_INVALID"
	case errors.Is(err, domain.ErrUnknownValidator):
		status, code = http.StatusBadRequest, "UNKNOWN_VALIDATOR"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadyFinalized):
		status, code = http.StatusConflict, "ALREADY_FINALIZED"
	case errors.Is(err, domain.ErrDuplicateVote):
		status, code = http.StatusConflict, "DUPLICATE_VOTE"
	case errors.Is(err, domain.ErrDependency):
		status, code = http.StatusBadGateway, "DEPENDENCY_FAILED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
