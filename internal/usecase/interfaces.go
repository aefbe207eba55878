package usecase

import (
	"context"
	"time"

	"quorumd/internal/domain"
)

type Clock func() time.Time

// VoteOutcome reports the result of one atomically merged vote.
// ExecutedNow is true only for the single vote that crossed the threshold.
type VoteOutcome struct {
	Proposal    domain.Proposal
	ExecutedNow bool
}

// ProposalRepository is the shared store for governance proposals. The
// contract is the load-bearing property of the whole engine: AddApproval
// must be a single atomic conditional update (a compare-and-swap or an
// equivalent store-side atomic step), never fetch, mutate, write back.
// It returns domain.ErrNotFound, domain.ErrAlreadyFinalized or
// domain.ErrDuplicateVote; when the merged approval count reaches the
// threshold it transitions the proposal to EXECUTED in the same step.
type ProposalRepository interface {
	Create(ctx context.Context, proposal domain.Proposal, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.Proposal, error)
	AddApproval(ctx context.Context, proposalID, validatorID string, threshold int) (VoteOutcome, error)
}

// SessionTransition reports whether MarkVerified performed the
// REQUEST_SENT -> VERIFIED_AND_LOGGED transition. Transitioned is false
// when the session had already been verified (duplicate delivery).
type SessionTransition struct {
	Transitioned bool
	Session      domain.VerificationSession
}

// SessionRepository stores verification sessions for their TTL.
// MarkVerified is atomic: exactly one caller observes Transitioned=true
// per exchange id. A missing or expired session yields domain.ErrNotFound.
type SessionRepository interface {
	Create(ctx context.Context, session domain.VerificationSession, ttl time.Duration) error
	Get(ctx context.Context, exchangeID string) (*domain.VerificationSession, error)
	MarkVerified(ctx context.Context, exchangeID string) (SessionTransition, error)
}

// VoteVerifier checks a validator's signature over the canonical vote
// message of a proposal.
type VoteVerifier interface {
	VerifyVote(proposal domain.Proposal, validator domain.Validator, sig domain.VoteSignature) error
}
