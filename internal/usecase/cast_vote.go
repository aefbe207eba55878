package usecase

import (
	"context"
	"errors"
	"time"

	"quorumd/internal/domain"
)

type CastVoteRequest struct {
	ProposalID  string
	ValidatorID string
	Signature   domain.VoteSignature
}

// CastVote verifies one validator vote and merges it into the proposal's
// approval set. The merge and the PENDING -> EXECUTED transition are one
// atomic store operation; the external executor call happens strictly
// after that commit, so a slow or failing remote can neither block other
// voters nor re-open a finalized decision.
type CastVote struct {
	Proposals  ProposalRepository
	Validators *domain.ValidatorSet
	Verifier   VoteVerifier
	Executor   domain.ActionExecutor
	Attempts   domain.ExecutionAttemptRepository
	Audit      domain.AuditLog
	Notifier   domain.OperatorNotifier

	ExecTimeout time.Duration
	Clock       Clock
}

func (uc *CastVote) Execute(ctx context.Context, req CastVoteRequest) (domain.Proposal, error) {
	if req.ProposalID == "" || req.ValidatorID == "" {
		return domain.Proposal{}, domain.ErrInvalidRequest
	}
	validator, ok := uc.Validators.Get(req.ValidatorID)
	if !ok {
		return domain.Proposal{}, domain.ErrUnknownValidator
	}

	proposal, err := uc.Proposals.Get(ctx, req.ProposalID)
	if err != nil {
		return domain.Proposal{}, err
	}
	if proposal.Status != domain.ProposalPending {
		return domain.Proposal{}, domain.ErrAlreadyFinalized
	}
	if err := uc.Verifier.VerifyVote(*proposal, validator, req.Signature); err != nil {
		return domain.Proposal{}, err
	}

	// The read above is advisory only; AddApproval re-checks everything
	// under the store's atomic step.
	outcome, err := uc.Proposals.AddApproval(ctx, req.ProposalID, req.ValidatorID, uc.Validators.Threshold())
	if err != nil {
		return domain.Proposal{}, err
	}
	if outcome.ExecutedNow {
		uc.invokeExecutor(ctx, outcome.Proposal)
	}
	return outcome.Proposal, nil
}

// invokeExecutor runs after the finalizing commit. A failure or timeout is
// recorded and surfaced to the operator channel; the proposal stays
// EXECUTED either way, since un-finalizing risks re-triggering an action
// whose external effects may already be partially applied.
func (uc *CastVote) invokeExecutor(ctx context.Context, proposal domain.Proposal) {
	if uc.Executor == nil {
		return
	}
	timeout := uc.ExecTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	err := uc.Executor.Execute(execCtx, proposal.Action, proposal.Payload)
	attempt := domain.ExecutionAttempt{
		ProposalID: proposal.ID,
		Action:     proposal.Action,
		Status:     domain.ExecutionStatusSucceeded,
		CreatedAt:  uc.now(),
	}
	if err != nil {
		attempt.Status = domain.ExecutionStatusFailed
		attempt.ErrorCode = executionErrorCode(execCtx, err)
		if uc.Notifier != nil {
			uc.Notifier.ExecutionFailed(proposal.ID, proposal.Action, attempt.ErrorCode, err)
		}
	}
	if uc.Attempts != nil {
		if appendErr := uc.Attempts.Append(execCtx, attempt); appendErr != nil && uc.Notifier != nil {
			uc.Notifier.AttemptRecordFailed(proposal.ID, appendErr)
		}
	}
	appendGovernanceAudit(execCtx, uc.Audit, uc.Notifier, domain.AuditEventActionExecuted, proposal, attemptMetadata(proposal, attempt))
}

func (uc *CastVote) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock().UTC()
	}
	return time.Now().UTC()
}

func executionErrorCode(ctx context.Context, err error) string {
	var coded interface{ ErrorCode() string }
	switch {
	case errors.As(err, &coded):
		return coded.ErrorCode()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.ExecErrorTimeout
	default:
		return domain.ExecErrorNetwork
	}
}
