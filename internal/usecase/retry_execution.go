package usecase

import (
	"context"
	"fmt"
	"time"

	"quorumd/internal/domain"
)

// ExecutionRetry re-invokes the Action Executor for a proposal that
// already reached EXECUTED. It is the operator-driven remediation path for
// dependency failures; it never touches the proposal record itself.
type ExecutionRetry struct {
	Proposals ProposalRepository
	Executor  domain.ActionExecutor
	Attempts  domain.ExecutionAttemptRepository
	Audit     domain.AuditLog
	Notifier  domain.OperatorNotifier

	ExecTimeout time.Duration
	Clock       Clock
}

func (uc *ExecutionRetry) Execute(ctx context.Context, proposalID string) (domain.ExecutionAttempt, error) {
	if proposalID == "" {
		return domain.ExecutionAttempt{}, domain.ErrInvalidRequest
	}
	proposal, err := uc.Proposals.Get(ctx, proposalID)
	if err != nil {
		return domain.ExecutionAttempt{}, err
	}
	if proposal.Status != domain.ProposalExecuted {
		return domain.ExecutionAttempt{}, fmt.Errorf("%w: proposal is %s, not executed", domain.ErrInvalidRequest, proposal.Status)
	}
	if uc.Executor == nil {
		return domain.ExecutionAttempt{}, domain.ErrDependency
	}

	timeout := uc.ExecTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempt := domain.ExecutionAttempt{
		ProposalID: proposal.ID,
		Action:     proposal.Action,
		Status:     domain.ExecutionStatusSucceeded,
		CreatedAt:  uc.now(),
	}
	callErr := uc.Executor.Execute(execCtx, proposal.Action, proposal.Payload)
	if callErr != nil {
		attempt.Status = domain.ExecutionStatusFailed
		attempt.ErrorCode = executionErrorCode(execCtx, callErr)
		if uc.Notifier != nil {
			uc.Notifier.ExecutionFailed(proposal.ID, proposal.Action, attempt.ErrorCode, callErr)
		}
	}
	if uc.Attempts != nil {
		if appendErr := uc.Attempts.Append(execCtx, attempt); appendErr != nil && uc.Notifier != nil {
			uc.Notifier.AttemptRecordFailed(proposal.ID, appendErr)
		}
	}
	appendGovernanceAudit(execCtx, uc.Audit, uc.Notifier, domain.AuditEventExecutionRetried, *proposal, attemptMetadata(*proposal, attempt))
	if callErr != nil {
		return attempt, fmt.Errorf("%w: %v", domain.ErrDependency, callErr)
	}
	return attempt, nil
}

func (uc *ExecutionRetry) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock().UTC()
	}
	return time.Now().UTC()
}
