package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ActionExecutor invokes the external side-effecting action. The engine
// calls it at most once per proposal by design; operators may retry a
// failed call, so the external system is the authority on final effect.
type ActionExecutor interface {
	Execute(ctx context.Context, action ActionKind, payload json.RawMessage) error
}

const (
	ExecutionStatusSucceeded = "succeeded"
	ExecutionStatusFailed    = "failed"
)

const (
	ExecErrorNetwork  = "NETWORK"
	ExecErrorTimeout  = "TIMEOUT"
	ExecErrorRemote   = "REMOTE_ERROR"
	ExecErrorRemote5x = "REMOTE_5XX"
)

// ExecutionAttempt records one invocation of the Action Executor for a
// finalized proposal. Failed attempts are the operator's remediation
// queue; they are never silently dropped.
type ExecutionAttempt struct {
	ProposalID string
	Action     ActionKind
	Status     string
	ErrorCode  string
	CreatedAt  time.Time
}

type ExecutionAttemptRepository interface {
	Append(ctx context.Context, attempt ExecutionAttempt) error
	ListByProposal(ctx context.Context, proposalID string) ([]ExecutionAttempt, error)
}

// OperatorNotifier surfaces dependency failures that must reach a human:
// executor calls that failed after finalization, audit appends that could
// not be delivered, and attempt records that could not be persisted.
type OperatorNotifier interface {
	ExecutionFailed(proposalID string, action ActionKind, errorCode string, err error)
	AuditAppendFailed(ref string, err error)
	AttemptRecordFailed(proposalID string, err error)
}
