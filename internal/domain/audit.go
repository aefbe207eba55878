package domain

import (
	"context"
	"time"
)

const AuditChainVersion = "quorum_audit_v1"

type AuditEventKind string

const (
	AuditEventProofVerified    AuditEventKind = "proof_verified"
	AuditEventActionExecuted   AuditEventKind = "action_executed"
	AuditEventProposalCreated  AuditEventKind = "proposal_created"
	AuditEventExecutionRetried AuditEventKind = "execution_retried"
)

// AuditBody is the opaque content of an audit entry: a content hash of the
// audited material plus free-form metadata.
type AuditBody struct {
	Kind        AuditEventKind    `json:"kind"`
	ExchangeID  string            `json:"exchange_id,omitempty"`
	ProposalID  string            `json:"proposal_id,omitempty"`
	ContentHash string            `json:"content_hash"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// AuditEntry is immutable once appended. Index is assigned by the log,
// strictly increasing with no gaps or duplicates. PrevHash/EntryHash chain
// each entry to its predecessor so tampering is detectable.
type AuditEntry struct {
	UUID      string
	Index     int64
	Timestamp time.Time
	Body      AuditBody
	BodyHash  string
	PrevHash  string
	EntryHash string
}

// AuditLog is the append-only ledger contract. There is no delete or
// reorder operation; backends must serialize index assignment so
// concurrent appenders never observe a gap or a duplicate.
type AuditLog interface {
	Append(ctx context.Context, body AuditBody) (AuditEntry, error)
	Get(ctx context.Context, index int64) (AuditEntry, error)
	Range(ctx context.Context, from, to int64) ([]AuditEntry, error)
}
