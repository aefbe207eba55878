package domain

import (
	"encoding/json"
	"time"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalExecuted ProposalStatus = "EXECUTED"
	ProposalExpired  ProposalStatus = "EXPIRED"
)

type ActionKind string

const (
	ActionRevokeCredential ActionKind = "revoke_credential"
	ActionSuspendIssuer    ActionKind = "suspend_issuer"
	ActionRotateTrustRoot  ActionKind = "rotate_trust_root"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionRevokeCredential, ActionSuspendIssuer, ActionRotateTrustRoot:
		return true
	default:
		return false
	}
}

// Proposal is a pending governance decision awaiting k-of-n validator
// sign-off. Approvals is a set: a validator id appears at most once.
// Status transitions are monotonic; nothing leaves EXECUTED or EXPIRED.
type Proposal struct {
	ID        string
	Action    ActionKind
	Payload   json.RawMessage
	Requestor string
	Approvals []string
	Status    ProposalStatus
	CreatedAt time.Time
	ExpiresAt time.Time

	// Version is the optimistic-concurrency token used by stores that
	// implement conditional updates as compare-and-swap.
	Version int64
}

func (p Proposal) HasApproval(validatorID string) bool {
	for _, id := range p.Approvals {
		if id == validatorID {
			return true
		}
	}
	return false
}

// VoteSignature is a validator's detached signature over the canonical
// vote message for one specific proposal.
type VoteSignature struct {
	Alg   string `json:"alg"`
	Value string `json:"value"` // base64
}
