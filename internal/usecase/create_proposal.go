package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quorumd/internal/domain"
)

type CreateProposalRequest struct {
	Action    domain.ActionKind
	Payload   json.RawMessage
	Requestor domain.Principal
}

type CreateProposal struct {
	Proposals ProposalRepository
	Policy    domain.PolicyEngine
	Audit     domain.AuditLog
	Notifier  domain.OperatorNotifier
	Clock     Clock
	TTL       time.Duration
}

func (uc *CreateProposal) Execute(ctx context.Context, req CreateProposalRequest) (domain.Proposal, error) {
	if !req.Action.Valid() {
		return domain.Proposal{}, fmt.Errorf("%w: unknown action kind %q", domain.ErrInvalidRequest, req.Action)
	}
	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		return domain.Proposal{}, fmt.Errorf("%w: payload is not valid JSON", domain.ErrInvalidRequest)
	}
	if req.Requestor.Subject == "" {
		return domain.Proposal{}, domain.ErrUnauthorized
	}
	if uc.Policy != nil {
		decision, err := uc.Policy.Evaluate(ctx, domain.PolicyInput{
			Subject: req.Requestor.Subject,
			Roles:   req.Requestor.Roles,
			Action:  string(req.Action),
		})
		if err != nil {
			return domain.Proposal{}, fmt.Errorf("policy evaluation: %w", err)
		}
		if !decision.Allow {
			return domain.Proposal{}, fmt.Errorf("%w: action not permitted by policy", domain.ErrForbidden)
		}
	}

	now := uc.now()
	proposal := domain.Proposal{
		ID:        uuid.NewString(),
		Action:    req.Action,
		Payload:   req.Payload,
		Requestor: req.Requestor.Subject,
		Approvals: nil,
		Status:    domain.ProposalPending,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.ttl()),
	}
	if err := uc.Proposals.Create(ctx, proposal, uc.ttl()); err != nil {
		return domain.Proposal{}, err
	}
	appendGovernanceAudit(ctx, uc.Audit, uc.Notifier, domain.AuditEventProposalCreated, proposal, map[string]string{
		"action":    string(proposal.Action),
		"requestor": proposal.Requestor,
	})
	return proposal, nil
}

func (uc *CreateProposal) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock().UTC()
	}
	return time.Now().UTC()
}

func (uc *CreateProposal) ttl() time.Duration {
	if uc.TTL > 0 {
		return uc.TTL
	}
	return 24 * time.Hour
}
