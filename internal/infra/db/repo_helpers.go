package db

import (
	"encoding/json"
	"fmt"

	"quorumd/internal/domain"
)

func proposalToModel(p domain.Proposal) (ProposalModel, error) {
	approvals := p.Approvals
	if approvals == nil {
		approvals = []string{}
	}
	approvalsJSON, err := json.Marshal(approvals)
	if err != nil {
		return ProposalModel{}, fmt.Errorf("encode approvals: %w", err)
	}
	payload := []byte(p.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	return ProposalModel{
		ID:            p.ID,
		Action:        string(p.Action),
		PayloadJSON:   payload,
		Requestor:     p.Requestor,
		ApprovalsJSON: approvalsJSON,
		Status:        string(p.Status),
		Version:       p.Version,
		CreatedAt:     p.CreatedAt.UTC(),
		ExpiresAt:     p.ExpiresAt.UTC(),
	}, nil
}

func proposalFromModel(m ProposalModel) (domain.Proposal, error) {
	var approvals []string
	if len(m.ApprovalsJSON) > 0 {
		if err := json.Unmarshal(m.ApprovalsJSON, &approvals); err != nil {
			return domain.Proposal{}, fmt.Errorf("decode approvals: %w", err)
		}
	}
	return domain.Proposal{
		ID:        m.ID,
		Action:    domain.ActionKind(m.Action),
		Payload:   json.RawMessage(m.PayloadJSON),
		Requestor: m.Requestor,
		Approvals: approvals,
		Status:    domain.ProposalStatus(m.Status),
		CreatedAt: m.CreatedAt.UTC(),
		ExpiresAt: m.ExpiresAt.UTC(),
		Version:   m.Version,
	}, nil
}
