package usecase

import (
	"context"
	"encoding/json"

	"quorumd/internal/domain"
	"quorumd/internal/infra/crypto"
)

// appendGovernanceAudit records a proposal lifecycle event in the audit
// log. A failed append is surfaced on the operator channel, never silently
// dropped; the governance decision itself stands either way.
func appendGovernanceAudit(ctx context.Context, log domain.AuditLog, notifier domain.OperatorNotifier, kind domain.AuditEventKind, proposal domain.Proposal, metadata map[string]string) {
	if log == nil {
		return
	}
	payload := proposal.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`null`)
	}
	canonical, err := crypto.Canonicalize(payload)
	if err != nil {
		canonical = payload
	}
	body := domain.AuditBody{
		Kind:        kind,
		ProposalID:  proposal.ID,
		ContentHash: crypto.SHA256Hex(canonical),
		Metadata:    metadata,
	}
	if _, err := log.Append(ctx, body); err != nil && notifier != nil {
		notifier.AuditAppendFailed(proposal.ID, err)
	}
}

func attemptMetadata(proposal domain.Proposal, attempt domain.ExecutionAttempt) map[string]string {
	metadata := map[string]string{
		"action": string(proposal.Action),
		"status": attempt.Status,
	}
	if attempt.ErrorCode != "" {
		metadata["error_code"] = attempt.ErrorCode
	}
	return metadata
}
