package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"quorumd/internal/domain"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

type voteMessage struct {
	ProposalID string          `json:"proposal_id"`
	Action     string          `json:"action"`
	Payload    json.RawMessage `json:"payload"`
}

// VoteMessage builds the canonical bytes a validator signs for one
// proposal. The message binds the proposal id, the action and the payload
// together so a signature cannot be replayed against another proposal or a
// tampered payload.
func (s *Service) VoteMessage(proposalID string, action domain.ActionKind, payload json.RawMessage) ([]byte, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`null`)
	}
	return CanonicalizeValue(voteMessage{
		ProposalID: proposalID,
		Action:     string(action),
		Payload:    payload,
	})
}

func (s *Service) VerifyVote(proposal domain.Proposal, validator domain.Validator, sig domain.VoteSignature) error {
	if sig.Alg != "" && sig.Alg != "ed25519" {
		return fmt.Errorf("%w: unsupported algorithm %q", domain.ErrSignatureInvalid, sig.Alg)
	}
	if len(validator.PublicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: invalid public key length %d", domain.ErrSignatureInvalid, len(validator.PublicKey))
	}
	if sig.Value == "" {
		return fmt.Errorf("%w: signature value is required", domain.ErrSignatureInvalid)
	}
	sigBytes, err := base64.StdEncoding.DecodeString(sig.Value)
	if err != nil {
		return fmt.Errorf("%w: malformed encoding", domain.ErrSignatureInvalid)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return fmt.Errorf("%w: invalid signature length %d", domain.ErrSignatureInvalid, len(sigBytes))
	}
	message, err := s.VoteMessage(proposal.ID, proposal.Action, proposal.Payload)
	if err != nil {
		return err
	}
	if !ed25519.Verify(validator.PublicKey, message, sigBytes) {
		return fmt.Errorf("%w: verification failed", domain.ErrSignatureInvalid)
	}
	return nil
}

func SHA256Hex(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// EntryHash chains an audit entry to its predecessor: a hash over the
// chain version, index, body hash, previous hash and timestamp.
func EntryHash(entry domain.AuditEntry) (string, error) {
	if entry.BodyHash == "" {
		return "", fmt.Errorf("body hash is required")
	}
	if entry.PrevHash == "" {
		return "", fmt.Errorf("prev hash is required")
	}
	canonical, err := CanonicalizeValue(map[string]any{
		"v":         domain.AuditChainVersion,
		"index":     entry.Index,
		"body_hash": entry.BodyHash,
		"prev_hash": entry.PrevHash,
		"ts":        entry.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}
	return SHA256Hex(canonical), nil
}

// BodyHash canonicalizes the audit body and hashes it.
func BodyHash(body domain.AuditBody) ([]byte, string, error) {
	canonical, err := CanonicalizeValue(body)
	if err != nil {
		return nil, "", err
	}
	return canonical, SHA256Hex(canonical), nil
}

func ZeroHash() string {
	return "0000000000000000000000000000000000000000000000000000000000000000"
}
