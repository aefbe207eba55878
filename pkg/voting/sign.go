// Package voting holds the client-side helpers a validator uses to
// produce a vote signature the engine will accept.
package voting

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"

	"quorumd/internal/domain"
	"quorumd/internal/infra/crypto"
)

const SignatureAlg = "ed25519"

// SignVote builds the canonical vote message for a proposal and signs it.
// The resulting signature is bound to this exact proposal id, action and
// payload.
func SignVote(key ed25519.PrivateKey, proposalID string, action domain.ActionKind, payload json.RawMessage) (domain.VoteSignature, error) {
	if len(key) != ed25519.PrivateKeySize {
		return domain.VoteSignature{}, errors.New("invalid ed25519 private key length")
	}
	if proposalID == "" {
		return domain.VoteSignature{}, errors.New("proposal id is required")
	}
	message, err := crypto.NewService().VoteMessage(proposalID, action, payload)
	if err != nil {
		return domain.VoteSignature{}, err
	}
	sig := ed25519.Sign(key, message)
	return domain.VoteSignature{
		Alg:   SignatureAlg,
		Value: base64.StdEncoding.EncodeToString(sig),
	}, nil
}
