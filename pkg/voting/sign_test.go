package voting

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"testing"

	"quorumd/internal/domain"
	"quorumd/internal/infra/crypto"
)

func TestSignVoteRoundTripsThroughVerifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	proposal := domain.Proposal{
		ID:      "prop-1",
		Action:  domain.ActionRevokeCredential,
		Payload: json.RawMessage(`{"credential_id":"cred-1"}`),
	}
	sig, err := SignVote(priv, proposal.ID, proposal.Action, proposal.Payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sig.Alg != SignatureAlg {
		t.Fatalf("alg = %s", sig.Alg)
	}
	validator := domain.Validator{ID: "val-1", PublicKey: pub}
	if err := crypto.NewService().VerifyVote(proposal, validator, sig); err != nil {
		t.Fatalf("signature rejected: %v", err)
	}
}

func TestSignVoteRejectsBadInput(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if _, err := SignVote(priv[:10], "prop-1", domain.ActionRevokeCredential, nil); err == nil {
		t.Fatal("expected error for short key")
	}
	if _, err := SignVote(priv, "", domain.ActionRevokeCredential, nil); err == nil {
		t.Fatal("expected error for empty proposal id")
	}
}

func TestParseKeysAcceptSeedAndFullKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	seed := priv.Seed()

	fromSeed, err := ParseEd25519PrivateKeyHex(hex.EncodeToString(seed))
	if err != nil {
		t.Fatalf("parse seed: %v", err)
	}
	fromFull, err := ParseEd25519PrivateKeyHex(hex.EncodeToString(priv))
	if err != nil {
		t.Fatalf("parse full key: %v", err)
	}
	if !fromSeed.Equal(fromFull) {
		t.Fatal("seed and full key parse to different keys")
	}
	if _, err := ParseEd25519PrivateKeyHex("abcd"); err == nil {
		t.Fatal("expected error for truncated key")
	}
}
