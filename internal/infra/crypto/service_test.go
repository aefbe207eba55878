package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"quorumd/internal/domain"
)

func testKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pub, priv
}

func signProposal(t *testing.T, priv ed25519.PrivateKey, p domain.Proposal) domain.VoteSignature {
	t.Helper()
	svc := NewService()
	message, err := svc.VoteMessage(p.ID, p.Action, p.Payload)
	if err != nil {
		t.Fatalf("vote message: %v", err)
	}
	return domain.VoteSignature{
		Alg:   "ed25519",
		Value: base64.StdEncoding.EncodeToString(ed25519.Sign(priv, message)),
	}
}

func TestVerifyVoteAcceptsValidSignature(t *testing.T) {
	pub, priv := testKeyPair(t)
	proposal := domain.Proposal{
		ID:      "prop-1",
		Action:  domain.ActionRevokeCredential,
		Payload: json.RawMessage(`{"credential_id":"cred-42"}`),
	}
	sig := signProposal(t, priv, proposal)
	validator := domain.Validator{ID: "val-1", PublicKey: pub}
	if err := NewService().VerifyVote(proposal, validator, sig); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyVoteRejectsReplayAgainstOtherProposal(t *testing.T) {
	pub, priv := testKeyPair(t)
	original := domain.Proposal{
		ID:      "prop-1",
		Action:  domain.ActionRevokeCredential,
		Payload: json.RawMessage(`{"credential_id":"cred-42"}`),
	}
	sig := signProposal(t, priv, original)
	validator := domain.Validator{ID: "val-1", PublicKey: pub}

	other := original
	other.ID = "prop-2"
	if err := NewService().VerifyVote(other, validator, sig); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for replay, got %v", err)
	}
}

func TestVerifyVoteRejectsTamperedPayload(t *testing.T) {
	pub, priv := testKeyPair(t)
	proposal := domain.Proposal{
		ID:      "prop-1",
		Action:  domain.ActionSuspendIssuer,
		Payload: json.RawMessage(`{"issuer":"did:example:issuer"}`),
	}
	sig := signProposal(t, priv, proposal)
	validator := domain.Validator{ID: "val-1", PublicKey: pub}

	proposal.Payload = json.RawMessage(`{"issuer":"did:example:victim"}`)
	if err := NewService().VerifyVote(proposal, validator, sig); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for tampered payload, got %v", err)
	}
}

func TestVerifyVoteRejectsWrongKey(t *testing.T) {
	_, priv := testKeyPair(t)
	otherPub, _ := testKeyPair(t)
	proposal := domain.Proposal{ID: "prop-1", Action: domain.ActionRotateTrustRoot}
	sig := signProposal(t, priv, proposal)
	validator := domain.Validator{ID: "val-2", PublicKey: otherPub}
	if err := NewService().VerifyVote(proposal, validator, sig); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for wrong key, got %v", err)
	}
}

func TestVerifyVoteRejectsMalformedSignature(t *testing.T) {
	pub, _ := testKeyPair(t)
	proposal := domain.Proposal{ID: "prop-1", Action: domain.ActionRevokeCredential}
	validator := domain.Validator{ID: "val-1", PublicKey: pub}
	cases := []struct {
		name string
		sig  domain.VoteSignature
	}{
		{"unsupported alg", domain.VoteSignature{Alg: "rsa", Value: base64.StdEncoding.EncodeToString(make([]byte, ed25519.SignatureSize))}},
		{"missing value", domain.VoteSignature{Alg: "ed25519"}},
		{"bad encoding", domain.VoteSignature{Alg: "ed25519", Value: "%%%not-base64%%%"}},
		{"short signature", domain.VoteSignature{Alg: "ed25519", Value: base64.StdEncoding.EncodeToString([]byte("short"))}},
	}
	for _, tc := range cases {
		if err := NewService().VerifyVote(proposal, validator, tc.sig); !errors.Is(err, domain.ErrSignatureInvalid) {
			t.Fatalf("%s: expected ErrSignatureInvalid, got %v", tc.name, err)
		}
	}
}

func TestVoteMessageTreatsEmptyPayloadAsNull(t *testing.T) {
	svc := NewService()
	withNil, err := svc.VoteMessage("prop-1", domain.ActionRevokeCredential, nil)
	if err != nil {
		t.Fatalf("nil payload: %v", err)
	}
	withNull, err := svc.VoteMessage("prop-1", domain.ActionRevokeCredential, json.RawMessage(`null`))
	if err != nil {
		t.Fatalf("null payload: %v", err)
	}
	if string(withNil) != string(withNull) {
		t.Fatalf("nil and null payload messages differ: %q vs %q", withNil, withNull)
	}
}

func TestEntryHashChangesWithChainFields(t *testing.T) {
	base := domain.AuditEntry{
		Index:    3,
		BodyHash: SHA256Hex([]byte("body")),
		PrevHash: ZeroHash(),
	}
	first, err := EntryHash(base)
	if err != nil {
		t.Fatalf("entry hash: %v", err)
	}
	changed := base
	changed.Index = 4
	second, err := EntryHash(changed)
	if err != nil {
		t.Fatalf("entry hash: %v", err)
	}
	if first == second {
		t.Fatal("entry hash ignored the index")
	}
}
