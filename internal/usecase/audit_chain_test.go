package usecase

import (
	"context"
	"strings"
	"testing"

	"quorumd/internal/domain"
	"quorumd/internal/infra/auditmem"
)

func seedAudit(t *testing.T, log *auditmem.Log, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := log.Append(context.Background(), domain.AuditBody{
			Kind:        domain.AuditEventProofVerified,
			ExchangeID:  "ex-" + strings.Repeat("a", i+1),
			ContentHash: "hash",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
}

func TestVerifyAuditChainAcceptsIntactLog(t *testing.T) {
	log := auditmem.New()
	seedAudit(t, log, 5)
	if err := VerifyAuditChain(context.Background(), log, 1, 5); err != nil {
		t.Fatalf("intact chain rejected: %v", err)
	}
}

func TestVerifyAuditChainAcceptsPartialRange(t *testing.T) {
	log := auditmem.New()
	seedAudit(t, log, 5)
	if err := VerifyAuditChain(context.Background(), log, 3, 5); err != nil {
		t.Fatalf("partial range rejected: %v", err)
	}
}

type tamperedLog struct {
	*auditmem.Log
	mutate func([]domain.AuditEntry)
}

func (l *tamperedLog) Range(ctx context.Context, from, to int64) ([]domain.AuditEntry, error) {
	entries, err := l.Log.Range(ctx, from, to)
	if err != nil {
		return nil, err
	}
	l.mutate(entries)
	return entries, nil
}

func TestVerifyAuditChainDetectsBodyMutation(t *testing.T) {
	inner := auditmem.New()
	seedAudit(t, inner, 3)
	log := &tamperedLog{Log: inner, mutate: func(entries []domain.AuditEntry) {
		entries[1].Body.ContentHash = "forged"
	}}
	if err := VerifyAuditChain(context.Background(), log, 1, 3); err == nil {
		t.Fatal("mutated body went undetected")
	}
}

func TestVerifyAuditChainDetectsGap(t *testing.T) {
	inner := auditmem.New()
	seedAudit(t, inner, 3)
	log := &tamperedLog{Log: inner, mutate: func(entries []domain.AuditEntry) {
		entries[1] = entries[2]
	}}
	if err := VerifyAuditChain(context.Background(), log, 1, 3); err == nil {
		t.Fatal("index gap went undetected")
	}
}

func TestVerifyAuditChainDetectsRelinking(t *testing.T) {
	inner := auditmem.New()
	seedAudit(t, inner, 3)
	log := &tamperedLog{Log: inner, mutate: func(entries []domain.AuditEntry) {
		entries[2].PrevHash = entries[0].EntryHash
	}}
	if err := VerifyAuditChain(context.Background(), log, 1, 3); err == nil {
		t.Fatal("relinked chain went undetected")
	}
}
