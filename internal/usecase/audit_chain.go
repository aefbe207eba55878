package usecase

import (
	"context"
	"fmt"

	"quorumd/internal/domain"
	"quorumd/internal/infra/crypto"
)

// VerifyAuditChain re-derives the hash chain over a range of audit entries
// and fails on any gap, reorder or mutation. Backends that do not chain
// locally (the remote transparency-log client) are verified by the remote
// service instead.
func VerifyAuditChain(ctx context.Context, log domain.AuditLog, from, to int64) error {
	entries, err := log.Range(ctx, from, to)
	if err != nil {
		return err
	}
	prevHash := crypto.ZeroHash()
	expected := from
	for i, entry := range entries {
		if entry.Index != expected {
			return fmt.Errorf("audit chain: index gap at position %d: got %d, want %d", i, entry.Index, expected)
		}
		if i == 0 && from > 1 {
			// Partial ranges anchor on the first entry's own prev hash.
			prevHash = entry.PrevHash
		} else if entry.PrevHash != prevHash {
			return fmt.Errorf("audit chain: entry %d prev hash mismatch", entry.Index)
		}
		_, bodyHash, err := crypto.BodyHash(entry.Body)
		if err != nil {
			return err
		}
		if entry.BodyHash != bodyHash {
			return fmt.Errorf("audit chain: entry %d body mutated", entry.Index)
		}
		recomputed, err := crypto.EntryHash(entry)
		if err != nil {
			return err
		}
		if entry.EntryHash != recomputed {
			return fmt.Errorf("audit chain: entry %d hash mismatch", entry.Index)
		}
		prevHash = entry.EntryHash
		expected++
	}
	return nil
}
