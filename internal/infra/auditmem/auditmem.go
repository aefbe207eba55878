package auditmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quorumd/internal/domain"
	"quorumd/internal/infra/crypto"
)

// Log is the simple ordered-store audit backend: an append-only in-memory
// list with serialized index assignment. It honors the same contract as
// the durable backends, which makes the verification flow testable without
// external services.
type Log struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	clock   func() time.Time
}

func New() *Log {
	return NewWithClock(nil)
}

func NewWithClock(clock func() time.Time) *Log {
	if clock == nil {
		clock = time.Now
	}
	return &Log{clock: clock}
}

func (l *Log) Append(ctx context.Context, body domain.AuditBody) (domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuditEntry{}, err
	}
	_, bodyHash, err := crypto.BodyHash(body)
	if err != nil {
		return domain.AuditEntry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash := crypto.ZeroHash()
	if n := len(l.entries); n > 0 {
		prevHash = l.entries[n-1].EntryHash
	}
	entry := domain.AuditEntry{
		UUID:      uuid.NewString(),
		Index:     int64(len(l.entries)) + 1,
		Timestamp: l.clock().UTC(),
		Body:      body,
		BodyHash:  bodyHash,
		PrevHash:  prevHash,
	}
	entryHash, err := crypto.EntryHash(entry)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	entry.EntryHash = entryHash
	l.entries = append(l.entries, entry)
	return entry, nil
}

func (l *Log) Get(ctx context.Context, index int64) (domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuditEntry{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 1 || index > int64(len(l.entries)) {
		return domain.AuditEntry{}, domain.ErrNotFound
	}
	return l.entries[index-1], nil
}

func (l *Log) Range(ctx context.Context, from, to int64) ([]domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if from < 1 || to < from {
		return nil, domain.ErrInvalidRequest
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if from > int64(len(l.entries)) {
		return nil, nil
	}
	if to > int64(len(l.entries)) {
		to = int64(len(l.entries))
	}
	out := make([]domain.AuditEntry, to-from+1)
	copy(out, l.entries[from-1:to])
	return out, nil
}

var _ domain.AuditLog = (*Log)(nil)
