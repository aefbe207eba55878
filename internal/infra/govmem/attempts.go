package govmem

import (
	"context"
	"sync"

	"quorumd/internal/domain"
)

// AttemptStore records executor invocations in memory (no-db mode).
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[string][]domain.ExecutionAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string][]domain.ExecutionAttempt)}
}

func (s *AttemptStore) Append(ctx context.Context, attempt domain.ExecutionAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ProposalID] = append(s.attempts[attempt.ProposalID], attempt)
	return nil
}

func (s *AttemptStore) ListByProposal(ctx context.Context, proposalID string) ([]domain.ExecutionAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ExecutionAttempt(nil), s.attempts[proposalID]...), nil
}

var _ domain.ExecutionAttemptRepository = (*AttemptStore)(nil)
