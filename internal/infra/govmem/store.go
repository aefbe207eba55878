package govmem

import (
	"context"
	"sync"
	"time"

	"quorumd/internal/domain"
	"quorumd/internal/usecase"
)

// ProposalStore keeps governance proposals in process memory. It is the
// no-db mode backend and the deterministic test double for the redis and
// postgres stores; every conditional update runs under one mutex so it is
// a single atomic step, matching the shared-store contract.
type ProposalStore struct {
	mu        sync.Mutex
	proposals map[string]*domain.Proposal
	clock     func() time.Time
}

func NewProposalStore() *ProposalStore {
	return NewProposalStoreWithClock(nil)
}

func NewProposalStoreWithClock(clock func() time.Time) *ProposalStore {
	if clock == nil {
		clock = time.Now
	}
	return &ProposalStore{
		proposals: make(map[string]*domain.Proposal),
		clock:     clock,
	}
}

func (s *ProposalStore) Create(ctx context.Context, proposal domain.Proposal, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proposals[proposal.ID]; ok {
		return domain.ErrInvalidRequest
	}
	stored := cloneProposal(proposal)
	s.proposals[proposal.ID] = &stored
	return nil
}

func (s *ProposalStore) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal := s.live(id)
	if proposal == nil {
		return nil, domain.ErrNotFound
	}
	out := cloneProposal(*proposal)
	return &out, nil
}

func (s *ProposalStore) AddApproval(ctx context.Context, proposalID, validatorID string, threshold int) (usecase.VoteOutcome, error) {
	if err := ctx.Err(); err != nil {
		return usecase.VoteOutcome{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal := s.live(proposalID)
	if proposal == nil {
		return usecase.VoteOutcome{}, domain.ErrNotFound
	}
	if proposal.Status != domain.ProposalPending {
		return usecase.VoteOutcome{}, domain.ErrAlreadyFinalized
	}
	if proposal.HasApproval(validatorID) {
		return usecase.VoteOutcome{}, domain.ErrDuplicateVote
	}

	proposal.Approvals = append(proposal.Approvals, validatorID)
	proposal.Version++
	executedNow := len(proposal.Approvals) >= threshold
	if executedNow {
		proposal.Status = domain.ProposalExecuted
	}
	return usecase.VoteOutcome{
		Proposal:    cloneProposal(*proposal),
		ExecutedNow: executedNow,
	}, nil
}

// live drops a record whose TTL has lapsed; absence after the TTL is the
// store's implicit expiry.
func (s *ProposalStore) live(id string) *domain.Proposal {
	proposal, ok := s.proposals[id]
	if !ok {
		return nil
	}
	if !proposal.ExpiresAt.IsZero() && s.clock().After(proposal.ExpiresAt) {
		delete(s.proposals, id)
		return nil
	}
	return proposal
}

var _ usecase.ProposalRepository = (*ProposalStore)(nil)

func cloneProposal(p domain.Proposal) domain.Proposal {
	out := p
	out.Approvals = append([]string(nil), p.Approvals...)
	out.Payload = append([]byte(nil), p.Payload...)
	return out
}
