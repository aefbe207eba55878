package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"quorumd/internal/domain"
	"quorumd/internal/usecase"
)

const casAttempts = 5

// ProposalRepo persists proposals in postgres. Concurrent votes are
// serialized with an optimistic version check on update.
type ProposalRepo struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewProposalRepo(gdb *gorm.DB, clock func() time.Time) *ProposalRepo {
	if clock == nil {
		clock = time.Now
	}
	return &ProposalRepo{db: gdb, clock: clock}
}

func (r *ProposalRepo) Create(ctx context.Context, p domain.Proposal, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := proposalToModel(p)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("%w: insert proposal: %v", domain.ErrDependency, err)
	}
	return nil
}

func (r *ProposalRepo) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var m ProposalModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load proposal: %v", domain.ErrDependency, err)
	}
	p, err := proposalFromModel(m)
	if err != nil {
		return nil, err
	}
	r.expireInPlace(&p)
	return &p, nil
}

// AddApproval records a vote and reports whether this vote crossed the
// threshold. The read-modify-write is guarded by a version compare so two
// racing votes cannot both observe the crossing.
func (r *ProposalRepo) AddApproval(ctx context.Context, proposalID, validatorID string, threshold int) (usecase.VoteOutcome, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return usecase.VoteOutcome{}, err
		}
		var m ProposalModel
		err := r.db.WithContext(ctx).First(&m, "id = ?", proposalID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usecase.VoteOutcome{}, domain.ErrNotFound
		}
		if err != nil {
			return usecase.VoteOutcome{}, fmt.Errorf("%w: load proposal: %v", domain.ErrDependency, err)
		}
		p, err := proposalFromModel(m)
		if err != nil {
			return usecase.VoteOutcome{}, err
		}
		r.expireInPlace(&p)
		if p.Status != domain.ProposalPending {
			return usecase.VoteOutcome{}, domain.ErrAlreadyFinalized
		}
		if p.HasApproval(validatorID) {
			return usecase.VoteOutcome{}, domain.ErrDuplicateVote
		}

		p.Approvals = append(p.Approvals, validatorID)
		executedNow := len(p.Approvals) >= threshold
		if executedNow {
			p.Status = domain.ProposalExecuted
		}
		approvalsJSON, err := json.Marshal(p.Approvals)
		if err != nil {
			return usecase.VoteOutcome{}, fmt.Errorf("encode approvals: %w", err)
		}

		res := r.db.WithContext(ctx).Model(&ProposalModel{}).
			Where("id = ? AND version = ?", proposalID, m.Version).
			Updates(map[string]any{
				"approvals_json": approvalsJSON,
				"status":         string(p.Status),
				"version":        m.Version + 1,
			})
		if res.Error != nil {
			return usecase.VoteOutcome{}, fmt.Errorf("%w: update proposal: %v", domain.ErrDependency, res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race, reload and retry.
			continue
		}
		p.Version = m.Version + 1
		return usecase.VoteOutcome{Proposal: p, ExecutedNow: executedNow}, nil
	}
	return usecase.VoteOutcome{}, fmt.Errorf("%w: proposal update contention", domain.ErrDependency)
}

func (r *ProposalRepo) expireInPlace(p *domain.Proposal) {
	if p.Status == domain.ProposalPending && !r.clock().Before(p.ExpiresAt) {
		p.Status = domain.ProposalExpired
	}
}
