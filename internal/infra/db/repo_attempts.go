package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"quorumd/internal/domain"
)

type AttemptRepo struct {
	db *gorm.DB
}

func NewAttemptRepo(gdb *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: gdb}
}

func (r *AttemptRepo) Append(ctx context.Context, attempt domain.ExecutionAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := ExecutionAttemptModel{
		ProposalID: attempt.ProposalID,
		Action:     string(attempt.Action),
		Status:     attempt.Status,
		ErrorCode:  stringPtrIfNotEmpty(attempt.ErrorCode),
		CreatedAt:  attempt.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("%w: insert execution attempt: %v", domain.ErrDependency, err)
	}
	return nil
}

func (r *AttemptRepo) ListByProposal(ctx context.Context, proposalID string) ([]domain.ExecutionAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var models []ExecutionAttemptModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list execution attempts: %v", domain.ErrDependency, err)
	}
	attempts := make([]domain.ExecutionAttempt, 0, len(models))
	for _, m := range models {
		attempts = append(attempts, domain.ExecutionAttempt{
			ProposalID: m.ProposalID,
			Action:     domain.ActionKind(m.Action),
			Status:     m.Status,
			ErrorCode:  stringValue(m.ErrorCode),
			CreatedAt:  m.CreatedAt.UTC(),
		})
	}
	return attempts, nil
}
