package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"quorumd/internal/domain"
	"quorumd/internal/usecase"
)

// SessionRepo is the shared verification-session store for multi-replica
// deployments without redis. The verified transition is one conditional
// UPDATE, so exactly one replica's event delivery observes it regardless
// of which replica opened the session.
type SessionRepo struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewSessionRepo(gdb *gorm.DB, clock func() time.Time) *SessionRepo {
	if clock == nil {
		clock = time.Now
	}
	return &SessionRepo{db: gdb, clock: clock}
}

func (r *SessionRepo) Create(ctx context.Context, session domain.VerificationSession, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := SessionModel{
		ExchangeID: session.ExchangeID,
		Status:     string(session.Status),
		Requestor:  session.Requestor,
		CreatedAt:  session.CreatedAt.UTC(),
		ExpiresAt:  session.ExpiresAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("%w: create session: %v", domain.ErrDependency, err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, exchangeID string) (*domain.VerificationSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := r.load(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	session := sessionFromModel(*m)
	return &session, nil
}

func (r *SessionRepo) MarkVerified(ctx context.Context, exchangeID string) (usecase.SessionTransition, error) {
	if err := ctx.Err(); err != nil {
		return usecase.SessionTransition{}, err
	}
	res := r.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("exchange_id = ? AND status = ? AND expires_at > ?",
			exchangeID, string(domain.SessionRequestSent), r.clock().UTC()).
		Update("status", string(domain.SessionVerifiedAndLogged))
	if res.Error != nil {
		return usecase.SessionTransition{}, fmt.Errorf("%w: mark session verified: %v", domain.ErrDependency, res.Error)
	}

	m, err := r.load(ctx, exchangeID)
	if err != nil {
		return usecase.SessionTransition{}, err
	}
	return usecase.SessionTransition{
		Transitioned: res.RowsAffected == 1,
		Session:      sessionFromModel(*m),
	}, nil
}

// load maps absent and past-TTL rows to ErrNotFound; an expired session is
// gone for callers, matching the redis backend's TTL eviction.
func (r *SessionRepo) load(ctx context.Context, exchangeID string) (*SessionModel, error) {
	var m SessionModel
	err := r.db.WithContext(ctx).First(&m, "exchange_id = ?", exchangeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", domain.ErrDependency, err)
	}
	if !m.ExpiresAt.IsZero() && r.clock().UTC().After(m.ExpiresAt) {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func sessionFromModel(m SessionModel) domain.VerificationSession {
	return domain.VerificationSession{
		ExchangeID: m.ExchangeID,
		Status:     domain.SessionStatus(m.Status),
		Requestor:  m.Requestor,
		CreatedAt:  m.CreatedAt.UTC(),
		ExpiresAt:  m.ExpiresAt.UTC(),
	}
}

var _ usecase.SessionRepository = (*SessionRepo)(nil)
