package govmem

import (
	"context"
	"sync"
	"time"

	"quorumd/internal/domain"
	"quorumd/internal/usecase"
)

// SessionStore is the in-memory verification-session tracker. MarkVerified
// is a single mutex-guarded step, so exactly one caller per exchange id
// ever observes the transition.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.VerificationSession
	clock    func() time.Time
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(nil)
}

func NewSessionStoreWithClock(clock func() time.Time) *SessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]*domain.VerificationSession),
		clock:    clock,
	}
}

func (s *SessionStore) Create(ctx context.Context, session domain.VerificationSession, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ExchangeID]; ok {
		return domain.ErrInvalidRequest
	}
	stored := session
	s.sessions[session.ExchangeID] = &stored
	return nil
}

func (s *SessionStore) Get(ctx context.Context, exchangeID string) (*domain.VerificationSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.live(exchangeID)
	if session == nil {
		return nil, domain.ErrNotFound
	}
	out := *session
	return &out, nil
}

func (s *SessionStore) MarkVerified(ctx context.Context, exchangeID string) (usecase.SessionTransition, error) {
	if err := ctx.Err(); err != nil {
		return usecase.SessionTransition{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.live(exchangeID)
	if session == nil {
		return usecase.SessionTransition{}, domain.ErrNotFound
	}
	if session.Status != domain.SessionRequestSent {
		return usecase.SessionTransition{Transitioned: false, Session: *session}, nil
	}
	session.Status = domain.SessionVerifiedAndLogged
	return usecase.SessionTransition{Transitioned: true, Session: *session}, nil
}

func (s *SessionStore) live(exchangeID string) *domain.VerificationSession {
	session, ok := s.sessions[exchangeID]
	if !ok {
		return nil
	}
	if !session.ExpiresAt.IsZero() && s.clock().After(session.ExpiresAt) {
		delete(s.sessions, exchangeID)
		return nil
	}
	return session
}

var _ usecase.SessionRepository = (*SessionStore)(nil)
