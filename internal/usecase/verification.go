package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"quorumd/internal/domain"
)

type VerifiedEvent struct {
	ExchangeID  string
	Success     bool
	ContentHash string
	Metadata    map[string]string
}

// EventResult reports how a verified callback was absorbed. Exactly one of
// the fields is true: Logged for the first successful delivery, Duplicate
// for redelivery after the transition, Dropped when there was no live
// session to correlate the event to (a recoverable, non-fatal condition).
type EventResult struct {
	Logged    bool
	Duplicate bool
	Dropped   bool
}

// Verification tracks proof-request sessions and turns their verified
// callbacks into audit entries. The session's atomic state transition is
// the sole idempotency gate: duplicate delivery of the same event can
// never produce two audit entries.
type Verification struct {
	Sessions SessionRepository
	Audit    domain.AuditLog
	Notifier domain.OperatorNotifier

	TTL           time.Duration
	AppendTimeout time.Duration
	Clock         Clock

	appends sync.WaitGroup
}

func (uc *Verification) Open(ctx context.Context, requestor string) (domain.VerificationSession, error) {
	if requestor == "" {
		return domain.VerificationSession{}, domain.ErrUnauthorized
	}
	now := uc.now()
	session := domain.VerificationSession{
		ExchangeID: uuid.NewString(),
		Status:     domain.SessionRequestSent,
		Requestor:  requestor,
		CreatedAt:  now,
		ExpiresAt:  now.Add(uc.ttl()),
	}
	if err := uc.Sessions.Create(ctx, session, uc.ttl()); err != nil {
		return domain.VerificationSession{}, err
	}
	return session, nil
}

func (uc *Verification) Get(ctx context.Context, exchangeID string) (*domain.VerificationSession, error) {
	if exchangeID == "" {
		return nil, domain.ErrInvalidRequest
	}
	return uc.Sessions.Get(ctx, exchangeID)
}

// HandleVerifiedEvent absorbs an external "verified" callback. Only a
// success event transitions the session; the audit append runs as a
// tracked asynchronous task so a slow audit backend cannot block the
// callback path, and Drain can wait for it at shutdown.
func (uc *Verification) HandleVerifiedEvent(ctx context.Context, event VerifiedEvent) (EventResult, error) {
	if event.ExchangeID == "" {
		return EventResult{}, domain.ErrInvalidRequest
	}
	if !event.Success {
		return EventResult{Dropped: true}, nil
	}
	transition, err := uc.Sessions.MarkVerified(ctx, event.ExchangeID)
	if errors.Is(err, domain.ErrNotFound) {
		return EventResult{Dropped: true}, nil
	}
	if err != nil {
		return EventResult{}, err
	}
	if !transition.Transitioned {
		return EventResult{Duplicate: true}, nil
	}

	uc.appends.Add(1)
	go uc.appendAudit(event, transition.Session)
	return EventResult{Logged: true}, nil
}

func (uc *Verification) appendAudit(event VerifiedEvent, session domain.VerificationSession) {
	defer uc.appends.Done()
	timeout := uc.AppendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	body := domain.AuditBody{
		Kind:        domain.AuditEventProofVerified,
		ExchangeID:  event.ExchangeID,
		ContentHash: event.ContentHash,
		Metadata:    event.Metadata,
	}
	if body.Metadata == nil {
		body.Metadata = map[string]string{}
	}
	body.Metadata["requestor"] = session.Requestor
	if _, err := uc.Audit.Append(ctx, body); err != nil && uc.Notifier != nil {
		uc.Notifier.AuditAppendFailed(event.ExchangeID, err)
	}
}

// Drain blocks until in-flight audit appends finish or ctx expires. Called
// on shutdown so already-verified events are not lost from the trail.
func (uc *Verification) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.appends.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (uc *Verification) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock().UTC()
	}
	return time.Now().UTC()
}

func (uc *Verification) ttl() time.Duration {
	if uc.TTL > 0 {
		return uc.TTL
	}
	return time.Hour
}
