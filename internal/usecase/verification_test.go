package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quorumd/internal/domain"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.VerificationSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]*domain.VerificationSession)}
}

func (s *memSessions) Create(_ context.Context, session domain.VerificationSession, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := session
	s.sessions[session.ExchangeID] = &stored
	return nil
}

func (s *memSessions) Get(_ context.Context, exchangeID string) (*domain.VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[exchangeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *session
	return &out, nil
}

func (s *memSessions) MarkVerified(_ context.Context, exchangeID string) (SessionTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[exchangeID]
	if !ok {
		return SessionTransition{}, domain.ErrNotFound
	}
	if session.Status != domain.SessionRequestSent {
		return SessionTransition{Transitioned: false, Session: *session}, nil
	}
	session.Status = domain.SessionVerifiedAndLogged
	return SessionTransition{Transitioned: true, Session: *session}, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	bodies  []domain.AuditBody
	err     error
	nextIdx int64
}

func (l *recordingAudit) Append(_ context.Context, body domain.AuditBody) (domain.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return domain.AuditEntry{}, l.err
	}
	l.bodies = append(l.bodies, body)
	l.nextIdx++
	return domain.AuditEntry{Index: l.nextIdx, Body: body}, nil
}

func (l *recordingAudit) Get(context.Context, int64) (domain.AuditEntry, error) {
	return domain.AuditEntry{}, domain.ErrNotFound
}

func (l *recordingAudit) Range(context.Context, int64, int64) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (l *recordingAudit) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bodies)
}

func drainAppends(t *testing.T, uc *Verification) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func TestVerificationOpenCreatesRequestSentSession(t *testing.T) {
	sessions := newMemSessions()
	uc := &Verification{Sessions: sessions, Audit: &recordingAudit{}, TTL: time.Minute}

	session, err := uc.Open(context.Background(), "holder-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if session.ExchangeID == "" {
		t.Fatal("exchange id not assigned")
	}
	if session.Status != domain.SessionRequestSent {
		t.Fatalf("status = %s, want REQUEST_SENT", session.Status)
	}
	if !session.ExpiresAt.Equal(session.CreatedAt.Add(time.Minute)) {
		t.Fatalf("expiry = %v, want created+1m", session.ExpiresAt)
	}
}

func TestVerificationDuplicateEventYieldsOneAuditEntry(t *testing.T) {
	sessions := newMemSessions()
	audit := &recordingAudit{}
	uc := &Verification{Sessions: sessions, Audit: audit, TTL: time.Minute}

	session, err := uc.Open(context.Background(), "holder-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	event := VerifiedEvent{ExchangeID: session.ExchangeID, Success: true, ContentHash: "abc"}

	first, err := uc.HandleVerifiedEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("first event: %v", err)
	}
	if !first.Logged {
		t.Fatalf("first delivery = %+v, want Logged", first)
	}
	second, err := uc.HandleVerifiedEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("second delivery = %+v, want Duplicate", second)
	}
	drainAppends(t, uc)
	if got := audit.count(); got != 1 {
		t.Fatalf("audit entries = %d, want exactly 1", got)
	}
	if audit.bodies[0].Kind != domain.AuditEventProofVerified {
		t.Fatalf("audit kind = %s, want proof_verified", audit.bodies[0].Kind)
	}
	if audit.bodies[0].Metadata["requestor"] != "holder-1" {
		t.Fatalf("audit metadata = %v, requestor missing", audit.bodies[0].Metadata)
	}
}

func TestVerificationConcurrentDeliveriesLogOnce(t *testing.T) {
	sessions := newMemSessions()
	audit := &recordingAudit{}
	uc := &Verification{Sessions: sessions, Audit: audit, TTL: time.Minute}

	session, err := uc.Open(context.Background(), "holder-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	event := VerifiedEvent{ExchangeID: session.ExchangeID, Success: true, ContentHash: "abc"}

	var wg sync.WaitGroup
	var logged, duplicate int64
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := uc.HandleVerifiedEvent(context.Background(), event)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if result.Logged {
				logged++
			}
			if result.Duplicate {
				duplicate++
			}
		}()
	}
	wg.Wait()
	drainAppends(t, uc)

	if logged != 1 {
		t.Fatalf("logged = %d, want exactly 1", logged)
	}
	if duplicate != 7 {
		t.Fatalf("duplicate = %d, want 7", duplicate)
	}
	if got := audit.count(); got != 1 {
		t.Fatalf("audit entries = %d, want exactly 1", got)
	}
}

func TestVerificationDropsEventWithoutSession(t *testing.T) {
	uc := &Verification{Sessions: newMemSessions(), Audit: &recordingAudit{}, TTL: time.Minute}
	result, err := uc.HandleVerifiedEvent(context.Background(), VerifiedEvent{ExchangeID: "unknown", Success: true})
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if !result.Dropped {
		t.Fatalf("result = %+v, want Dropped", result)
	}
}

func TestVerificationDropsNonSuccessEvent(t *testing.T) {
	sessions := newMemSessions()
	audit := &recordingAudit{}
	uc := &Verification{Sessions: sessions, Audit: audit, TTL: time.Minute}
	session, err := uc.Open(context.Background(), "holder-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	result, err := uc.HandleVerifiedEvent(context.Background(), VerifiedEvent{ExchangeID: session.ExchangeID, Success: false})
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if !result.Dropped {
		t.Fatalf("result = %+v, want Dropped", result)
	}
	if got := audit.count(); got != 0 {
		t.Fatalf("audit entries = %d, want 0", got)
	}
	stored, err := sessions.Get(context.Background(), session.ExchangeID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.SessionRequestSent {
		t.Fatalf("non-success event transitioned the session to %s", stored.Status)
	}
}

func TestVerificationAuditFailureNotifiesOperator(t *testing.T) {
	sessions := newMemSessions()
	audit := &recordingAudit{err: errors.New("backend down")}
	notifier := &recordingNotifier{}
	uc := &Verification{Sessions: sessions, Audit: audit, Notifier: notifier, TTL: time.Minute}

	session, err := uc.Open(context.Background(), "holder-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	result, err := uc.HandleVerifiedEvent(context.Background(), VerifiedEvent{ExchangeID: session.ExchangeID, Success: true})
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if !result.Logged {
		t.Fatalf("result = %+v, want Logged", result)
	}
	drainAppends(t, uc)
	if notifier.auditFails != 1 {
		t.Fatalf("audit failure notifications = %d, want 1", notifier.auditFails)
	}
}
