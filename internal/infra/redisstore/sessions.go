package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quorumd/internal/domain"
	"quorumd/internal/usecase"
)

// SessionStore keeps verification sessions in redis under their TTL. The
// verified transition is a Lua script, so exactly one delivery of the
// event observes REQUEST_SENT even across replicas.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) (*SessionStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &SessionStore{client: client}, nil
}

func sessionKey(exchangeID string) string {
	return "verification:" + exchangeID
}

var markVerifiedScript = redis.NewScript(`
local status = redis.call("HGET", KEYS[1], "status")
if not status then
  return -1
end
if status ~= "REQUEST_SENT" then
  return 0
end
redis.call("HSET", KEYS[1], "status", "VERIFIED_AND_LOGGED")
return 1
`)

func (s *SessionStore) Create(ctx context.Context, session domain.VerificationSession, ttl time.Duration) error {
	fields := map[string]any{
		"status":     string(session.Status),
		"requestor":  session.Requestor,
		"created_at": session.CreatedAt.UTC().Format(time.RFC3339Nano),
		"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(session.ExchangeID), fields)
	if ttl > 0 {
		pipe.PExpire(ctx, sessionKey(session.ExchangeID), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, exchangeID string) (*domain.VerificationSession, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(exchangeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return buildSession(exchangeID, fields)
}

func (s *SessionStore) MarkVerified(ctx context.Context, exchangeID string) (usecase.SessionTransition, error) {
	result, err := markVerifiedScript.Run(ctx, s.client, []string{sessionKey(exchangeID)}).Int64()
	if err != nil {
		return usecase.SessionTransition{}, fmt.Errorf("redis mark verified: %w", err)
	}
	if result == -1 {
		return usecase.SessionTransition{}, domain.ErrNotFound
	}
	session, err := s.Get(ctx, exchangeID)
	if err != nil {
		return usecase.SessionTransition{}, err
	}
	return usecase.SessionTransition{
		Transitioned: result == 1,
		Session:      *session,
	}, nil
}

func buildSession(exchangeID string, fields map[string]string) (*domain.VerificationSession, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &domain.VerificationSession{
		ExchangeID: exchangeID,
		Status:     domain.SessionStatus(fields["status"]),
		Requestor:  fields["requestor"],
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
	}, nil
}

var _ usecase.SessionRepository = (*SessionStore)(nil)
