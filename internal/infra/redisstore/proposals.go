package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quorumd/internal/domain"
	"quorumd/internal/usecase"
)

// ProposalStore keeps proposals in redis so every service replica votes
// against the same record. The vote merge runs as one Lua script: redis
// executes scripts serially, which makes the duplicate check, the set add
// and the threshold transition a single atomic step. Record expiry is
// redis TTL; an expired proposal is simply absent.
type ProposalStore struct {
	client *redis.Client
}

func NewProposalStore(client *redis.Client) (*ProposalStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &ProposalStore{client: client}, nil
}

func proposalKey(id string) string {
	return "proposal:" + id
}

func approvalsKey(id string) string {
	return "proposal:" + id + ":approvals"
}

var voteScript = redis.NewScript(`
local status = redis.call("HGET", KEYS[1], "status")
if not status then
  return {-1, 0}
end
if status ~= "PENDING" then
  return {-2, 0}
end
if redis.call("SISMEMBER", KEYS[2], ARGV[1]) == 1 then
  return {-3, redis.call("SCARD", KEYS[2])}
end
redis.call("SADD", KEYS[2], ARGV[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[2], ttl)
end
local count = redis.call("SCARD", KEYS[2])
if count >= tonumber(ARGV[2]) then
  redis.call("HSET", KEYS[1], "status", "EXECUTED")
  return {1, count}
end
return {0, count}
`)

func (s *ProposalStore) Create(ctx context.Context, proposal domain.Proposal, ttl time.Duration) error {
	payload := proposal.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`null`)
	}
	fields := map[string]any{
		"action":     string(proposal.Action),
		"payload":    string(payload),
		"requestor":  proposal.Requestor,
		"status":     string(proposal.Status),
		"created_at": proposal.CreatedAt.UTC().Format(time.RFC3339Nano),
		"expires_at": proposal.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, proposalKey(proposal.ID), fields)
	if ttl > 0 {
		pipe.PExpire(ctx, proposalKey(proposal.ID), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis create proposal: %w", err)
	}
	return nil
}

func (s *ProposalStore) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	fields, err := s.client.HGetAll(ctx, proposalKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get proposal: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	approvals, err := s.client.SMembers(ctx, approvalsKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get approvals: %w", err)
	}
	return buildProposal(id, fields, approvals)
}

func (s *ProposalStore) AddApproval(ctx context.Context, proposalID, validatorID string, threshold int) (usecase.VoteOutcome, error) {
	keys := []string{proposalKey(proposalID), approvalsKey(proposalID)}
	result, err := voteScript.Run(ctx, s.client, keys, validatorID, threshold).Result()
	if err != nil {
		return usecase.VoteOutcome{}, fmt.Errorf("redis vote script: %w", err)
	}
	values, ok := result.([]any)
	if !ok || len(values) < 2 {
		return usecase.VoteOutcome{}, errors.New("unexpected redis vote response")
	}
	code, _ := values[0].(int64)
	switch code {
	case -1:
		return usecase.VoteOutcome{}, domain.ErrNotFound
	case -2:
		return usecase.VoteOutcome{}, domain.ErrAlreadyFinalized
	case -3:
		return usecase.VoteOutcome{}, domain.ErrDuplicateVote
	}

	proposal, err := s.Get(ctx, proposalID)
	if err != nil {
		return usecase.VoteOutcome{}, err
	}
	return usecase.VoteOutcome{
		Proposal:    *proposal,
		ExecutedNow: code == 1,
	}, nil
}

func buildProposal(id string, fields map[string]string, approvals []string) (*domain.Proposal, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &domain.Proposal{
		ID:        id,
		Action:    domain.ActionKind(fields["action"]),
		Payload:   json.RawMessage(fields["payload"]),
		Requestor: fields["requestor"],
		Approvals: approvals,
		Status:    domain.ProposalStatus(fields["status"]),
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

var _ usecase.ProposalRepository = (*ProposalStore)(nil)
