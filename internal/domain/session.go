package domain

import "time"

type SessionStatus string

const (
	SessionRequestSent       SessionStatus = "REQUEST_SENT"
	SessionVerifiedAndLogged SessionStatus = "VERIFIED_AND_LOGGED"
)

// VerificationSession correlates an outbound proof request with its
// eventual verified callback. Sessions are ephemeral: after the TTL the
// record is simply gone and late events have nothing to attach to.
type VerificationSession struct {
	ExchangeID string
	Status     SessionStatus
	Requestor  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
