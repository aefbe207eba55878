package domain

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyFinalized = errors.New("proposal already finalized")
	ErrDuplicateVote    = errors.New("duplicate vote")
	ErrUnknownValidator = errors.New("unknown validator")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrDependency       = errors.New("dependency call failed")
)
