package domain

type Principal struct {
	Subject string
	Roles   []string
	Scopes  []string
}

// Authorizer decides whether an externally-authenticated principal may
// perform an operation. The engine performs no identity verification of
// its own; the principal claim is trusted as supplied.
type Authorizer interface {
	Require(principal Principal, permission string) error
}
