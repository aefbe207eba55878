package auth

import (
	"errors"
	"strings"

	"quorumd/internal/domain"
)

const (
	DefaultAdminRole  = "quorum_admin"
	DefaultAdminScope = "admin:*"
)

// Permissions checked by the API layer.
const (
	PermProposalsCreate = "proposals:create"
	PermProposalsRead   = "proposals:read"
	PermSessionsOpen    = "sessions:open"
	PermSessionsRead    = "sessions:read"
	PermEventsIngest    = "events:ingest"
	PermAuditRead       = "audit:read"
	PermAdminRetry      = "admin:retry"
	PermAdminValidators = "admin:validators"
)

type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}

// Authorizer grants admin:* to holders of the admin role or scope and
// everything else by explicit scope.
type Authorizer struct {
	adminRole  string
	adminScope string
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{adminRole: DefaultAdminRole, adminScope: DefaultAdminScope}
}

func (a *Authorizer) Require(principal domain.Principal, permission string) error {
	if principal.Subject == "" {
		return domain.ErrUnauthorized
	}
	if permission == "" {
		return nil
	}
	if a.hasAdmin(principal) {
		return nil
	}
	if strings.HasPrefix(permission, "admin:") {
		return &AuthzError{Code: "MISSING_ROLE", Err: domain.ErrForbidden}
	}
	if !hasScope(principal, permission) {
		return &AuthzError{Code: "MISSING_SCOPE", Err: domain.ErrForbidden}
	}
	return nil
}

func (a *Authorizer) hasAdmin(principal domain.Principal) bool {
	for _, r := range principal.Roles {
		if r == a.adminRole {
			return true
		}
	}
	return hasScope(principal, a.adminScope)
}

func hasScope(principal domain.Principal, scope string) bool {
	if scope == "" {
		return false
	}
	for _, s := range principal.Scopes {
		if s == scope || s == DefaultAdminScope {
			return true
		}
	}
	return false
}
