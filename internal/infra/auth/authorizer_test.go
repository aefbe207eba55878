package auth

import (
	"errors"
	"testing"

	"quorumd/internal/domain"
)

func TestRequireRejectsAnonymous(t *testing.T) {
	authorizer := NewAuthorizer()
	err := authorizer.Require(domain.Principal{}, PermProposalsCreate)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestRequireGrantsByScope(t *testing.T) {
	authorizer := NewAuthorizer()
	principal := domain.Principal{Subject: "alice", Scopes: []string{PermProposalsCreate}}
	if err := authorizer.Require(principal, PermProposalsCreate); err != nil {
		t.Fatalf("scoped principal denied: %v", err)
	}
	err := authorizer.Require(principal, PermAuditRead)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	if authz, ok := IsAuthzError(err); !ok || authz.Code != "MISSING_SCOPE" {
		t.Fatalf("authz code = %v", err)
	}
}

func TestRequireAdminRoleGrantsEverything(t *testing.T) {
	authorizer := NewAuthorizer()
	principal := domain.Principal{Subject: "root", Roles: []string{DefaultAdminRole}}
	for _, perm := range []string{PermProposalsCreate, PermAuditRead, PermAdminRetry, PermAdminValidators} {
		if err := authorizer.Require(principal, perm); err != nil {
			t.Fatalf("admin denied %s: %v", perm, err)
		}
	}
}

func TestRequireAdminScopeGrantsEverything(t *testing.T) {
	authorizer := NewAuthorizer()
	principal := domain.Principal{Subject: "svc", Scopes: []string{DefaultAdminScope}}
	if err := authorizer.Require(principal, PermAdminRetry); err != nil {
		t.Fatalf("admin scope denied: %v", err)
	}
}

func TestRequireAdminPermNeedsAdmin(t *testing.T) {
	authorizer := NewAuthorizer()
	principal := domain.Principal{Subject: "alice", Scopes: []string{PermProposalsCreate, PermAuditRead}}
	err := authorizer.Require(principal, PermAdminRetry)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	if authz, ok := IsAuthzError(err); !ok || authz.Code != "MISSING_ROLE" {
		t.Fatalf("authz code = %v", err)
	}
}
