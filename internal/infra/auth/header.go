package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"quorumd/internal/domain"
)

// HeaderAuthenticator reads the principal asserted by the fronting proxy.
// The engine does not verify identity itself; the deployment places an
// authenticating gateway in front of it.
type HeaderAuthenticator struct{}

func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{}
}

func (h *HeaderAuthenticator) Authenticate(c *gin.Context) domain.Principal {
	principal := domain.Principal{
		Subject: strings.TrimSpace(c.GetHeader("X-Principal-Subject")),
	}
	if roles := strings.TrimSpace(c.GetHeader("X-Principal-Roles")); roles != "" {
		principal.Roles = splitCSV(roles)
	}
	if scopes := strings.TrimSpace(c.GetHeader("X-Principal-Scopes")); scopes != "" {
		principal.Scopes = splitCSV(scopes)
	}
	return principal
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
