package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quorumd/internal/domain"
	"quorumd/internal/infra/auth"
)

func (s *Server) requireAuth(c *gin.Context, permission string, allowAdminKey bool) (domain.Principal, bool) {
	if allowAdminKey && s.adminAPIKey != "" {
		if key := strings.TrimSpace(c.GetHeader("X-Admin-Key")); key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) == 1 {
				return domain.Principal{
					Subject: "admin-key",
					Roles:   []string{auth.DefaultAdminRole},
					Scopes:  []string{auth.DefaultAdminScope},
				}, true
			}
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
			return domain.Principal{}, false
		}
	}

	principal := s.authenticator.Authenticate(c)
	if err := s.authorizer.Require(principal, permission); err != nil {
		writeAuthzError(c, err)
		return domain.Principal{}, false
	}
	return principal, true
}

func writeAuthzError(c *gin.Context, err error) {
	if authz, ok := auth.IsAuthzError(err); ok {
		writeErrorCode(c, http.StatusForbidden, authz.Code, "forbidden")
		return
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}
	writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
}
