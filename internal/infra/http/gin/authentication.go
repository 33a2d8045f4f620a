package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	domainuser "idpsupport/internal/domain/user"
	"idpsupport/internal/infra/security"
)

const principalKey = "idpsupport.principal"

// principal is the authenticated identity attached to a request. Accounts
// live in the identity service; the token is all this service sees.
type principal struct {
	ID        domainuser.ID
	Role      domainuser.Role
	FirstName string
	LastName  string
}

func (p principal) is(role domainuser.Role) bool {
	return role != "" && strings.EqualFold(string(p.Role), string(role))
}

// AuthMiddleware turns a valid bearer token into a request principal.
// Requests without one pass through anonymously and are stopped per-route
// by requireRole.
type AuthMiddleware struct {
	Verifier security.TokenVerifier
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	raw := bearerToken(c.GetHeader("Authorization"))
	if raw == "" {
		c.Next()
		return
	}
	claims, err := m.Verifier.Verify(raw)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("bearer token rejected", "error", err)
		}
		c.Next()
		return
	}
	c.Set(principalKey, principal{
		ID:        domainuser.ID(claims.Subject),
		Role:      domainuser.Role(claims.Role),
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	})
	c.Next()
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	p, ok := c.Get(principalKey)
	if !ok {
		return principal{}, false
	}
	pr, ok := p.(principal)
	return pr, ok
}

// requireRole aborts with 401 for anonymous requests and 403 when a role is
// demanded the principal does not hold. An empty role means any
// authenticated identity.
func requireRole(c *gin.Context, role domainuser.Role) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return principal{}, false
	}
	if role != "" && !p.is(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return principal{}, false
	}
	return p, true
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
