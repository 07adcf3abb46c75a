package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// Identity is the authenticated caller as seen by handlers.
type Identity interface {
	Subject() string
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	subject string
	roles   []string
}

func (i identity) Subject() string          { return i.subject }
func (i identity) Roles() []string          { return i.roles }
func (i identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }
func (i identity) IsAuthenticated() bool    { return i.subject != "" }

// GetIdentity reads what AuthRequired stored on the context. It returns an
// unauthenticated identity when the middleware did not run.
func GetIdentity(c *gin.Context) Identity {
	id := identity{}
	if v, ok := c.Get(ContextSubjectKey); ok {
		id.subject, _ = v.(string)
	}
	if v, ok := c.Get(ContextRolesKey); ok {
		id.roles, _ = v.([]string)
	}
	return id
}
