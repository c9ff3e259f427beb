package server

import (
	"github.com/gin-gonic/gin"
	keystonedomain "github.com/neilfarmer/mopenstack/internal/keystone/domain"
)

const identityContextKey = "mopenstack.identity"

// identity is the authenticated caller attached to the request context by
// the token middleware.
type identity struct {
	UserID    string
	Username  string
	DomainID  string
	ProjectID string
}

// requireToken validates the X-Auth-Token header against the identity
// service. Any failure is a 401; the reason is not disclosed.
func requireToken(identitySvc keystonedomain.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Auth-Token")
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		intro, err := identitySvc.Introspect(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(identityContextKey, identity{
			UserID:    intro.User.ID,
			Username:  intro.User.Name,
			DomainID:  intro.User.DomainID,
			ProjectID: intro.Claims.ProjectID,
		})
		c.Next()
	}
}

func callerIdentity(c *gin.Context) identity {
	if v, ok := c.Get(identityContextKey); ok {
		if id, ok := v.(identity); ok {
			return id
		}
	}
	return identity{}
}
