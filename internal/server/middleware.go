package server

import (
	"errors"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/parcella/internal/auth/domain"
	"github.com/smallbiznis/parcella/internal/authcontext"
	obscontext "github.com/smallbiznis/parcella/internal/observability/context"
)

// SessionRequired resolves the session token into a principal and stores it in the
// request context. Handlers and services read identity only from there.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		authed, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			if isStaleSession(err) {
				s.sessions.Clear(c)
			}
			AbortWithError(c, err)
			return
		}

		principal := authcontext.Principal{
			UserID:    authed.User.ID,
			SessionID: authed.Session.ID,
			Role:      authed.User.Role,
			Email:     authed.User.Email,
		}

		ctx := authcontext.WithPrincipal(c.Request.Context(), principal)
		ctx = obscontext.WithActor(ctx, principal.Role, principal.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func isStaleSession(err error) bool {
	return errors.Is(err, authdomain.ErrInvalidSession) ||
		errors.Is(err, authdomain.ErrSessionNotFound) ||
		errors.Is(err, authdomain.ErrSessionExpired) ||
		errors.Is(err, authdomain.ErrSessionRevoked)
}
