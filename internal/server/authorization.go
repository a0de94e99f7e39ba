package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/parcella/internal/authcontext"
)

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeWithContext(c *gin.Context, object string, action string) error {
	if _, ok := authcontext.FromContext(c.Request.Context()); !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), strings.TrimSpace(object), strings.TrimSpace(action))
}
