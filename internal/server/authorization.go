package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// actingUserID is the caller's own account. Admin tokens carry none.
func actingUserID(c *gin.Context) (snowflake.ID, bool) {
	principal, ok := principalFromContext(c)
	if !ok || principal.IsAdmin() || principal.UserID == 0 {
		return 0, false
	}
	return principal.UserID, true
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id == 0 {
		return 0, newValidationError(name, "invalid_id", "invalid id")
	}
	return id, nil
}

func bodyID(field, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, newValidationError(field, "invalid_id", "invalid id")
	}
	return id, nil
}
