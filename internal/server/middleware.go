package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	identitydomain "github.com/smallbiznis/rondo/internal/identity/domain"
	obscontext "github.com/smallbiznis/rondo/internal/observability/context"
)

const (
	headerUserID     = "X-User-Id"
	headerUserName   = "X-User-Name"
	headerUserEmail  = "X-User-Email"
	headerUserAvatar = "X-User-Avatar"

	ctxUserIDKey = "user_id"
)

// IdentityRequired trusts the identity headers set by the upstream gateway.
// It refreshes the caller's profile snapshot and binds the user id to the
// request context.
func (s *Server) IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerUserID))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		profile := identitydomain.Profile{
			ID:        userID,
			Name:      c.GetHeader(headerUserName),
			Email:     c.GetHeader(headerUserEmail),
			AvatarURL: c.GetHeader(headerUserAvatar),
		}
		if _, err := s.identitySvc.Ensure(c.Request.Context(), profile); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(ctxUserIDKey, userID)
		ctx := obscontext.WithUserID(c.Request.Context(), userID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func currentUserID(c *gin.Context) (snowflake.ID, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(snowflake.ID)
	return id, ok
}
