package http

import (
	"context"
	nethttp "net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/studyhall/server/internal/adapters/signal"
	"github.com/studyhall/server/internal/auth"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
)

const (
	tokenHeader     = "x-auth-token"
	sessionUserID   = "user_id"
	sessionUserName = "user_name"
)

type authenticator struct {
	verifier *auth.Verifier
	users    core.UserStore
	names    NameCache
}

func bearer(c *gin.Context) string {
	if tok := c.GetHeader(tokenHeader); tok != "" {
		return tok
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// requireToken rejects requests without a valid token. A verified user is
// remembered in the cookie session so the websocket upgrade can pick it up.
func (a *authenticator) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.verifier.Verify(bearer(c))
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.http").Msg("token rejected")
			c.AbortWithStatusJSON(nethttp.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		a.remember(c, user)
		c.Set(signal.AuthUserKey, user)
		c.Next()
	}
}

// sessionUser attaches the user from a token or from the cookie session when
// either is present. Anonymous requests pass through.
func (a *authenticator) sessionUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearer(c); raw != "" {
			if user, err := a.verifier.Verify(raw); err == nil {
				a.remember(c, user)
				c.Set(signal.AuthUserKey, user)
				c.Next()
				return
			}
		}
		s := sessions.Default(c)
		if id, ok := s.Get(sessionUserID).(string); ok && id != "" {
			name, _ := s.Get(sessionUserName).(string)
			c.Set(signal.AuthUserKey, &domain.User{ID: domain.UserID(id), Username: name})
		}
		c.Next()
	}
}

func (a *authenticator) remember(c *gin.Context, user *domain.User) {
	s := sessions.Default(c)
	if s.Get(sessionUserID) != string(user.ID) || s.Get(sessionUserName) != user.Username {
		s.Set(sessionUserID, string(user.ID))
		s.Set(sessionUserName, user.Username)
		if err := s.Save(); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
		}
	}
	if user.Username == "" || a.users == nil {
		return
	}
	if err := a.users.PutUser(context.WithoutCancel(c.Request.Context()), *user); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Str("user", string(user.ID)).Msg("user replica not updated")
		return
	}
	if a.names != nil {
		a.names.Forget(user.ID)
	}
}
