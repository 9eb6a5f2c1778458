package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradesmap/internal/account/session"
	obscontext "github.com/smallbiznis/tradesmap/internal/observability/context"
	"github.com/smallbiznis/tradesmap/internal/observability/logger"
	"go.uber.org/zap"
)

const contextSessionKey = "session"

// SessionRequired attaches the caller's session, starting a new one when the
// cookie is missing or stale.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *session.Session
		if sid, ok := s.cookies.Read(c); ok {
			sess, _ = s.sessions.Get(sid)
		}
		if sess == nil {
			sess = s.sessions.Create()
			s.cookies.Set(c, sess.ID())
		}

		ctx := obscontext.WithSessionID(c.Request.Context(), sess.ID())
		if identity := sess.Identity(); identity != nil {
			ctx = obscontext.WithUID(ctx, identity.UID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextSessionKey, sess)
		c.Next()
	}
}

func sessionFromContext(c *gin.Context) *session.Session {
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return nil
	}
	sess, _ := value.(*session.Session)
	return sess
}

// SignInRateLimit throttles credential attempts per client address.
func (s *Server) SignInRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.limiter.AllowSignIn(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("sign-in rate limit check failed", zap.Error(err))
		}
		if res != nil && !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
