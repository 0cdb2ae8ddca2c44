package server

import (
	"crypto/subtle"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/venuebook/internal/observability/context"
	"go.uber.org/zap"
)

const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderManagerID = "X-Manager-Id"

	contextManagerIDKey = "manager_id"
	defaultManagerID    = "manager"
)

// ManagerAuth admits requests carrying the configured manager key and
// records the acting manager on the request context.
func (s *Server) ManagerAuth() gin.HandlerFunc {
	expected := []byte(s.cfg.ManagerAPIKey)
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderAPIKey))
		if key == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}
		if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(key), expected) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		managerID := strings.TrimSpace(c.GetHeader(HeaderManagerID))
		if managerID == "" {
			managerID = defaultManagerID
		}
		c.Set(contextManagerIDKey, managerID)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "manager", managerID))
		c.Next()
	}
}

func managerID(c *gin.Context) string {
	if v, ok := c.Get(contextManagerIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return defaultManagerID
}

// BookingRateLimit throttles booking creation per client IP. Limiter
// failures let the request through.
func (s *Server) BookingRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}
		res, err := s.limiter.AllowBooking(c.Request.Context(), c.ClientIP())
		if err != nil {
			s.log.Warn("booking rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
