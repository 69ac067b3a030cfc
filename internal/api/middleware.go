package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RichardoC/padchat/internal/auth"
	"github.com/RichardoC/padchat/internal/metrics"
	"github.com/RichardoC/padchat/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userContextKey = "user"

// AuthMiddleware rejects requests without a valid bearer token and stores the caller on the context.
func AuthMiddleware(authenticator *auth.Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			logger.Warn("unauthenticated request",
				zap.String("path", c.FullPath()),
				zap.String("method", c.Request.Method))
			abortUnauthorized(c)
			return
		}

		user, err := authenticator.Authenticate(token)
		if err != nil {
			logger.Warn("token validation failed", zap.Error(err))
			abortUnauthorized(c)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "You must be logged in to access this resource"})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// currentUser returns nil when no identity was attached.
func currentUser(c *gin.Context) *models.User {
	val, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := val.(*models.User)
	return user
}

// RequestLogger writes one access log entry per request and records request metrics.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency))
	}
}
