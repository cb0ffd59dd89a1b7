package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const callerKey = "callerID"

// requestLogger emits one structured line per request.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := h.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   status,
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// identify resolves an optional bearer token into the caller id.
// Requests without an Authorization header pass through anonymously.
func (h *Handler) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, MessageResponse{Message: "Invalid authorization header format"})
			return
		}

		claims, err := h.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			h.logger.WithError(err).Debug("rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, MessageResponse{Message: "Invalid or expired token"})
			return
		}

		c.Set(callerKey, claims.Subject)
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	return c.GetString(callerKey)
}

// sameID compares ids by value, so any accepted uuid spelling of the caller matches.
func sameID(a, b string) bool {
	pa, err := uuid.Parse(a)
	if err != nil {
		return false
	}
	pb, err := uuid.Parse(b)
	if err != nil {
		return false
	}
	return pa == pb
}

// WithCORS wraps the router with the configured cross-origin policy.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:         600,
	}).Handler(next)
}
