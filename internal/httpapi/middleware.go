package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imageAnnotation/internal/auth"
)

const (
	requestIDKey = "request_id"
	principalKey = "principal"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// accessLog logs one record per request. The query string is left out since
// image URLs carry the token there.
func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if p, ok := auth.FromContext(c.Request.Context()); ok {
			attrs = append(attrs, "user", p.Username)
		}
		logger.InfoContext(c.Request.Context(), "http request", attrs...)
	}
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.Error("panic recovered", "request_id", c.GetString(requestIDKey), "panic", rec)
		abortMessage(c, http.StatusInternalServerError, "Internal server error")
	})
}

// cors allows the configured origins only.
func cors(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requireToken authenticates with the Authorization header.
func requireToken(secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := auth.ParseFromHeader(c.GetHeader("Authorization"), secret)
		authenticate(c, p, err, logger)
	}
}

// queryToken authenticates with the token query parameter.
func queryToken(secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := auth.ParseFromQuery(c.Query("token"), secret)
		authenticate(c, p, err, logger)
	}
}

func authenticate(c *gin.Context, p *auth.Principal, err error, logger *slog.Logger) {
	if err != nil {
		cause := "unknown"
		switch {
		case errors.Is(err, auth.ErrTokenMissing):
			cause = "missing"
		case errors.Is(err, auth.ErrTokenExpired):
			cause = "expired"
		case errors.Is(err, auth.ErrTokenSignature):
			cause = "signature"
		case errors.Is(err, auth.ErrTokenMalformed):
			cause = "malformed"
		}
		logger.Debug("token rejected", "request_id", c.GetString(requestIDKey), "cause", cause, "error", err)
		status, msg := errorStatus(err)
		abortMessage(c, status, msg)
		return
	}
	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
	c.Next()
}
