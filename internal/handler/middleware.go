package handler

import (
	"auth_gateway/internal/auth"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxEmailKey     = "email"
	ctxRequestIDKey = "request_id"
)

// AuthMiddleware rejects the request with 401 unless the Authorization header
// carries a valid token, and stores the token's email for the next handlers.
// It never touches a store.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.TokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			newErrorResponse(c, http.StatusUnauthorized, "Token is missing!")

			return
		}

		email, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				newErrorResponse(c, http.StatusUnauthorized, "Token has expired!")

				return
			}

			newErrorResponse(c, http.StatusUnauthorized, "Token is invalid!")

			return
		}

		c.Set(ctxEmailKey, email)

		c.Next()
	}
}

// CurrentUser returns the email set by AuthMiddleware.
func CurrentUser(c *gin.Context) string {
	return c.GetString(ctxEmailKey)
}

// RequestID returns the id assigned by RequestLogger.
func RequestID(c *gin.Context) string {
	return c.GetString(ctxRequestIDKey)
}

// RequestLogger assigns a request id (reusing an incoming X-Request-ID) and
// logs one line per request once it completes.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestIDKey, id)
		c.Header(requestIDHeader, id)

		c.Next()

		attrs := []any{
			slog.String("request_id", id),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		}
		if email := CurrentUser(c); email != "" {
			attrs = append(attrs, slog.String("user", email))
		}

		log.Info("request completed", attrs...)
	}
}
