// Package middleware provides HTTP middleware components.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"distripos/internal/core/apperror"
	"distripos/internal/infrastructure/http/v1/dto"
	"distripos/pkg/logger"
)

// Recovery turns a panic into a 500. It runs outside ErrorHandler, so it
// renders the body itself. A panicking request never leaves its idempotency
// key pending: the key is released and the client may retry.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}

			logger.Error(c.Request.Context(), "panic recovered",
				"panic", p,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)

			body := dto.ErrorResponse{
				Code:    apperror.CodeInternal,
				Message: "Internal server error",
				Details: map[string]any{"request_id": c.GetString("request_id")},
			}
			failIdempotency(c, http.StatusInternalServerError, body)
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, body)
				return
			}
			c.Abort()
		}()
		c.Next()
	}
}
