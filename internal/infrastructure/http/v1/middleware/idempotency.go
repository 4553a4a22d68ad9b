package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"distripos/internal/core/apperror"
	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
	"distripos/internal/infrastructure/storage/postgres"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
)

// IdempotencyStore is the subset of postgres.IdempotencyStore used here.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, tenantID id.ID, key string, userID id.ID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, tenantID id.ID, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, tenantID id.ID, key string, statusCode int, contentType string, response any) error
	ReleaseKey(ctx context.Context, tenantID id.ID, key string) error
}

// Idempotency middleware protects mutating requests carrying
// X-Idempotency-Key. Keys are scoped to the caller's tenant. Must run after Auth.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch &&
			c.Request.Method != http.MethodDelete {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > 128 {
			_ = c.Error(apperror.NewValidation("idempotency key is too long").WithDetail("max_length", 128))
			c.Abort()
			return
		}

		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		// Multipart uploads are hashed like any other body.
		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.AcquireKey(c.Request.Context(), user.TenantID, key, user.UserID, operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
				c.Abort()
				return
			}
			_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("X-Idempotent-Replay", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyStore, store)

		c.Next()
	}
}

// CompleteIdempotency stores the successful response for replay. It is a
// no-op when the request carried no key.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	finishIdempotency(c, statusCode, contentType, response, false)
}

func failIdempotency(c *gin.Context, statusCode int, response any) {
	finishIdempotency(c, statusCode, "application/json", response, true)
}

func finishIdempotency(c *gin.Context, statusCode int, contentType string, response any, failed bool) {
	key, ok := c.Get(ctxIdempotencyKey)
	if !ok {
		return
	}
	v, ok := c.Get(ctxIdempotencyStore)
	if !ok {
		return
	}
	store, ok := v.(IdempotencyStore)
	if !ok || store == nil {
		return
	}
	tenantID := appctx.GetTenantID(c.Request.Context())

	if failed && statusCode >= http.StatusInternalServerError {
		_ = store.ReleaseKey(c.Request.Context(), tenantID, key.(string))
		return
	}
	if failed {
		_ = store.FailKey(c.Request.Context(), tenantID, key.(string), statusCode, contentType, response)
		return
	}
	_ = store.CompleteKey(c.Request.Context(), tenantID, key.(string), statusCode, contentType, response)
}
