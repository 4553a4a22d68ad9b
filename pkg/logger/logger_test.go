package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
)

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	l, err := New(Config{Level: "loud", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	assert.True(t, l.Desugar().Core().Enabled(0))
	assert.False(t, l.Desugar().Core().Enabled(-1), "debug must be disabled")
}

func TestFromEnv(t *testing.T) {
	assert.False(t, FromEnv("production", "info").Development)
	assert.True(t, FromEnv("development", "debug").Development)
}

func TestFromContext_UsesStoredLogger(t *testing.T) {
	ctx := WithLogger(context.Background(), Nop())
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: id.New(), TenantID: id.New(), RoleName: "ADMIN"})
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())

	assert.NotPanics(t, func() {
		Info(ctx, "hello", "k", "v")
		Warn(ctx, "careful")
	})
}
