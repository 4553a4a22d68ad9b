package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	user := &appctx.UserContext{
		UserID:      id.New(),
		TenantID:    id.New(),
		Email:       "a@b.test",
		RoleKind:    appctx.RoleKindDynamic,
		RoleName:    "Cajero",
		Permissions: []string{"vta:acceso", "vta:cobrar"},
		SessionID:   id.New().String(),
	}

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestJWTRejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	user := &appctx.UserContext{UserID: id.New(), TenantID: id.New()}
	token, _, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	other := NewJWTService(DefaultJWTConfig("another"))
	_, err = other.ValidateToken(token)
	assert.Error(t, err, "wrong secret")

	cfg := DefaultJWTConfig("secret")
	cfg.Issuer = "someone-else"
	_, err = NewJWTService(cfg).ValidateToken(token)
	assert.Error(t, err, "wrong issuer")

	expired := NewJWTService(DefaultJWTConfig("secret"))
	expired.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = expired.ValidateToken(token)
	assert.Error(t, err, "expired")

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
