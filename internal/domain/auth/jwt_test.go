package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	user := appctx.UserContext{
		UserID:    "u-1",
		Email:     "ops@acme.test",
		Role:      appctx.RoleDistributor,
		PartyKind: "distributor",
		PartyID:   id.New().String(),
	}

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user, *got)
}

func TestJWTService_AdminNeedsNoParty(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, _, err := svc.GenerateAccessToken(appctx.UserContext{UserID: "root", Role: appctx.RoleAdmin})
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
}

func TestJWTService_RejectsInvalidUsers(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	pid := id.New().String()

	tests := []struct {
		name string
		user appctx.UserContext
	}{
		{"no user id", appctx.UserContext{Role: appctx.RoleAdmin}},
		{"unknown role", appctx.UserContext{UserID: "u", Role: "auditor"}},
		{"role and party kind differ", appctx.UserContext{UserID: "u", Role: appctx.RoleManufacturer, PartyKind: "distributor", PartyID: pid}},
		{"bad party id", appctx.UserContext{UserID: "u", Role: appctx.RoleDistributor, PartyKind: "distributor", PartyID: "42"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.GenerateAccessToken(tt.user)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_RejectsBadTokens(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	user := appctx.UserContext{UserID: "root", Role: appctx.RoleAdmin}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(DefaultJWTConfig("other"))
		token, _, err := other.GenerateAccessToken(user)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewJWTService(DefaultJWTConfig("secret"))
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := old.GenerateAccessToken(user)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		cfg := DefaultJWTConfig("secret")
		cfg.Issuer = "someone-else"
		token, _, err := NewJWTService(cfg).GenerateAccessToken(user)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.Error(t, err)
	})
}
