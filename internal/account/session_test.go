package account

import (
	"context"
	"testing"
	"time"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/database"
	"review-funnel/internal/common/errors"
	"review-funnel/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*Sessions, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	cache := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	cfg := config.AuthConfig{
		SessionTTL: 60000,
		Operators: []config.OperatorConfig{
			{UserName: "admin", Password: "admin-pw", Role: "admin", FullName: "Admin User"},
			{UserName: "vendor", Password: "vendor-pw", Role: "vendor", ShopName: "Cafe Luna"},
		},
	}
	return NewSessions(cache, cfg, logger.NewNoOpLogger()), mr
}

func TestLoginIssuesToken(t *testing.T) {
	sessions, mr := newTestSessions(t)

	token, operator, err := sessions.Login(context.Background(), "admin", "admin-pw")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "admin", operator.Role)
	assert.True(t, mr.Exists(sessionKeyPrefix+token))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	sessions, _ := newTestSessions(t)

	tests := []struct {
		name     string
		user     string
		password string
	}{
		{"wrong password", "admin", "nope"},
		{"unknown user", "ghost", "admin-pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := sessions.Login(context.Background(), tt.user, tt.password)

			require.Error(t, err)
			stdErr, ok := err.(*errors.StandardError)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeLoginFailed, stdErr.Code)
		})
	}
}

func TestValidateRoundTrip(t *testing.T) {
	sessions, _ := newTestSessions(t)

	token, _, err := sessions.Login(context.Background(), "vendor", "vendor-pw")
	require.NoError(t, err)

	operator, err := sessions.Validate(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "vendor", operator.UserName)
	assert.Equal(t, "Cafe Luna", operator.ShopName)
}

func TestValidateExpiredSession(t *testing.T) {
	sessions, mr := newTestSessions(t)

	token, _, err := sessions.Login(context.Background(), "admin", "admin-pw")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = sessions.Validate(context.Background(), token)

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSessionInvalid, stdErr.Code)
}

func TestValidateMissingToken(t *testing.T) {
	sessions, _ := newTestSessions(t)

	_, err := sessions.Validate(context.Background(), "")

	require.Error(t, err)
}

func TestLogoutRemovesSession(t *testing.T) {
	sessions, mr := newTestSessions(t)

	token, _, err := sessions.Login(context.Background(), "admin", "admin-pw")
	require.NoError(t, err)

	require.NoError(t, sessions.Logout(context.Background(), token))

	assert.False(t, mr.Exists(sessionKeyPrefix+token))
	_, err = sessions.Validate(context.Background(), token)
	assert.Error(t, err)
}

func TestLogoutUnknownTokenIsNoOp(t *testing.T) {
	sessions, _ := newTestSessions(t)

	assert.NoError(t, sessions.Logout(context.Background(), "never-issued"))
	assert.NoError(t, sessions.Logout(context.Background(), ""))
}
