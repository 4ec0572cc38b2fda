// internal/account/session.go
package account

import (
	"context"
	"encoding/json"
	"time"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/database"
	"review-funnel/internal/common/errors"
	"review-funnel/internal/common/logger"

	"github.com/google/uuid"
)

const sessionKeyPrefix = "session:"

// Operator is the authenticated dashboard identity attached to a session.
type Operator struct {
	UserName string `json:"user_name"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	ShopName string `json:"shop_name,omitempty"`
	ShopLogo string `json:"shop_logo,omitempty"`
}

// Sessions authenticates operators against the configured roster and keeps
// their sessions in Redis so every instance sees the same logins.
type Sessions struct {
	cache     *database.RedisClient
	operators []config.OperatorConfig
	ttl       time.Duration
	logger    logger.Logger
}

func NewSessions(cache *database.RedisClient, cfg config.AuthConfig, log logger.Logger) *Sessions {
	return &Sessions{
		cache:     cache,
		operators: cfg.Operators,
		ttl:       cfg.GetSessionTTL(),
		logger:    log,
	}
}

// Login checks the credentials against the roster and mints a session
// token. Wrong user and wrong password are indistinguishable to the caller.
func (s *Sessions) Login(ctx context.Context, userName, password string) (string, *Operator, error) {
	var matched *config.OperatorConfig
	for i := range s.operators {
		op := &s.operators[i]
		if op.UserName == userName && op.Password == password {
			matched = op
			break
		}
	}
	if matched == nil {
		return "", nil, errors.NewLoginFailedError()
	}

	operator := &Operator{
		UserName: matched.UserName,
		Role:     matched.Role,
		FullName: matched.FullName,
		Email:    matched.Email,
		ShopName: matched.ShopName,
		ShopLogo: matched.ShopLogo,
	}
	payload, err := json.Marshal(operator)
	if err != nil {
		return "", nil, err
	}

	token := uuid.NewString()
	if err := s.cache.Set(ctx, sessionKeyPrefix+token, payload, s.ttl); err != nil {
		s.logger.WithError(err).Error("Failed to persist session", nil)
		return "", nil, errors.NewSessionInvalidError("session could not be stored")
	}

	s.logger.WithFields(map[string]interface{}{
		"user_name": userName,
		"role":      operator.Role,
	}).Info("Operator logged in", nil)
	return token, operator, nil
}

// Validate resolves a session token back to its operator.
func (s *Sessions) Validate(ctx context.Context, token string) (*Operator, error) {
	if token == "" {
		return nil, errors.NewSessionInvalidError("missing session token")
	}
	raw, err := s.cache.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		return nil, errors.NewSessionInvalidError("unknown or expired session")
	}
	var operator Operator
	if err := json.Unmarshal([]byte(raw), &operator); err != nil {
		return nil, errors.NewSessionInvalidError("corrupt session payload")
	}
	return &operator, nil
}

// Logout discards the session. Unknown tokens are a no-op.
func (s *Sessions) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.cache.Del(ctx, sessionKeyPrefix+token)
}
