package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"vendorgate/internal/config"
)

var (
	ErrSessionDisabled = errors.New("session secret not configured")
	ErrMissingToken    = errors.New("session carries no upstream token")
)

// SessionClaims is the payload of the session cookie. Token is the bearer
// token presented to the session upstream.
type SessionClaims struct {
	Token string `json:"token"`
	jwt.RegisteredClaims
}

// SessionValidator verifies HS256 session cookies.
type SessionValidator struct {
	secret []byte
	logger *zap.Logger
}

func NewSessionValidator(cfg config.SessionConfig, log *zap.Logger) *SessionValidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionValidator{
		secret: []byte(cfg.Secret),
		logger: log,
	}
}

// BearerToken validates a session token and returns the upstream bearer token it carries.
func (v *SessionValidator) BearerToken(tokenString string) (string, error) {
	claims, err := v.Validate(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Token, nil
}

// Validate parses and verifies tokenString.
func (v *SessionValidator) Validate(tokenString string) (*SessionClaims, error) {
	if len(v.secret) == 0 {
		return nil, ErrSessionDisabled
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		v.logger.Debug("Session token rejected", zap.Error(err))
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("session token is invalid")
	}
	if claims.Token == "" {
		return nil, ErrMissingToken
	}

	return claims, nil
}

// Issue signs a session token carrying bearer, valid for ttl.
func (v *SessionValidator) Issue(bearer, subject string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrSessionDisabled
	}

	now := time.Now()
	claims := &SessionClaims{
		Token: bearer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		v.logger.Error("Session token generation failed", zap.Error(err))
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return tokenString, nil
}
