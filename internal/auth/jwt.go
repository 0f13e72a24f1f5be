package auth

import (
	"errors"
	"fmt"
	"time"

	"call-screening/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "call-screening"

var (
	ErrTokenInvalid  = errors.New("auth: tool token invalid")
	ErrTokenMismatch = errors.New("auth: tool token does not match session or function")
)

// TokenManager issues and verifies SWAIG tool tokens (HS256).
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(cfg config.TokenConfig) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("SWAIG_TOKEN_SECRET is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("SWAIG_TOKEN_TTL must be positive")
	}
	return &TokenManager{secret: []byte(cfg.Secret), ttl: cfg.TTL}, nil
}

/* ===================== ISSUE ===================== */

// Issue mints a token for function within sessionID.
func (m *TokenManager) Issue(now time.Time, sessionID, function string) (string, error) {
	if sessionID == "" || function == "" {
		return "", errors.New("auth: session_id and function are required")
	}
	claims := ToolClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
		SessionID: sessionID,
		Function:  function,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

/* ===================== VERIFY ===================== */

// Verify checks signature, expiry, issuer and that the token was minted for
// this session and function.
func (m *TokenManager) Verify(tokenString, sessionID, function string, now time.Time) (ToolClaims, error) {
	var claims ToolClaims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second), // clock skew tolerance
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return ToolClaims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.SessionID != sessionID || claims.Function != function {
		return ToolClaims{}, ErrTokenMismatch
	}
	return claims, nil
}
