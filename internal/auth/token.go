package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated principal carried by a bearer token.
type Identity struct {
	UserID int
	Role   string
}

// TokenVerifier validates bearer credentials. Token issuance belongs to
// the auth service; this side only verifies.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// TokenService validates (and, for tests, mints) HS256 JWTs carrying
// the user id and role issued by the auth service.
type TokenService struct {
	secret []byte
}

// NewTokenService constructs a TokenService around a shared secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Verify parses and validates a JWT and extracts the identity claims.
func (t *TokenService) Verify(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	id, ok := claims["id"].(float64)
	if !ok || id == 0 {
		return Identity{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)

	return Identity{UserID: int(id), Role: role}, nil
}

// Sign mints a token for the given identity. Used by tests and local
// tooling; production tokens come from the auth service.
func (t *TokenService) Sign(identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":   identity.UserID,
		"role": identity.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}
