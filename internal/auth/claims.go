package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Domain errors for the auth package.
var (
	// ErrTokenInvalid is returned for malformed, mis-signed or incomplete tokens.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)

// Issuer is set on every token and required when parsing.
const Issuer = "devicerelay"

// defaultTTL applies when a non-positive TTL is configured.
const defaultTTL = 15 * time.Minute

// Claims are the JWT claims of an access token. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a signed access token for userID.
func GenerateAccessToken(userID, secret string, ttlMinutes int) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty subject", ErrTokenInvalid)
	}
	ttl := time.Duration(ttlMinutes) * time.Minute
	if ttl <= 0 {
		ttl = defaultTTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseToken validates and parses an access token.
// It checks the signing method, signature, expiry, issuer and subject.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}

// TokenAuthenticator resolves access tokens to user ids.
type TokenAuthenticator struct {
	secret string
}

// NewTokenAuthenticator creates an authenticator for tokens signed with secret.
func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{secret: secret}
}

// Authenticate returns the subject of a valid token.
func (a *TokenAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	claims, err := ParseToken(token, a.secret)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
