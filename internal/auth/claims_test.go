package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func TestGenerateAndParseAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("42", testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateAccessToken() returned empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "42" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "42")
	}
	if claims.Issuer != Issuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, Issuer)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	token, err := GenerateAccessToken("42", testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != defaultTTL {
		t.Errorf("TTL = %v, want %v", ttl, defaultTTL)
	}
}

func TestGenerateAccessToken_EmptySubject(t *testing.T) {
	if _, err := GenerateAccessToken("", testSecret, 15); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("GenerateAccessToken(\"\") error = %v, want ErrTokenInvalid", err)
	}
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func TestParseToken_Rejections(t *testing.T) {
	now := time.Now()
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   "42",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noSubject := valid()
	noSubject.Subject = ""
	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "garbage", token: "not-a-valid-jwt", wantErr: ErrTokenInvalid},
		{name: "wrong secret", token: sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), valid()), wantErr: ErrTokenInvalid},
		{name: "wrong algorithm", token: sign(t, jwt.SigningMethodHS512, []byte(testSecret), valid()), wantErr: ErrTokenInvalid},
		{name: "expired", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired), wantErr: ErrTokenExpired},
		{name: "missing subject", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject), wantErr: ErrTokenInvalid},
		{name: "wrong issuer", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer), wantErr: ErrTokenInvalid},
		{name: "no expiry", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry), wantErr: ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenAuthenticator(t *testing.T) {
	a := NewTokenAuthenticator(testSecret)

	token, err := GenerateAccessToken("42", testSecret, 5)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	got, err := a.Authenticate(context.Background(), token)
	if err != nil || got != "42" {
		t.Errorf("Authenticate() = %q, %v; want 42", got, err)
	}

	if _, err := a.Authenticate(context.Background(), "garbage"); err == nil {
		t.Error("Authenticate(garbage) should fail")
	}
}
