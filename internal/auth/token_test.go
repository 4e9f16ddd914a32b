package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/isofit/internal/model"
)

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("secret", "isofit", time.Hour)
	user := &model.User{ID: "user-1", Email: "a@example.com"}

	token, err := issuer.Issue(user, model.RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("sub = %q, want %q", claims.Subject, "user-1")
	}
	if claims.Role != model.RoleUser || claims.Email != "a@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "isofit" {
		t.Errorf("iss = %q, want %q", claims.Issuer, "isofit")
	}
}

func TestTokenIssuer_Verify_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", "isofit", time.Hour)
	user := &model.User{ID: "user-1"}

	expired := NewTokenIssuer("secret", "isofit", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.Issue(user, model.RoleUser)

	otherSecret, _ := NewTokenIssuer("other", "isofit", time.Hour).Issue(user, model.RoleUser)
	otherIssuer, _ := NewTokenIssuer("secret", "someone-else", time.Hour).Issue(user, model.RoleUser)

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "isofit",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"expired", expiredToken},
		{"wrong secret", otherSecret},
		{"wrong issuer", otherIssuer},
		{"alg none", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthenticated {
				t.Fatalf("expected UNAUTHENTICATED, got %v", err)
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := hashPassword("correct horse", 4)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}

	ok, err := checkPassword(hash, "correct horse")
	if err != nil || !ok {
		t.Errorf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = checkPassword(hash, "battery staple")
	if err != nil || ok {
		t.Errorf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}
