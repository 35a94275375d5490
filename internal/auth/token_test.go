package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-0123"

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken("kitchen-panel", ScopeControl, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("IssueToken() returned empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "kitchen-panel" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "kitchen-panel")
	}
	if claims.Scope != ScopeControl {
		t.Errorf("Scope = %q, want %q", claims.Scope, ScopeControl)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
	if claims.ExpiresAt.Time.Before(time.Now()) {
		t.Error("newly issued token should not be expired")
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := IssueToken("panel", ScopeRead, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("signing: %v", err)
		}
		return s
	}
	expired := sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "panel",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Scope: ScopeRead,
	}, jwt.SigningMethodHS256, []byte(testSecret))
	noExpiry := sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "panel"},
		Scope:            ScopeRead,
	}, jwt.SigningMethodHS256, []byte(testSecret))
	noSubject := sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Scope:            ScopeRead,
	}, jwt.SigningMethodHS256, []byte(testSecret))
	badScope := sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "panel",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scope: "root",
	}, jwt.SigningMethodHS256, []byte(testSecret))
	wrongAlg := sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "panel",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scope: ScopeRead,
	}, jwt.SigningMethodHS512, []byte(testSecret))

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"empty", "", testSecret},
		{"garbage", "not-a-valid-jwt", testSecret},
		{"malformed", "abc.def", testSecret},
		{"wrong secret", valid, "another-secret-another-secret-000"},
		{"expired", expired, testSecret},
		{"no expiry", noExpiry, testSecret},
		{"no subject", noSubject, testSecret},
		{"unknown scope", badScope, testSecret},
		{"wrong algorithm", wrongAlg, testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestIssueToken_DefaultTTL(t *testing.T) {
	token, err := IssueToken("panel", ScopeRead, testSecret, 0)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	diff := claims.ExpiresAt.Time.Sub(time.Now().Add(defaultTokenTTL))
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("default TTL off by %v", diff)
	}
}

func TestScopeAllows(t *testing.T) {
	tests := []struct {
		have, want Scope
		ok         bool
	}{
		{ScopeControl, ScopeControl, true},
		{ScopeControl, ScopeRead, true},
		{ScopeRead, ScopeRead, true},
		{ScopeRead, ScopeControl, false},
		{"", ScopeRead, false},
	}
	for _, tt := range tests {
		if got := tt.have.Allows(tt.want); got != tt.ok {
			t.Errorf("%q.Allows(%q) = %v, want %v", tt.have, tt.want, got, tt.ok)
		}
	}
}
