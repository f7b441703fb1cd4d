package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var testSecret = []byte("test-secret-key-for-testing")

func TestGenerateAndParseToken(t *testing.T) {
	token, expiresAt, err := GenerateToken("alice", testSecret)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken() returned empty token")
	}
	if expiresAt <= time.Now().Unix() {
		t.Error("GenerateToken() expiration time is in the past")
	}

	username, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if username != "alice" {
		t.Errorf("ParseToken() username = %q, want alice", username)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, _, err := GenerateToken("alice", testSecret)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := ParseToken(token, []byte("other-secret")); err == nil {
		t.Error("ParseToken() with wrong secret error = nil, want error")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken("not.a.token", testSecret); err == nil {
		t.Error("ParseToken() on garbage error = nil, want error")
	}
}

func TestParseTokenExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign expired token: %v", err)
	}

	if _, err := ParseToken(expired, testSecret); err == nil {
		t.Error("ParseToken() on expired token error = nil, want error")
	}
}

func TestParseTokenRejectsUnsignedAlg(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	if _, err := ParseToken(unsigned, testSecret); err == nil {
		t.Error("ParseToken() accepted alg=none token")
	}
}

func TestParseTokenMissingSubject(t *testing.T) {
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := ParseToken(token, testSecret); err == nil {
		t.Error("ParseToken() on token without subject error = nil, want error")
	}
}
