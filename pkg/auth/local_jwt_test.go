package auth

import (
	"strings"
	"testing"
	"time"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer abc123", "abc123", false},
		{"lowercase bearer", "bearer abc123", "abc123", false},
		{"empty header", "", "", true},
		{"missing token", "Bearer ", "", true},
		{"wrong scheme", "Basic abc123", "", true},
		{"no scheme", "abc123", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	password := "Str0ngPassword"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hash, "argon2id$") {
		t.Errorf("Expected argon2id prefix, got %q", hash)
	}

	ok, err := VerifyPassword(hash, password)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Error("Expected correct password to verify")
	}

	ok, err = VerifyPassword(hash, "WrongPassword1")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if ok {
		t.Error("Expected wrong password to fail verification")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	h1, err := HashPassword("Str0ngPassword")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashPassword("Str0ngPassword")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("Expected different salts to produce different hashes")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("not-a-hash", "whatever"); err == nil {
		t.Error("Expected error for malformed hash")
	}
	if _, err := VerifyPassword("argon2id$onlyonepart", "whatever"); err == nil {
		t.Error("Expected error for missing hash part")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ngPass", false},
		{"too short", "Ab1", true},
		{"no uppercase", "weakpass1", true},
		{"no lowercase", "WEAKPASS1", true},
		{"no number", "WeakPassword", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	jwtAuth, err := NewLocalJWTAuth("test-secret-key-at-least-32-chars!", 0, 0)
	if err != nil {
		t.Fatalf("NewLocalJWTAuth failed: %v", err)
	}

	access, refresh, err := jwtAuth.GenerateTokens("user-123", "a@b.com", "user")
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}

	user, err := jwtAuth.VerifyAccessToken(access)
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if user.ID != "user-123" || user.Email != "a@b.com" || user.Role != "user" {
		t.Errorf("Unexpected user claims: %+v", user)
	}

	claims, err := jwtAuth.VerifyRefreshToken(refresh)
	if err != nil {
		t.Fatalf("VerifyRefreshToken failed: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("Expected user-123, got %q", claims.UserID)
	}
	if claims.TokenID == "" {
		t.Error("Expected refresh token to carry a token ID")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	jwtAuth, err := NewLocalJWTAuth("test-secret-key-at-least-32-chars!", time.Nanosecond, 0)
	if err != nil {
		t.Fatal(err)
	}

	access, _, err := jwtAuth.GenerateTokens("user-123", "a@b.com", "user")
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := jwtAuth.VerifyAccessToken(access); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	signer, _ := NewLocalJWTAuth("secret-one-that-is-long-enough!!", 0, 0)
	verifier, _ := NewLocalJWTAuth("secret-two-that-is-long-enough!!", 0, 0)

	access, _, err := signer.GenerateTokens("user-123", "a@b.com", "user")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.VerifyAccessToken(access); err == nil {
		t.Error("Expected token signed with different secret to be rejected")
	}
}

func TestEmptySecretRejected(t *testing.T) {
	if _, err := NewLocalJWTAuth("", 0, 0); err == nil {
		t.Error("Expected empty secret to be rejected")
	}
}
