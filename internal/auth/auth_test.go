package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	token, err := IssueToken("secret", "dev@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	identity, err := NewJWTVerifier("secret").Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity != "dev@example.com" {
		t.Fatalf("expected identity %q, got %q", "dev@example.com", identity)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := IssueToken("secret", "dev@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewJWTVerifier("other").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	token, err := IssueToken("secret", "dev@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewJWTVerifier("secret").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	if _, err := NewJWTVerifier("secret").Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := BearerToken(c.header); got != c.want {
			t.Fatalf("header %q: expected %q, got %q", c.header, c.want, got)
		}
	}
}
