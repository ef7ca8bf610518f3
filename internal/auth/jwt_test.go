package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestIssueAndParse(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)

	token, exp, err := signer.Issue(7, "staff@example.com", "staff")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry %v is not in the future", exp)
	}

	claims, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 7 || claims.Email != "staff@example.com" || claims.Role != "staff" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "7" {
		t.Errorf("sub = %q, want the user id", claims.Subject)
	}
	if claims.ID == "" {
		t.Error("expected a jti to be set")
	}
}

func TestIssueGeneratesUniqueTokenIDs(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)

	t1, _, err := signer.Issue(1, "a@example.com", "staff")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	t2, _, err := signer.Issue(1, "a@example.com", "staff")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	c1, err := signer.Parse(t1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c2, err := signer.Parse(t2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c1.ID == c2.ID {
		t.Errorf("expected distinct jti values, both were %q", c1.ID)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	expired := NewSigner("test-secret", -time.Hour)

	token, _, err := expired.Issue(1, "a@example.com", "staff")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := expired.Parse(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected token expired error, got %v", err)
	}

	claims, err := expired.ParseAllowExpired(token)
	if err != nil {
		t.Fatalf("ParseAllowExpired: %v", err)
	}
	if claims.UserID != 1 {
		t.Errorf("UserID = %d, want 1", claims.UserID)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	other := NewSigner("other-secret", time.Hour)

	token, _, err := signer.Issue(1, "a@example.com", "staff")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Parse(token); err == nil {
		t.Fatal("expected verification to fail with a different secret")
	}
}
