package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyToken(t *testing.T) {
	t.Parallel()

	hash, err := HashToken("s3cret-admin")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifyToken(" s3cret-admin ", hash) {
		t.Fatalf("expected token verification to succeed")
	}
	if VerifyToken("wrong-token", hash) {
		t.Fatalf("did not expect wrong token to verify")
	}
}

func TestVerifyTokenRejectsBlank(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("x"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if VerifyToken("", string(hash)) {
		t.Fatalf("blank token must not verify")
	}
	if VerifyToken("x", "") {
		t.Fatalf("blank hash must not verify")
	}
	if _, err := HashToken("   "); err == nil {
		t.Fatalf("expected error hashing blank token")
	}
}

func TestNormalizeUserID(t *testing.T) {
	t.Parallel()

	if got := NormalizeUserID(" ABC-123 "); got != "abc-123" {
		t.Fatalf("unexpected normalized user id: %q", got)
	}
}
