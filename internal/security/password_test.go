package security

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("aB3x")
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if hash == "aB3x" {
		t.Fatal("hash must not equal the input")
	}

	if !CheckPassword("aB3x", hash) {
		t.Error("expected the correct passcode to verify")
	}
	if CheckPassword("aB3y", hash) {
		t.Error("expected a wrong passcode to fail")
	}
	if CheckPassword("aB3x", "not-a-hash") {
		t.Error("expected a malformed hash to fail")
	}
}
