package crypto

import (
	"strings"
	"testing"
)

// fastParams keeps tests quick; production uses DefaultHashParams.
var fastParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashDefaultFormat(t *testing.T) {
	hash, err := NewArgon2Hasher(DefaultHashParams()).Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash() expected 6 parts, got %d: %q", len(parts), hash)
	}
	if parts[1] != "argon2id" {
		t.Errorf("Hash() algorithm = %q, want %q", parts[1], "argon2id")
	}
	if parts[2] != "v=19" {
		t.Errorf("Hash() version = %q, want %q", parts[2], "v=19")
	}
	if parts[3] != "m=65536,t=3,p=2" {
		t.Errorf("Hash() params = %q, want %q", parts[3], "m=65536,t=3,p=2")
	}
}

func TestVerifyCorrectAndWrong(t *testing.T) {
	h := NewArgon2Hasher(fastParams)

	hash, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	match, err := h.Verify("password123", hash)
	if err != nil || !match {
		t.Errorf("Verify() = %v, %v; want true, nil", match, err)
	}

	match, err = h.Verify("password124", hash)
	if err != nil || match {
		t.Errorf("Verify() = %v, %v; want false, nil", match, err)
	}
}

func TestVerifyAcrossParams(t *testing.T) {
	hash, err := NewArgon2Hasher(fastParams).Hash("password123")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	match, err := NewArgon2Hasher(DefaultHashParams()).Verify("password123", hash)
	if err != nil || !match {
		t.Errorf("Verify() = %v, %v; want true, nil", match, err)
	}
}

func TestHashSaltsDiffer(t *testing.T) {
	h := NewArgon2Hasher(fastParams)

	hash1, _ := h.Hash("same-password")
	hash2, _ := h.Hash("same-password")
	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for same password (salt should differ)")
	}
}

func TestVerifyInvalidHash(t *testing.T) {
	h := NewArgon2Hasher(fastParams)

	if _, err := h.Verify("password", "invalid-hash-format"); err != ErrInvalidHashFormat {
		t.Errorf("Verify() error = %v, want ErrInvalidHashFormat", err)
	}
	if _, err := h.Verify("password", "$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5"); err != ErrIncompatibleVersion {
		t.Errorf("Verify() error = %v, want ErrIncompatibleVersion", err)
	}
}
