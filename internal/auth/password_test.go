package auth

import (
	"errors"
	"strings"
	"testing"
)

// =========================================================================
// HELPERS
// =========================================================================

func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func newTestArgon2Service() *PasswordService {
	return &PasswordService{algorithm: Argon2id, cost: 4, argon2Params: testArgon2Params}
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewPasswordService(t *testing.T) {
	tests := []struct {
		alg     Algorithm
		want    Algorithm
		wantErr bool
	}{
		{"", Bcrypt, false},
		{Bcrypt, Bcrypt, false},
		{Argon2id, Argon2id, false},
		{"md5", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			ps, err := NewPasswordService(tt.alg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewPasswordService() should reject unknown algorithms")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPasswordService() error = %v", err)
			}
			if ps.Algorithm() != tt.want {
				t.Errorf("Algorithm() = %q, want %q", ps.Algorithm(), tt.want)
			}
		})
	}
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_Prefixes(t *testing.T) {
	bcryptHash, err := newTestPasswordService().Hash("password123")
	if err != nil {
		t.Fatalf("bcrypt Hash() error = %v", err)
	}
	if !strings.HasPrefix(bcryptHash, "$2") {
		t.Errorf("bcrypt hash has unexpected prefix: %q", bcryptHash)
	}

	argonHash, err := newTestArgon2Service().Hash("password123")
	if err != nil {
		t.Fatalf("argon2id Hash() error = %v", err)
	}
	if !strings.HasPrefix(argonHash, argon2idPrefix) {
		t.Errorf("argon2id hash has unexpected prefix: %q", argonHash)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
}

func TestHash_RejectsPasswordOver72Bytes(t *testing.T) {
	for _, ps := range []*PasswordService{newTestPasswordService(), newTestArgon2Service()} {
		if _, err := ps.Hash(strings.Repeat("a", 73)); err == nil {
			t.Fatalf("%s Hash() should reject passwords longer than 72 bytes", ps.Algorithm())
		}
		if _, err := ps.Hash(strings.Repeat("a", 72)); err != nil {
			t.Fatalf("%s Hash() should accept a 72-byte password, got: %v", ps.Algorithm(), err)
		}
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify_WrongPassword(t *testing.T) {
	for _, ps := range []*PasswordService{newTestPasswordService(), newTestArgon2Service()} {
		hash, _ := ps.Hash("the-real-password")

		err := ps.Verify(hash, "the-wrong-password")
		if !errors.Is(err, ErrPasswordMismatch) {
			t.Errorf("%s Verify() error = %v, want ErrPasswordMismatch", ps.Algorithm(), err)
		}
	}
}

func TestVerify_GarbageHash(t *testing.T) {
	ps := newTestPasswordService()

	err := ps.Verify("not-a-valid-hash", "password")
	if err == nil {
		t.Fatal("Verify() should return an error for a garbage hash")
	}
	if errors.Is(err, ErrPasswordMismatch) {
		t.Error("a malformed hash should not be reported as a mismatch")
	}
}

func TestVerify_ReadsAlgorithmFromHash(t *testing.T) {
	argonHash, _ := newTestArgon2Service().Hash("cross-check")
	bcryptHash, _ := newTestPasswordService().Hash("cross-check")

	// A bcrypt-configured service still verifies argon2id hashes and vice versa.
	if err := newTestPasswordService().Verify(argonHash, "cross-check"); err != nil {
		t.Errorf("bcrypt service failed on argon2id hash: %v", err)
	}
	if err := newTestArgon2Service().Verify(bcryptHash, "cross-check"); err != nil {
		t.Errorf("argon2id service failed on bcrypt hash: %v", err)
	}
}

// =========================================================================
// ROUND-TRIP TEST
// =========================================================================

func TestHashVerify_RoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		password string
	}{
		{"simple alphanumeric", "hello123"},
		{"special characters", "p@$$w0rd!#%"},
		{"unicode", "пароль-密码"},
		{"whitespace", "  leading and trailing  "},
	}

	for _, ps := range []*PasswordService{newTestPasswordService(), newTestArgon2Service()} {
		for _, tc := range cases {
			t.Run(string(ps.Algorithm())+"/"+tc.name, func(t *testing.T) {
				hash, err := ps.Hash(tc.password)
				if err != nil {
					t.Fatalf("Hash(%q) error = %v", tc.password, err)
				}
				if err := ps.Verify(hash, tc.password); err != nil {
					t.Errorf("Verify() failed for %q: %v", tc.password, err)
				}
			})
		}
	}
}
