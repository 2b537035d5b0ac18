package auth

// PASSWORD HASHING:
// Two algorithms are supported and selected by configuration:
//
//	bcrypt    $2a$12$<22-char salt><31-char hash>
//	argon2id  $argon2id$v=19$m=65536,t=1,p=<n>$<salt>$<hash>
//
// Hash always uses the configured algorithm. Verify reads the algorithm from
// the stored hash prefix, so switching PASSWORD_HASHER does not lock out
// users whose hashes were written under the previous setting.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm names a password hashing scheme.
type Algorithm string

const (
	Bcrypt   Algorithm = "bcrypt"
	Argon2id Algorithm = "argon2id"
)

// defaultCost is the bcrypt work factor (~250ms on a modern server).
const defaultCost = 12

// MaxPasswordBytes is the longest password bcrypt accepts without silently
// truncating it. The limit is applied to both algorithms.
const MaxPasswordBytes = 72

const argon2idPrefix = "$argon2id$"

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords.
type PasswordService struct {
	algorithm    Algorithm
	cost         int
	argon2Params *argon2id.Params
}

// NewPasswordService returns a PasswordService for the named algorithm.
// An empty name selects bcrypt.
func NewPasswordService(alg Algorithm) (*PasswordService, error) {
	switch alg {
	case "", Bcrypt:
		return &PasswordService{algorithm: Bcrypt, cost: defaultCost, argon2Params: argon2id.DefaultParams}, nil
	case Argon2id:
		return &PasswordService{algorithm: Argon2id, cost: defaultCost, argon2Params: argon2id.DefaultParams}, nil
	default:
		return nil, fmt.Errorf("auth: unknown password hasher %q", alg)
	}
}

// NewPasswordServiceForTest returns a bcrypt PasswordService with the given
// cost (4 is the minimum). Never use it in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{algorithm: Bcrypt, cost: cost, argon2Params: testArgon2Params}
}

// testArgon2Params keeps argon2id hashing cheap in tests.
var testArgon2Params = &argon2id.Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Algorithm reports the algorithm Hash uses.
func (p *PasswordService) Algorithm() Algorithm {
	return p.algorithm
}

// Hash hashes plaintext with the configured algorithm. The output embeds
// the salt and parameters and can be stored as-is.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	if p.algorithm == Argon2id {
		hashed, err := argon2id.CreateHash(plaintext, p.argon2Params)
		if err != nil {
			return "", fmt.Errorf("auth: hashing password: %w", err)
		}
		return hashed, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash, ErrPasswordMismatch when
// it does not, and another error when hash is malformed. Both algorithms
// compare in constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if strings.HasPrefix(hash, argon2idPrefix) {
		match, err := argon2id.ComparePasswordAndHash(plaintext, hash)
		if err != nil {
			return fmt.Errorf("auth: comparing password hash: %w", err)
		}
		if !match {
			return ErrPasswordMismatch
		}
		return nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
