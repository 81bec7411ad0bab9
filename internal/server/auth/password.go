// Package auth holds the credential hasher and the signed token codec.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// PasswordAlgorithm tags records produced by this hasher.
	PasswordAlgorithm = "PBKDF2-SHA256"

	// DefaultIterations is stored with every record, so raising it later
	// does not break verification of older hashes.
	DefaultIterations = 310000

	saltSize = 16
	keySize  = 32
)

// PasswordHasher derives PBKDF2-SHA256 password records.
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher returns a hasher using iterations, or DefaultIterations
// when iterations is not positive.
func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &PasswordHasher{iterations: iterations}
}

// Hash derives a record for password with a fresh random salt.
func (h *PasswordHasher) Hash(password string) (*models.PasswordRecord, error) {
	salt := common.GenerateRandByteArray(saltSize)
	return HashWithSalt(password, salt, h.iterations), nil
}

// Verify checks password against rec. See the package-level Verify.
func (h *PasswordHasher) Verify(password string, rec *models.PasswordRecord) bool {
	return Verify(password, rec)
}

// HashWithSalt is the deterministic derivation: the salt is stored as
// standard base64 and the 256-bit key as unpadded base64url.
func HashWithSalt(password string, salt []byte, iterations int) *models.PasswordRecord {
	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return &models.PasswordRecord{
		Algorithm:  PasswordAlgorithm,
		Iterations: iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Hash:       base64.RawURLEncoding.EncodeToString(key),
	}
}

// Verify re-derives the hash with the record's own salt and iteration count.
// It fails closed on a nil record, a foreign algorithm tag, an empty password
// or an undecodable salt.
func Verify(password string, rec *models.PasswordRecord) bool {
	if rec == nil || rec.Algorithm != PasswordAlgorithm || rec.Iterations <= 0 {
		return false
	}
	if password == "" {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(rec.Salt)
	if err != nil {
		return false
	}
	got := HashWithSalt(password, salt, rec.Iterations)
	return subtle.ConstantTimeCompare([]byte(got.Hash), []byte(rec.Hash)) == 1
}
