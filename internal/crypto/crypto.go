// Package crypto implements the password-based encryption used for credential
// export files and encrypted credential rows: PBKDF2-HMAC-SHA256 key
// derivation plus AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32

	// CurrentVersion is the format version stamped on new writes.
	CurrentVersion uint32 = 2
)

// iterationsByVersion couples each file-format version to its PBKDF2 cost.
// The pairing is part of the format: decrypting with the wrong version's
// count cannot produce a matching key.
var iterationsByVersion = map[uint32]int{
	1: 100_000,
	2: 600_000,
}

// ErrDecrypt is the single failure returned by Decrypt. Bad base64, a wrong
// password and a corrupted ciphertext are deliberately indistinguishable.
var ErrDecrypt = errors.New("decryption failed")

// IterationsForVersion returns the PBKDF2 iteration count paired with a
// format version, and false for unknown versions.
func IterationsForVersion(v uint32) (int, bool) {
	n, ok := iterationsByVersion[v]
	return n, ok
}

// CurrentIterations is the iteration count used by new writes.
func CurrentIterations() int {
	return iterationsByVersion[CurrentVersion]
}

// DeriveKey stretches a password into a 32-byte AES key.
func DeriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
}

// Encrypted is the output of Encrypt, all fields base64-encoded.
type Encrypted struct {
	Salt       string
	Nonce      string
	Ciphertext string
}

// Encrypt seals plaintext under a password at the current format version,
// generating a fresh random salt and nonce per call.
func Encrypt(plaintext []byte, password string) (*Encrypted, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	gcm, err := newGCM(DeriveKey(password, salt, CurrentIterations()))
	if err != nil {
		return nil, err
	}
	ct := gcm.Seal(nil, nonce, plaintext, nil)

	return &Encrypted{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// Decrypt reverses Encrypt with an explicit iteration count, so callers can
// open files written at older format versions. Every failure collapses into
// ErrDecrypt to avoid acting as a padding/format oracle.
func Decrypt(ciphertextB64, password, saltB64, nonceB64 string, iterations int) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, ErrDecrypt
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(nonce) != nonceSize {
		return nil, ErrDecrypt
	}
	ct, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, ErrDecrypt
	}

	gcm, err := newGCM(DeriveKey(password, salt, iterations))
	if err != nil {
		return nil, ErrDecrypt
	}
	plaintext, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
