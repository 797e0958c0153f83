// Package vault encrypts exchange API credentials at rest.
//
// Blobs are base64(IV || ciphertext || tag) under AES-256-GCM with a
// per-call random 16-byte IV. The symmetric key is resolved once at
// construction from configuration and never changes for the process
// lifetime.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	ivSize  = 16
	tagSize = 16
	keySize = 32
)

// scrypt parameters for deriving a key from a passphrase-style
// ENCRYPTION_KEY value. The salt is fixed so the same configuration
// always yields the same key.
const (
	scryptN    = 16384
	scryptR    = 8
	scryptP    = 1
	scryptSalt = "chainscreen-credential-salt"
)

// devFallbackKey seeds the insecure development key used when no
// ENCRYPTION_KEY is configured outside production.
const devFallbackKey = "dev-only-insecure-encryption-key"

// DecryptionError reports a blob that failed to authenticate: either the
// ciphertext was tampered with or the configured key is wrong. It must
// never be swallowed.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("credential decryption failed: %s", e.Reason)
}

// Config holds vault settings.
type Config struct {
	// Key is the ENCRYPTION_KEY value: 64 hex characters are used as raw
	// key bytes, any other non-empty string is scrypt-derived.
	Key string `yaml:"key"`
	// Production makes a missing key fatal instead of falling back to the
	// development default.
	Production bool `yaml:"production"`
}

// Vault performs AES-256-GCM encryption of credentials. Safe for
// concurrent use: every call creates a fresh cipher invocation with a
// random IV.
type Vault struct {
	key []byte
}

// New resolves the symmetric key from configuration.
func New(cfg Config) (*Vault, error) {
	key, err := resolveKey(cfg)
	if err != nil {
		return nil, err
	}
	return &Vault{key: key}, nil
}

func resolveKey(cfg Config) ([]byte, error) {
	value := strings.TrimSpace(cfg.Key)
	if value == "" {
		if cfg.Production {
			return nil, fmt.Errorf("ENCRYPTION_KEY is required in production")
		}
		slog.Warn("ENCRYPTION_KEY not set, using insecure development default; do not use in production")
		value = devFallbackKey
	}

	if len(value) == keySize*2 {
		if raw, err := hex.DecodeString(value); err == nil {
			return raw, nil
		}
	}

	key, err := scrypt.Key([]byte(value), []byte(scryptSalt), scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext into a base64 blob of IV || ciphertext || tag.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	blob := append(iv, sealed...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. A blob that does not
// authenticate yields a *DecryptionError.
func (v *Vault) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", &DecryptionError{Reason: "invalid base64 encoding"}
	}
	if len(raw) < ivSize+tagSize {
		return "", &DecryptionError{Reason: "blob too short"}
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, raw[:ivSize], raw[ivSize:], nil)
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed (tampered blob or wrong key)"}
	}

	return string(plaintext), nil
}

// MaskForDisplay renders a secret for UI display, keeping only the first
// and last four characters. Short secrets are fully masked.
func MaskForDisplay(secret string) string {
	if len(secret) < 12 {
		return strings.Repeat("*", 8)
	}
	return secret[:4] + strings.Repeat("*", 8) + secret[len(secret)-4:]
}
