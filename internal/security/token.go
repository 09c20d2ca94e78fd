package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrInvalidSealingKey  = errors.New("token sealing key must be 32 bytes hex-encoded")
	ErrSealedTokenCorrupt = errors.New("sealed token is corrupt or was sealed with another key")
	ErrMalformedToken     = errors.New("session token is not a well-formed JWT")
)

const sealedPrefix = "v1:"

// Sealer protects the session token while it sits in local storage
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// TokenSealer seals values with NaCl secretbox under a fixed key
type TokenSealer struct {
	key [32]byte
}

// NewTokenSealer parses a hex-encoded 32 byte key
func NewTokenSealer(hexKey string) (*TokenSealer, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidSealingKey
	}
	s := &TokenSealer{}
	copy(s.key[:], raw)
	return s, nil
}

// Seal encrypts plaintext with a fresh random nonce
func (s *TokenSealer) Seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open reverses Seal
func (s *TokenSealer) Open(sealed string) (string, error) {
	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", ErrSealedTokenCorrupt
	}
	box, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(box) < 24+secretbox.Overhead {
		return "", ErrSealedTokenCorrupt
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, &s.key)
	if !ok {
		return "", ErrSealedTokenCorrupt
	}
	return string(plain), nil
}

// NopSealer stores tokens as-is. Used when no sealing key is configured.
type NopSealer struct{}

func (NopSealer) Seal(plaintext string) (string, error) { return plaintext, nil }
func (NopSealer) Open(sealed string) (string, error)    { return sealed, nil }

// TokenInfo is what the companion reads out of a backend session token
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// InspectToken decodes the registered claims of a backend-issued JWT without
// verifying its signature; only the backend holds the signing secret.
func InspectToken(token string) (TokenInfo, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	info := TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
