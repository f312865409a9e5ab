// Package token implements the onboarding capability token: a compact,
// encrypted, time-limited credential carrying a role and an issuing owner.
// Tokens travel as the start parameter of a bot deep link, so new staff can
// be onboarded without any registration portal.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/kirsanium/openpvz/internal/models"
)

var (
	// ErrInvalidToken means the token can never be redeemed: garbage input,
	// a tampered payload or an unknown role code.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired means the token was well-formed but its expiry instant
	// has passed; the issuer should mint a fresh link.
	ErrTokenExpired = errors.New("token expired")
)

const (
	saltSize   = 16
	ivSize     = aes.BlockSize
	keySize    = 32
	kdfRounds  = 4096
	fieldCount = 3
)

var roleCodes = map[models.UserRole]string{
	models.RoleSuperowner: "so",
	models.RoleOwner:      "ow",
	models.RoleManager:    "mg",
	models.RoleOperator:   "op",
}

func roleFromCode(code string) (models.UserRole, bool) {
	for role, c := range roleCodes {
		if c == code {
			return role, true
		}
	}
	return "", false
}

// Codec encrypts and decrypts capability tokens under a shared secret.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode builds a token granting role under ownerID until expiry. ownerID 0
// is the top-level sentinel meaning "no owner". Layout of the raw token is
// IV || salt || ciphertext, base64url-encoded without padding.
func (c *Codec) Encode(role models.UserRole, ownerID int64, expiry time.Time) (string, error) {
	code, ok := roleCodes[role]
	if !ok {
		return "", fmt.Errorf("unencodable role %q", role)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	plaintext := []byte(fmt.Sprintf("%s:%d:%d", code, ownerID, expiry.UTC().Unix()))
	ciphertext := make([]byte, len(plaintext))
	c.stream(salt, iv).XORKeyStream(ciphertext, plaintext)

	raw := make([]byte, 0, ivSize+saltSize+len(ciphertext))
	raw = append(raw, iv...)
	raw = append(raw, salt...)
	raw = append(raw, ciphertext...)
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode. It distinguishes ErrInvalidToken from
// ErrTokenExpired so callers can tell the user whether retrying with the same
// link could ever work.
func (c *Codec) Decode(tok string, now time.Time) (models.UserRole, int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) <= ivSize+saltSize {
		return "", 0, ErrInvalidToken
	}
	iv := raw[:ivSize]
	salt := raw[ivSize : ivSize+saltSize]
	ciphertext := raw[ivSize+saltSize:]

	plaintext := make([]byte, len(ciphertext))
	c.stream(salt, iv).XORKeyStream(plaintext, ciphertext)

	fields := strings.Split(string(plaintext), ":")
	if len(fields) != fieldCount {
		return "", 0, ErrInvalidToken
	}
	role, ok := roleFromCode(fields[0])
	if !ok {
		return "", 0, ErrInvalidToken
	}
	ownerID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	expiry, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	if now.UTC().After(time.Unix(expiry, 0).UTC()) {
		return "", 0, ErrTokenExpired
	}
	return role, ownerID, nil
}

func (c *Codec) stream(salt, iv []byte) cipher.Stream {
	key := pbkdf2.Key(c.secret, salt, kdfRounds, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		// key size is fixed at 32 bytes, NewCipher cannot fail
		panic(err)
	}
	return cipher.NewCTR(block, iv)
}

// DeepLink wraps a token into the onboarding link sent to new staff.
func DeepLink(botName, tok string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botName, tok)
}
