// Package resettoken issues and verifies the time-limited, user-bound tokens
// used by the password reset flow.
package resettoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Codec produces opaque tokens of the form
// base64url(userID-issuedAt-salt-mac) where mac is an HMAC-SHA256 over the
// user ID, issue timestamp, salt, and the user's current password hash.
// Binding the MAC to the password hash means every outstanding token stops
// verifying the moment the password changes.
type Codec struct {
	secretKey     []byte
	validDuration time.Duration
	now           func() time.Time
}

// New creates a Codec. now is injectable for tests; pass time.Now in production.
func New(secretKey string, validDuration time.Duration, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{
		secretKey:     []byte(secretKey),
		validDuration: validDuration,
		now:           now,
	}
}

// Issue generates a token for the given user.
func (c *Codec) Issue(userID uint, passwordHash string) string {
	issuedAt := c.now().Unix()
	salt := randomSalt()
	mac := c.mac(userID, passwordHash, issuedAt, salt)
	raw := fmt.Sprintf("%d-%d-%s-%s", userID, issuedAt, salt, mac)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// UserID extracts the claimed user ID from a token without verifying it.
// The caller must still Validate against the stored user record.
func (c *Codec) UserID(token string) (uint, bool) {
	parts, ok := decodeParts(token)
	if !ok {
		return 0, false
	}
	rawUserID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(rawUserID), true
}

// Validate reports whether the token is authentic, unexpired, and bound to the
// given user and password hash. Tampered, expired, and malformed tokens are
// indistinguishable: all return false.
func (c *Codec) Validate(token string, userID uint, passwordHash string) bool {
	parts, ok := decodeParts(token)
	if !ok {
		return false
	}

	claimedID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil || uint(claimedID) != userID {
		return false
	}

	issuedAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return false
	}
	age := time.Duration(c.now().Unix()-issuedAt) * time.Second
	if age < 0 || age > c.validDuration {
		return false
	}

	salt := parts[2]
	mac := parts[3]
	expected := c.mac(userID, passwordHash, issuedAt, salt)
	return subtle.ConstantTimeCompare([]byte(mac), []byte(expected)) == 1
}

func (c *Codec) mac(userID uint, passwordHash string, issuedAt int64, salt string) string {
	hasher := hmac.New(sha256.New, c.secretKey)
	io.WriteString(hasher, fmt.Sprintf("%d-%d-%s-%s", userID, issuedAt, salt, passwordHash))
	return hex.EncodeToString(hasher.Sum(nil))
}

func decodeParts(token string) ([]string, bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, false
	}
	parts := strings.SplitN(string(decoded), "-", 4)
	if len(parts) != 4 {
		return nil, false
	}
	return parts, true
}

func randomSalt() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failure is unrecoverable for token issuance
		panic(err)
	}
	return hex.EncodeToString(b)
}
