package resettoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestIssueAndValidate(t *testing.T) {
	codec := New(testSecret, 30*time.Minute, nil)

	token := codec.Issue(42, "hash-of-password")

	userID, ok := codec.UserID(token)
	require.True(t, ok)
	assert.Equal(t, uint(42), userID)

	assert.True(t, codec.Validate(token, 42, "hash-of-password"))
}

func TestValidateRejectsWrongUser(t *testing.T) {
	codec := New(testSecret, 30*time.Minute, nil)

	token := codec.Issue(42, "hash-of-password")

	assert.False(t, codec.Validate(token, 43, "hash-of-password"))
}

func TestValidateRejectsAfterPasswordChange(t *testing.T) {
	codec := New(testSecret, 30*time.Minute, nil)

	token := codec.Issue(42, "old-hash")

	// Once the stored hash changes the token no longer verifies.
	assert.False(t, codec.Validate(token, 42, "new-hash"))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issued := time.Now()
	now := issued
	codec := New(testSecret, 30*time.Minute, func() time.Time { return now })

	token := codec.Issue(42, "hash")
	assert.True(t, codec.Validate(token, 42, "hash"))

	now = issued.Add(31 * time.Minute)
	assert.False(t, codec.Validate(token, 42, "hash"))
}

func TestValidateRejectsTokenFromTheFuture(t *testing.T) {
	issued := time.Now()
	now := issued
	codec := New(testSecret, 30*time.Minute, func() time.Time { return now })

	token := codec.Issue(42, "hash")

	now = issued.Add(-1 * time.Minute)
	assert.False(t, codec.Validate(token, 42, "hash"))
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	codec := New(testSecret, 30*time.Minute, nil)

	token := codec.Issue(42, "hash")

	// Flip a character in the encoded token.
	tampered := []byte(token)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}

	assert.False(t, codec.Validate(string(tampered), 42, "hash"))
}

func TestValidateRejectsGarbage(t *testing.T) {
	codec := New(testSecret, 30*time.Minute, nil)

	for _, token := range []string{"", "not-base64!!", "aGVsbG8", "YS1iLWM"} {
		_, ok := codec.UserID(token)
		assert.False(t, ok, "token %q should not parse", token)
		assert.False(t, codec.Validate(token, 42, "hash"))
	}
}

func TestDifferentSecretsProduceIncompatibleTokens(t *testing.T) {
	a := New("secret-a", 30*time.Minute, nil)
	b := New("secret-b", 30*time.Minute, nil)

	token := a.Issue(42, "hash")
	assert.False(t, b.Validate(token, 42, "hash"))
}
