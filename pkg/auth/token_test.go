package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(testSecret, "quill-test", time.Hour)
	require.NoError(t, err)
	return tm
}

func TestNewTokenManager(t *testing.T) {
	_, err := NewTokenManager("short", "quill", time.Hour)
	assert.Error(t, err)

	tm, err := NewTokenManager(testSecret, "quill", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, tm.ttl)
}

func TestTokenManager_IssueVerify(t *testing.T) {
	tm := newTestTokenManager(t)

	token, err := tm.Issue(&User{ID: 42, Email: "Alice@Example.com", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	identity, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.UserID)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, "Alice", identity.Name)
}

func TestTokenManager_Verify(t *testing.T) {
	tm := newTestTokenManager(t)
	user := &User{ID: 7, Email: "bob@example.com"}

	t.Run("expired token", func(t *testing.T) {
		token, err := tm.Issue(user)
		require.NoError(t, err)

		later := newTestTokenManager(t)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = later.Verify(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenManager("ffffffffffffffffffffffffffffffff", "quill-test", time.Hour)
		require.NoError(t, err)
		token, err := other.Issue(user)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenManager(testSecret, "someone-else", time.Hour)
		require.NoError(t, err)
		token, err := other.Issue(user)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.Error(t, err)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "quill-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.Error(t, err)
	})

	t.Run("non-numeric subject", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "bob",
			Issuer:    "quill-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorContains(t, err, "invalid token subject")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Verify("not-a-token")
		assert.Error(t, err)
	})
}
