package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, secret []byte) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	m, err := NewManager(secret, DefaultTTL, WithClock(clock.Now))
	require.NoError(t, err)
	return m, clock
}

func TestManager_IssueAndVerify(t *testing.T) {
	m, clock := newTestManager(t, testSecret)

	tok, err := m.Issue(Identity{UserID: "user-1", Email: "jane@ex.com"})
	require.NoError(t, err)

	claims, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "jane@ex.com", claims.Email)
	assert.True(t, clock.now.Equal(claims.IssuedAt.Time))
	assert.True(t, clock.now.Add(24*time.Hour).Equal(claims.ExpiresAt.Time))
	assert.Equal(t, Identity{UserID: "user-1", Email: "jane@ex.com"}, claims.Identity())
}

func TestManager_IssueTwiceDiffers(t *testing.T) {
	m, _ := newTestManager(t, testSecret)
	id := Identity{UserID: "user-1", Email: "jane@ex.com"}

	first, err := m.Issue(id)
	require.NoError(t, err)
	second, err := m.Issue(id)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestManager_Verify_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		wantErr bool
	}{
		{"fresh", 0, false},
		{"one second before expiry", 24*time.Hour - time.Second, false},
		{"exactly at expiry", 24 * time.Hour, true},
		{"one second after expiry", 24*time.Hour + time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock := newTestManager(t, testSecret)

			tok, err := m.Issue(Identity{UserID: "user-1", Email: "jane@ex.com"})
			require.NoError(t, err)

			clock.Advance(tt.advance)
			_, err = m.Verify(tok)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				assert.ErrorIs(t, err, ErrExpired)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestManager_Verify_WrongSecret(t *testing.T) {
	issuer, _ := newTestManager(t, testSecret)
	verifier, _ := newTestManager(t, []byte("another-secret-another-secret-00"))

	tok, err := issuer.Issue(Identity{UserID: "user-1", Email: "jane@ex.com"})
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrExpired)
}

func TestManager_Verify_Malformed(t *testing.T) {
	m, _ := newTestManager(t, testSecret)

	for _, tok := range []string{"", "not.a.jwt", "abc", strings.Repeat("a", 300)} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestManager_Verify_TamperedPayload(t *testing.T) {
	m, _ := newTestManager(t, testSecret)

	tok, err := m.Issue(Identity{UserID: "user-1", Email: "jane@ex.com"})
	require.NoError(t, err)

	other, err := m.Issue(Identity{UserID: "user-2", Email: "mallory@ex.com"})
	require.NoError(t, err)

	// header and signature of the first token, payload of the second
	a := strings.Split(tok, ".")
	b := strings.Split(other, ".")
	forged := a[0] + "." + b[1] + "." + a[2]

	_, err = m.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Verify_RejectsOtherAlgorithms(t *testing.T) {
	m, clock := newTestManager(t, testSecret)

	claims := Claims{
		UserID: "user-1",
		Email:  "jane@ex.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Verify_RequiresExpiry(t *testing.T) {
	m, _ := newTestManager(t, testSecret)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "user-1"}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_VerifySurvivesRestart(t *testing.T) {
	first, clock := newTestManager(t, testSecret)

	tok, err := first.Issue(Identity{UserID: "user-1", Email: "jane@ex.com"})
	require.NoError(t, err)

	second, err := NewManager(testSecret, DefaultTTL, WithClock(clock.Now))
	require.NoError(t, err)

	claims, err := second.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestDecode(t *testing.T) {
	m, clock := newTestManager(t, testSecret)

	tok, err := m.Issue(Identity{UserID: "user-1", Email: "jane@ex.com"})
	require.NoError(t, err)

	// expired and signed with a secret Decode never sees
	clock.Advance(48 * time.Hour)
	claims, ok := Decode(tok)
	require.True(t, ok)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "jane@ex.com", claims.Email)

	_, ok = Decode("garbage")
	assert.False(t, ok)
}

func TestNewManager(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)

	m, err := NewManager(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, m.TTL())
}
