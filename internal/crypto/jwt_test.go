package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m, err := NewJWTManager("secret")
	require.NoError(t, err)

	token, err := m.CreateToken("u1", time.Hour)
	require.NoError(t, err)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
}

func TestJWTManager_RejectsOtherSecret(t *testing.T) {
	a, err := NewJWTManager("a")
	require.NoError(t, err)
	b, err := NewJWTManager("b")
	require.NoError(t, err)

	token, err := a.CreateToken("u1", 0)
	require.NoError(t, err)

	_, err = b.Verify(token)
	require.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	m, err := NewJWTManager("secret")
	require.NoError(t, err)

	issued := time.UnixMilli(1_700_000_000_000)
	m.now = func() time.Time { return issued }
	token, err := m.CreateToken("u1", time.Minute)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.Verify(token)
	require.Error(t, err)
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	m, err := NewJWTManager("secret")
	require.NoError(t, err)

	_, err = m.Verify("not-a-jwt")
	require.Error(t, err)
}

func TestNewJWTManager_EmptySecret(t *testing.T) {
	_, err := NewJWTManager("")
	require.Error(t, err)
}
