package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	manager, err := NewManager("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	token, err := manager.Issue(42)
	require.NoError(t, err)

	userID, err := manager.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer, err := NewManager("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	verifier, err := NewManager("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	manager, err := NewManager("0123456789abcdef0123456789abcdef", time.Nanosecond)
	require.NoError(t, err)

	token, err := manager.Issue(42)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = manager.Verify(token)
	require.Error(t, err)
}

func TestNewManager_WeakSecret(t *testing.T) {
	_, err := NewManager("short", time.Hour)
	require.Error(t, err)
}
