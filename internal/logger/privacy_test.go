package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	SetHashSalt("test-salt-for-unit-tests-minimum-32-chars")
	os.Exit(m.Run())
}

func TestHashUserID(t *testing.T) {
	t.Run("produces consistent hash for same user ID", func(t *testing.T) {
		require.Equal(t, HashUserID(12345), HashUserID(12345))
	})

	t.Run("produces different hashes for different user IDs", func(t *testing.T) {
		require.NotEqual(t, HashUserID(12345), HashUserID(67890))
	})

	t.Run("produces 8 character hash", func(t *testing.T) {
		require.Len(t, HashUserID(12345), 8)
	})

	t.Run("changes hash when salt changes", func(t *testing.T) {
		originalSalt := hashSalt
		defer func() { hashSalt = originalSalt }()

		hash1 := HashUserID(12345)
		SetHashSalt("different-salt")
		hash2 := HashUserID(12345)

		require.NotEqual(t, hash1, hash2)
	})

	t.Run("empty salt is ignored", func(t *testing.T) {
		before := HashUserID(1)
		SetHashSalt("")
		require.Equal(t, before, HashUserID(1))
	})
}

func TestHashChatID(t *testing.T) {
	require.Equal(t, HashChatID(-100123), HashChatID(-100123))
	require.NotEqual(t, HashChatID(-100123), HashChatID(-100124))
}

func TestRedactText(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		require.Equal(t, "<empty>", RedactText(""))
	})

	t.Run("keeps shape only", func(t *testing.T) {
		result := RedactText("Alice had the nachos")
		require.Equal(t, "<redacted: 4 words, 20 chars>", result)
		require.NotContains(t, result, "Alice")
	})
}
