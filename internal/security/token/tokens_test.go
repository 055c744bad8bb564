package tokens

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecret_UniqueAndHex(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		s, err := GenerateSecret()
		require.NoError(t, err)
		require.Len(t, s, SecretBytes*2)
		_, dup := seen[s]
		require.False(t, dup, "secreto repetido")
		seen[s] = struct{}{}
	}
}

func TestSHA256Hex_KnownVector(t *testing.T) {
	require.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		SHA256Hex("hello"))
}

func TestEqualHash(t *testing.T) {
	stored := SHA256Hex("k1")
	require.True(t, EqualHash("k1", stored))
	require.False(t, EqualHash("k2", stored))
	require.False(t, EqualHash("", stored))
	require.False(t, EqualHash("k1", ""))
}
