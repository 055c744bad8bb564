package password

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Parámetros livianos para que los tests no tarden.
var fast = Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify_Argon2id(t *testing.T) {
	h, err := Hash(fast, "correct horse")
	require.NoError(t, err)
	require.True(t, Verify("correct horse", h))
	require.False(t, Verify("wrong horse", h))
	require.False(t, IsLegacy(h))
}

func TestHash_Empty(t *testing.T) {
	_, err := Hash(fast, "")
	require.ErrorIs(t, err, ErrEmpty)
}

func TestVerify_LegacyBcrypt(t *testing.T) {
	b, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	h := string(b)

	require.True(t, IsLegacy(h))
	require.True(t, Verify("s3cret", h))
	require.False(t, Verify("nope", h))
}

func TestVerify_UnknownFormat(t *testing.T) {
	require.False(t, Verify("x", "plain"))
	require.False(t, Verify("x", "$argon2id$v=19$broken"))
}

func TestPolicy(t *testing.T) {
	p := Policy{MinLength: 8, RequireDigit: true}

	err := p.Check("short")
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	require.ElementsMatch(t, []string{"too_short", "missing_digit"}, pe.Reasons)

	require.NoError(t, p.Check("longenough1"))

	mixed := Policy{RequireMixed: true, MaxLength: 4}
	require.ErrorAs(t, mixed.Check("abcde"), &pe)
	require.ElementsMatch(t, []string{"too_long", "missing_mixed_case"}, pe.Reasons)
}
