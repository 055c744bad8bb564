package totp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Vector del apéndice B de RFC 6238 (SHA1, secreto ASCII "12345678901234567890").
func TestCode_RFC6238Vectors(t *testing.T) {
	secret := []byte("12345678901234567890")
	cases := map[int64]string{
		59:         "287082",
		1111111109: "081804",
		1234567890: "005924",
		2000000000: "279037",
	}
	for ts, want := range cases {
		assert.Equal(t, want, Code(secret, time.Unix(ts, 0)), "t=%d", ts)
	}
}

func TestVerify_Window(t *testing.T) {
	raw, _, err := GenerateSecret()
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)

	prev := Code(raw, now.Add(-Period*time.Second))
	ok, _ := Verify(raw, prev, now, DefaultSkew, nil)
	require.True(t, ok, "un paso atrás debe aceptarse")

	old := Code(raw, now.Add(-3*Period*time.Second))
	ok, _ = Verify(raw, old, now, DefaultSkew, nil)
	require.False(t, ok, "tres pasos atrás debe rechazarse")
}

func TestVerify_AntiReplay(t *testing.T) {
	raw, _, err := GenerateSecret()
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	code := Code(raw, now)

	ok, counter := Verify(raw, code, now, DefaultSkew, nil)
	require.True(t, ok)

	ok, _ = Verify(raw, code, now, DefaultSkew, &counter)
	require.False(t, ok)
}

func TestDecodeSecret_RoundTrip(t *testing.T) {
	raw, enc, err := GenerateSecret()
	require.NoError(t, err)

	got, err := DecodeSecret(strings.ToLower(enc))
	require.NoError(t, err)
	require.Equal(t, raw, got)

	_, err = DecodeSecret("!!!")
	require.ErrorIs(t, err, ErrInvalidSecret)
}

func TestOTPAuthURL(t *testing.T) {
	u := OTPAuthURL("NoKe", "alice", "ABC")
	require.True(t, strings.HasPrefix(u, "otpauth://totp/NoKe:alice?"))
	require.Contains(t, u, "secret=ABC")
	require.Contains(t, u, "period=30")
}
