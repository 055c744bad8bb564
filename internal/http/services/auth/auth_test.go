package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/noke/internal/cache"
	"github.com/dropDatabas3/noke/internal/security/password"
	"github.com/dropDatabas3/noke/internal/security/secretbox"
	"github.com/dropDatabas3/noke/internal/security/totp"
	"github.com/dropDatabas3/noke/internal/store/adapters/memory"
)

type fixture struct {
	conn    *memory.Conn
	box     *secretbox.Box
	svc     Services
	session *SessionIssuer
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	box, err := secretbox.New([]byte(strings.Repeat("s", 32)))
	require.NoError(t, err)

	f := &fixture{
		conn: memory.New(),
		box:  box,
		now:  time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.session = NewSessionIssuer(strings.Repeat("x", 32), time.Hour).WithClock(clock)
	f.svc = NewServices(Deps{
		Users:          f.conn.Users(),
		Cache:          cache.NewMemory("test:", time.Minute),
		Cipher:         box,
		Session:        f.session,
		PasswordPolicy: password.Policy{MinLength: 8},
		TOTPIssuer:     "NoKe",
		TOTPWindow:     1,
		Now:            clock,
	})
	return f
}

// enroll activa TOTP para username y retorna el secreto crudo.
func (f *fixture) enroll(t *testing.T, username string) []byte {
	t.Helper()
	ctx := context.Background()
	res, err := f.svc.MFA.Setup(ctx, username)
	require.NoError(t, err)
	raw, err := totp.DecodeSecret(res.SecretBase32)
	require.NoError(t, err)
	require.NoError(t, f.svc.MFA.Enable(ctx, username, totp.Code(raw, f.now)))
	return raw
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Account.Register(ctx, "alice", "correct horse"))
	assert.ErrorIs(t, f.svc.Account.Register(ctx, "alice", "correct horse"), ErrUsernameTaken)
	assert.ErrorIs(t, f.svc.Account.Register(ctx, "", "x"), ErrMissingFields)
	assert.ErrorIs(t, f.svc.Account.Register(ctx, "_plugins", "correct horse"), ErrInvalidUsername)
	assert.ErrorIs(t, f.svc.Account.Register(ctx, "a b", "correct horse"), ErrInvalidUsername)

	err := f.svc.Account.Register(ctx, "bob", "short")
	require.ErrorIs(t, err, ErrPolicyViolation)
	var pe *password.PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"too_short"}, pe.Reasons)

	u, err := f.conn.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))
}

func TestLogin_WithoutMFA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Account.Register(ctx, "alice", "correct horse"))

	_, err := f.svc.Account.Login(ctx, "alice", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Account.Login(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := f.svc.Account.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.False(t, res.MFARequired)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, time.Hour, res.ExpiresIn)

	username, err := f.session.Verify(res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestLogin_WithMFA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Account.Register(ctx, "alice", "correct horse"))
	raw := f.enroll(t, "alice")

	res, err := f.svc.Account.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.True(t, res.MFARequired)
	assert.NotEmpty(t, res.MFAToken)
	assert.Empty(t, res.SessionToken)

	// El código usado para habilitar no se acepta otra vez.
	_, err = f.svc.Account.VerifyMFA(ctx, res.MFAToken, totp.Code(raw, f.now))
	assert.ErrorIs(t, err, ErrInvalidCode)

	// El challenge se consumió con el intento fallido.
	f.advance(time.Minute)
	_, err = f.svc.Account.VerifyMFA(ctx, res.MFAToken, totp.Code(raw, f.now))
	assert.ErrorIs(t, err, ErrMFATokenNotFound)

	res, err = f.svc.Account.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	done, err := f.svc.Account.VerifyMFA(ctx, res.MFAToken, totp.Code(raw, f.now))
	require.NoError(t, err)
	assert.Equal(t, "alice", done.Username)
	assert.NotEmpty(t, done.SessionToken)

	_, err = f.svc.Account.VerifyMFA(ctx, "unknown", "123456")
	assert.ErrorIs(t, err, ErrMFATokenNotFound)
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func TestMFA_EnableWithValidCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Account.Register(ctx, "alice", "correct horse"))

	res, err := f.svc.MFA.Setup(ctx, "alice")
	require.NoError(t, err)
	assert.Contains(t, res.OTPAuthURL, "otpauth://totp/NoKe:alice?")

	before, err := f.conn.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	pending, err := f.box.Decrypt(before.TOTPSecretPending)
	require.NoError(t, err)
	assert.Equal(t, res.SecretBase32, pending)

	raw, err := totp.DecodeSecret(res.SecretBase32)
	require.NoError(t, err)
	require.NoError(t, f.svc.MFA.Enable(ctx, "alice", totp.Code(raw, f.now)))

	after, err := f.conn.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, after.TOTPEnabled)
	assert.Empty(t, after.TOTPSecretPending)
	active, err := f.box.Decrypt(after.TOTPSecret)
	require.NoError(t, err)
	assert.Equal(t, pending, active)

	_, err = f.svc.MFA.Setup(ctx, "alice")
	assert.ErrorIs(t, err, ErrMFAAlreadyEnabled)
}

func TestMFA_WrongCodeKeepsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Account.Register(ctx, "alice", "correct horse"))

	assert.ErrorIs(t, f.svc.MFA.Enable(ctx, "alice", "123456"), ErrMFANotPending)

	_, err := f.svc.MFA.Setup(ctx, "alice")
	require.NoError(t, err)
	before, err := f.conn.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.MFA.Enable(ctx, "alice", "000000x"), ErrInvalidCode)

	after, err := f.conn.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, after.TOTPEnabled)
	assert.Equal(t, before.TOTPSecretPending, after.TOTPSecretPending)
}

func TestMFA_Disable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Account.Register(ctx, "alice", "correct horse"))
	f.enroll(t, "alice")

	require.NoError(t, f.svc.MFA.Disable(ctx, "alice"))
	u, err := f.conn.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, u.TOTPEnabled)
	assert.Empty(t, u.TOTPSecret)
	assert.Empty(t, u.TOTPSecretPending)

	res, err := f.svc.Account.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.False(t, res.MFARequired)

	assert.ErrorIs(t, f.svc.MFA.Disable(ctx, "nobody"), ErrUserNotFound)
}

func TestSession_Verify(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	iss := NewSessionIssuer("secret-secret-secret-secret-1234", time.Minute).
		WithClock(func() time.Time { return now })

	tok, err := iss.Issue("alice")
	require.NoError(t, err)
	u, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", u)

	other := NewSessionIssuer("another-secret-another-secret-12", time.Minute).
		WithClock(func() time.Time { return now })
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = iss.Verify("")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	now = now.Add(2 * time.Minute)
	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrSessionExpired)
}
