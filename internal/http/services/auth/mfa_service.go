package auth

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/observability/logger"
	"github.com/dropDatabas3/noke/internal/security/totp"
)

// MFAService maneja el enrolamiento TOTP del propio usuario.
type MFAService interface {
	// Setup genera un secreto nuevo y lo deja pendiente.
	Setup(ctx context.Context, username string) (*SetupResult, error)

	// Enable verifica code contra el secreto pendiente y lo activa. Un código
	// incorrecto deja el pendiente intacto.
	Enable(ctx context.Context, username, code string) error

	// Disable limpia ambos secretos.
	Disable(ctx context.Context, username string) error
}

// SetupResult contiene los datos de enrolamiento.
type SetupResult struct {
	SecretBase32 string
	OTPAuthURL   string
}

type mfaService struct {
	users  repository.UserRepository
	cipher Cipher
	issuer string
	window int
	now    func() time.Time
}

// NewMFAService crea el service MFA.
func NewMFAService(d Deps) MFAService {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	issuer := d.TOTPIssuer
	if issuer == "" {
		issuer = "NoKe"
	}
	return &mfaService{
		users:  d.Users,
		cipher: d.Cipher,
		issuer: issuer,
		window: d.TOTPWindow,
		now:    now,
	}
}

func (s *mfaService) Setup(ctx context.Context, username string) (*SetupResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("mfa.totp.setup"))

	u, err := s.load(ctx, username)
	if err != nil {
		return nil, err
	}
	if u.TOTPEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	_, secretB32, err := totp.GenerateSecret()
	if err != nil {
		log.Error("failed to generate totp secret", logger.Err(err))
		return nil, ErrCryptoFailed
	}
	enc, err := s.cipher.Encrypt(secretB32)
	if err != nil {
		log.Error("failed to encrypt totp secret", logger.Err(err))
		return nil, ErrCryptoFailed
	}
	if err := s.users.SetPendingTOTP(ctx, u.Username, enc); err != nil {
		log.Error("failed to store pending totp", logger.Err(err))
		return nil, ErrStoreFailed
	}

	return &SetupResult{
		SecretBase32: secretB32,
		OTPAuthURL:   totp.OTPAuthURL(s.issuer, u.Username, secretB32),
	}, nil
}

func (s *mfaService) Enable(ctx context.Context, username, code string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("mfa.totp.enable"))

	if strings.TrimSpace(code) == "" {
		return ErrMissingFields
	}
	u, err := s.load(ctx, username)
	if err != nil {
		return err
	}
	if u.TOTPSecretPending == "" {
		return ErrMFANotPending
	}

	raw, err := decodeSecret(s.cipher, u.TOTPSecretPending)
	if err != nil {
		log.Error("failed to decrypt pending totp secret", logger.Err(err))
		return ErrCryptoFailed
	}
	ok, counter := totp.Verify(raw, code, s.now(), s.window, nil)
	if !ok {
		return ErrInvalidCode
	}

	// Si otro Setup reemplazó el pendiente entre la lectura y esta escritura
	// el código verificado ya no corresponde.
	err = s.users.EnableTOTP(ctx, u.Username, u.TOTPSecretPending, counter)
	if repository.IsPreconditionFailed(err) {
		return ErrMFANotPending
	}
	if err != nil {
		log.Error("failed to enable totp", logger.Err(err))
		return ErrStoreFailed
	}

	log.Info("totp enabled", logger.Username(u.Username))
	return nil
}

func (s *mfaService) Disable(ctx context.Context, username string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("mfa.totp.disable"))

	u, err := s.load(ctx, username)
	if err != nil {
		return err
	}
	if err := s.users.DisableTOTP(ctx, u.Username); err != nil {
		log.Error("failed to disable totp", logger.Err(err))
		return ErrStoreFailed
	}
	log.Info("totp disabled", logger.Username(u.Username))
	return nil
}

func (s *mfaService) load(ctx context.Context, username string) (*repository.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrMissingFields
	}
	u, err := s.users.GetByUsername(ctx, username)
	if repository.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logger.From(ctx).Error("failed to load user", logger.Layer("service"), logger.Err(err))
		return nil, ErrStoreFailed
	}
	return u, nil
}
