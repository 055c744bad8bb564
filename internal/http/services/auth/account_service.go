package auth

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dropDatabas3/noke/internal/cache"
	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/observability/logger"
	"github.com/dropDatabas3/noke/internal/security/password"
	tokens "github.com/dropDatabas3/noke/internal/security/token"
	"github.com/dropDatabas3/noke/internal/security/totp"
)

// MFAChallengeTTL es la vida de un mfaToken emitido por Login.
const MFAChallengeTTL = 5 * time.Minute

const mfaTokenPrefix = "mfa:token:"

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{1,63}$`)

// AccountService maneja la cuenta primaria.
type AccountService interface {
	// Register crea la cuenta con el password hasheado (argon2id).
	Register(ctx context.Context, username, plain string) error

	// Login valida el password. Con TOTP activo retorna MFARequired y un
	// mfaToken de un solo uso en lugar de la sesión.
	Login(ctx context.Context, username, plain string) (*LoginResult, error)

	// VerifyMFA completa un login pendiente con un código TOTP.
	VerifyMFA(ctx context.Context, mfaToken, code string) (*LoginResult, error)
}

// LoginResult es el resultado de Login/VerifyMFA.
type LoginResult struct {
	MFARequired bool
	MFAToken    string

	Username     string
	SessionToken string
	ExpiresIn    time.Duration
}

// mfaChallenge es lo que se guarda en cache bajo mfa:token:<token>.
type mfaChallenge struct {
	Username string `json:"usr"`
}

type accountService struct {
	users   repository.UserRepository
	cache   cache.Client
	cipher  Cipher
	session *SessionIssuer
	policy  password.Policy
	window  int
	now     func() time.Time
}

// NewAccountService crea el service de cuenta.
func NewAccountService(d Deps) AccountService {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &accountService{
		users:   d.Users,
		cache:   d.Cache,
		cipher:  d.Cipher,
		session: d.Session,
		policy:  d.PasswordPolicy,
		window:  d.TOTPWindow,
		now:     now,
	}
}

func (s *accountService) Register(ctx context.Context, username, plain string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("auth.register"))

	username = strings.TrimSpace(username)
	if username == "" || plain == "" {
		return ErrMissingFields
	}
	if !usernameRe.MatchString(username) || username == repository.UnownedGroup {
		return ErrInvalidUsername
	}
	if err := s.policy.Check(plain); err != nil {
		return errors.Join(ErrPolicyViolation, err)
	}

	hash, err := password.Hash(password.Default, plain)
	if err != nil {
		log.Error("failed to hash password", logger.Err(err))
		return ErrCryptoFailed
	}

	err = s.users.Create(ctx, &repository.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if repository.IsConflict(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		log.Error("failed to create user", logger.Username(username), logger.Err(err))
		return ErrStoreFailed
	}

	log.Info("user registered", logger.Username(username))
	return nil
}

func (s *accountService) Login(ctx context.Context, username, plain string) (*LoginResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("auth.login"))

	username = strings.TrimSpace(username)
	if username == "" || plain == "" {
		return nil, ErrMissingFields
	}

	u, err := s.users.GetByUsername(ctx, username)
	if repository.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		log.Error("failed to load user", logger.Err(err))
		return nil, ErrStoreFailed
	}
	if !password.Verify(plain, u.PasswordHash) {
		log.Info("login rejected", logger.Username(username))
		return nil, ErrInvalidCredentials
	}

	if password.IsLegacy(u.PasswordHash) {
		if h, err := password.Hash(password.Default, plain); err == nil {
			if err := s.users.UpdatePasswordHash(ctx, username, h); err != nil {
				log.Warn("failed to rehash legacy password", logger.Username(username), logger.Err(err))
			}
		}
	}

	if u.TOTPEnabled {
		mfaToken, err := tokens.GenerateOpaqueToken(32)
		if err != nil {
			log.Error("failed to generate mfa token", logger.Err(err))
			return nil, ErrCryptoFailed
		}
		payload, _ := json.Marshal(mfaChallenge{Username: u.Username})
		if err := s.cache.Set(ctx, mfaTokenPrefix+mfaToken, string(payload), MFAChallengeTTL); err != nil {
			log.Error("failed to store mfa challenge", logger.Err(err))
			return nil, ErrStoreFailed
		}
		return &LoginResult{MFARequired: true, MFAToken: mfaToken}, nil
	}

	return s.issue(ctx, u.Username)
}

func (s *accountService) VerifyMFA(ctx context.Context, mfaToken, code string) (*LoginResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("auth.verify_mfa"))

	mfaToken = strings.TrimSpace(mfaToken)
	if mfaToken == "" || strings.TrimSpace(code) == "" {
		return nil, ErrMissingFields
	}

	// Take consume el challenge: un código incorrecto obliga a repetir el login.
	payload, err := s.cache.Take(ctx, mfaTokenPrefix+mfaToken)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrMFATokenNotFound
		}
		log.Error("failed to read mfa challenge", logger.Err(err))
		return nil, ErrStoreFailed
	}
	var ch mfaChallenge
	if err := json.Unmarshal([]byte(payload), &ch); err != nil || ch.Username == "" {
		return nil, ErrMFATokenNotFound
	}

	u, err := s.users.GetByUsername(ctx, ch.Username)
	if repository.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		log.Error("failed to load user", logger.Err(err))
		return nil, ErrStoreFailed
	}
	if !u.TOTPEnabled || u.TOTPSecret == "" {
		return nil, ErrMFANotEnabled
	}

	raw, err := decodeSecret(s.cipher, u.TOTPSecret)
	if err != nil {
		log.Error("failed to decrypt totp secret", logger.Username(u.Username), logger.Err(err))
		return nil, ErrCryptoFailed
	}
	ok, counter := totp.Verify(raw, code, s.now(), s.window, u.TOTPLastCounter)
	if !ok {
		log.Info("mfa code rejected", logger.Username(u.Username))
		return nil, ErrInvalidCode
	}
	if err := s.users.MarkTOTPUsed(ctx, u.Username, counter); err != nil {
		if repository.IsPreconditionFailed(err) {
			return nil, ErrInvalidCode
		}
		log.Error("failed to mark totp counter", logger.Err(err))
		return nil, ErrStoreFailed
	}

	return s.issue(ctx, u.Username)
}

func (s *accountService) issue(ctx context.Context, username string) (*LoginResult, error) {
	tok, err := s.session.Issue(username)
	if err != nil {
		logger.From(ctx).Error("failed to sign session", logger.Layer("service"), logger.Err(err))
		return nil, ErrCryptoFailed
	}
	return &LoginResult{
		Username:     username,
		SessionToken: tok,
		ExpiresIn:    s.session.TTL(),
	}, nil
}

// decodeSecret descifra un secreto TOTP guardado y lo decodifica de base32.
func decodeSecret(c Cipher, stored string) ([]byte, error) {
	b32, err := c.Decrypt(stored)
	if err != nil {
		return nil, err
	}
	return totp.DecodeSecret(b32)
}
