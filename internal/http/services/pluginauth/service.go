package pluginauth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/metrics"
	"github.com/dropDatabas3/noke/internal/observability/logger"
	tokens "github.com/dropDatabas3/noke/internal/security/token"
	"github.com/google/uuid"
)

// Service define las operaciones de registro y emparejamiento de plugins.
type Service interface {
	// Register crea una instancia nueva en el grupo sin dueño. El secreto
	// retornado no se puede recuperar después.
	Register(ctx context.Context) (*Registration, error)

	// RequestAuth emite un auth request token de vida AuthWindow y la URL que
	// el usuario abre para aprobar. Reemplaza cualquier token anterior.
	RequestAuth(ctx context.Context, pluginID, pluginSecret string) (*AuthRequest, error)

	// Authorize empareja la instancia con username desde la sesión web.
	// Nunca retorna la rolling key.
	Authorize(ctx context.Context, pluginID, authToken, username string) error

	// CheckAuth es el polling del plugin. Entrega la rolling key una sola vez.
	CheckAuth(ctx context.Context, pluginID, pluginSecret string) (*CheckResult, error)

	// Revoke desautoriza una instancia del usuario sin borrar el registro.
	Revoke(ctx context.Context, pluginID, username string) error

	// List retorna metadata no secreta de las instancias del usuario.
	List(ctx context.Context, username string) ([]Summary, error)
}

// Registration es el resultado de Register.
type Registration struct {
	PluginID     string
	PluginSecret string
}

// AuthRequest es el resultado de RequestAuth.
type AuthRequest struct {
	AuthURL   string
	AuthToken string
	ExpiresIn time.Duration
}

// CheckResult es el resultado del polling. Authorized=false significa
// "esperando aprobación" y no es un error.
type CheckResult struct {
	Authorized    bool
	RequireReauth bool
	Username      string
	RollingKey    string
}

// Summary es la vista pública de una instancia.
type Summary struct {
	ID                string
	Authorized        bool
	AuthorizedAt      *time.Time
	LastSeen          time.Time
	RollingKeyVersion int64
}

type service struct {
	plugins repository.PluginRepository
	cipher  Cipher
	baseURL string
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService crea el service de autorización.
func NewService(d Deps) Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		plugins: d.Plugins,
		cipher:  d.Cipher,
		baseURL: strings.TrimRight(d.PublicBaseURL, "/"),
		metrics: d.Metrics,
		now:     now,
	}
}

func (s *service) Register(ctx context.Context) (*Registration, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.register"))

	secret, err := tokens.GenerateSecret()
	if err != nil {
		log.Error("failed to generate plugin secret", logger.Err(err))
		return nil, ErrCryptoFailed
	}

	now := s.now().UTC()
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p := &repository.PluginInstance{
			ID:               "plugin_" + uuid.NewString(),
			Group:            repository.UnownedGroup,
			PluginSecretHash: tokens.SHA256Hex(secret),
			CreatedAt:        now,
			LastSeen:         now,
		}
		err = s.plugins.Create(ctx, p)
		if repository.IsConflict(err) {
			continue
		}
		if err != nil {
			log.Error("failed to create plugin instance", logger.Err(err))
			s.observe(OpRegister, ErrStoreFailed)
			return nil, ErrStoreFailed
		}
		log.Info("plugin registered", logger.PluginID(p.ID))
		s.observe(OpRegister, nil)
		return &Registration{PluginID: p.ID, PluginSecret: secret}, nil
	}
	s.observe(OpRegister, ErrConcurrentUpdate)
	return nil, ErrConcurrentUpdate
}

func (s *service) RequestAuth(ctx context.Context, pluginID, pluginSecret string) (*AuthRequest, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.request_auth"))

	pluginID = strings.TrimSpace(pluginID)
	if pluginID == "" || pluginSecret == "" {
		return nil, ErrMissingFields
	}

	authToken, err := tokens.GenerateSecret()
	if err != nil {
		log.Error("failed to generate auth token", logger.Err(err))
		return nil, ErrCryptoFailed
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := s.load(ctx, pluginID)
		if err == ErrNotFound {
			s.observe(OpRequestAuth, ErrUnauthenticated)
			return nil, ErrUnauthenticated
		}
		if err != nil {
			return nil, err
		}
		if !tokens.EqualHash(pluginSecret, p.PluginSecretHash) {
			log.Warn("plugin secret mismatch", logger.PluginID(pluginID))
			s.observe(OpRequestAuth, ErrUnauthenticated)
			return nil, ErrUnauthenticated
		}

		exp := s.now().UTC().Add(AuthWindow)
		p.AuthRequestTokenHash = tokens.SHA256Hex(authToken)
		p.AuthRequestExpiry = &exp

		err = s.plugins.Update(ctx, p)
		if repository.IsPreconditionFailed(err) {
			continue
		}
		if err != nil {
			log.Error("failed to store auth request", logger.PluginID(pluginID), logger.Err(err))
			return nil, ErrStoreFailed
		}

		s.observe(OpRequestAuth, nil)
		return &AuthRequest{
			AuthURL:   s.authURL(pluginID, authToken),
			AuthToken: authToken,
			ExpiresIn: AuthWindow,
		}, nil
	}
	s.observe(OpRequestAuth, ErrConcurrentUpdate)
	return nil, ErrConcurrentUpdate
}

// authURL arma la URL de aprobación. El token va en el fragmento para que
// no llegue al servidor ni a cabeceras Referer.
func (s *service) authURL(pluginID, authToken string) string {
	return s.baseURL + "/#/plugin-auth?pluginId=" + url.QueryEscape(pluginID) +
		"&authToken=" + url.QueryEscape(authToken)
}

func (s *service) Authorize(ctx context.Context, pluginID, authToken, username string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.authorize"))

	pluginID = strings.TrimSpace(pluginID)
	username = strings.TrimSpace(username)
	if pluginID == "" || authToken == "" || username == "" {
		return ErrMissingFields
	}

	p, err := s.load(ctx, pluginID)
	if err != nil {
		s.observe(OpAuthorize, err)
		return err
	}
	// Solo se busca en el grupo sin dueño y en el del propio usuario.
	if p.Group != repository.UnownedGroup && p.Group != username {
		s.observe(OpAuthorize, ErrNotFound)
		return ErrNotFound
	}
	if !tokens.EqualHash(authToken, p.AuthRequestTokenHash) {
		log.Warn("auth token mismatch", logger.PluginID(pluginID))
		s.observe(OpAuthorize, ErrUnauthenticated)
		return ErrUnauthenticated
	}
	now := s.now().UTC()
	if p.AuthRequestExpiry == nil || now.After(*p.AuthRequestExpiry) {
		s.observe(OpAuthorize, ErrExpired)
		return ErrExpired
	}

	rollingKey, err := tokens.GenerateSecret()
	if err != nil {
		log.Error("failed to generate rolling key", logger.Err(err))
		return ErrCryptoFailed
	}
	pending, err := s.cipher.Encrypt(rollingKey)
	if err != nil {
		log.Error("failed to encrypt rolling key", logger.Err(err))
		return ErrCryptoFailed
	}

	next := p.Clone()
	next.Authorized = true
	next.OwnerUsername = username
	next.RollingKeyHash = tokens.SHA256Hex(rollingKey)
	next.RollingKeyVersion = 1
	next.RollingKeyCreatedAt = &now
	next.PendingRollingKey = pending
	next.AuthRequestTokenHash = ""
	next.AuthRequestExpiry = nil
	next.AuthorizedAt = &now
	next.RevokedAt = nil

	if p.Group == username {
		err = s.plugins.Update(ctx, next)
	} else {
		// La copia vieja queda sin auth token: un segundo authorize falla.
		claimed := p.Clone()
		claimed.AuthRequestTokenHash = ""
		claimed.AuthRequestExpiry = nil
		err = s.relocate(ctx, claimed, next, username)
	}
	if err != nil {
		switch {
		case err == ErrConcurrentUpdate, repository.IsPreconditionFailed(err), repository.IsNotFound(err):
			err = ErrConcurrentUpdate
		default:
			log.Error("failed to authorize plugin", logger.PluginID(pluginID), logger.Err(err))
			err = ErrStoreFailed
		}
		s.observe(OpAuthorize, err)
		return err
	}

	log.Info("plugin authorized", logger.PluginID(pluginID), logger.Username(username))
	s.observe(OpAuthorize, nil)
	return nil
}

// relocate mueve la instancia a otro grupo en dos fases. Primero escribe
// claimed sobre la copia vieja (escritura condicional, así dos escritores
// concurrentes no ganan ambos), después escribe la copia nueva en group y
// por último borra la vieja. Si el borrado falla la copia vieja queda
// huérfana y sombreada por la nueva en FindByID. claimed debe dejar la
// copia vieja en un estado que no autentique.
func (s *service) relocate(ctx context.Context, claimed, next *repository.PluginInstance, group string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.relocate"))

	if err := s.plugins.Update(ctx, claimed); err != nil {
		if repository.IsPreconditionFailed(err) || repository.IsNotFound(err) {
			return ErrConcurrentUpdate
		}
		return err
	}

	moved := next.Clone()
	moved.Group = group
	err := s.plugins.Create(ctx, moved)
	if repository.IsConflict(err) {
		// Copia huérfana de una relocación anterior en el mismo grupo.
		var cur *repository.PluginInstance
		cur, err = s.plugins.Get(ctx, moved.ID, group)
		if err == nil {
			moved.Version = cur.Version
			err = s.plugins.Update(ctx, moved)
		}
	}
	if err != nil {
		return err
	}

	if err := s.plugins.Delete(ctx, claimed.ID, claimed.Group); err != nil && !repository.IsNotFound(err) {
		log.Warn("failed to delete relocated plugin copy",
			logger.PluginID(claimed.ID), logger.String("group", claimed.Group), logger.Err(err))
	}
	return nil
}

func (s *service) CheckAuth(ctx context.Context, pluginID, pluginSecret string) (*CheckResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.check_auth"))

	pluginID = strings.TrimSpace(pluginID)
	if pluginID == "" || pluginSecret == "" {
		return nil, ErrMissingFields
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := s.load(ctx, pluginID)
		if err != nil {
			s.observe(OpCheckAuth, err)
			return nil, err
		}
		if !tokens.EqualHash(pluginSecret, p.PluginSecretHash) {
			log.Warn("plugin secret mismatch", logger.PluginID(pluginID))
			s.observe(OpCheckAuth, ErrUnauthenticated)
			return nil, ErrUnauthenticated
		}
		if !p.Authorized || p.OwnerUsername == "" {
			s.metrics.PluginAuth(OpCheckAuth.String(), "waiting")
			return &CheckResult{Authorized: false}, nil
		}
		if p.PendingRollingKey == "" {
			s.metrics.RequireReauth("key_delivered")
			return &CheckResult{Authorized: true, RequireReauth: true}, nil
		}

		rollingKey, err := s.cipher.Decrypt(p.PendingRollingKey)
		if err != nil {
			log.Error("failed to decrypt pending rolling key", logger.PluginID(pluginID), logger.Err(err))
			return nil, ErrCryptoFailed
		}

		// La key se entrega solo si esta escritura gana; otro poller
		// concurrente vuelve a leer y ve el campo vacío.
		p.PendingRollingKey = ""
		p.LastSeen = s.now().UTC()
		err = s.plugins.Update(ctx, p)
		if repository.IsPreconditionFailed(err) {
			continue
		}
		if err != nil {
			log.Error("failed to clear pending rolling key", logger.PluginID(pluginID), logger.Err(err))
			return nil, ErrStoreFailed
		}

		s.observe(OpCheckAuth, nil)
		return &CheckResult{
			Authorized: true,
			Username:   p.OwnerUsername,
			RollingKey: rollingKey,
		}, nil
	}
	s.observe(OpCheckAuth, ErrConcurrentUpdate)
	return nil, ErrConcurrentUpdate
}

func (s *service) Revoke(ctx context.Context, pluginID, username string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.revoke"))

	pluginID = strings.TrimSpace(pluginID)
	username = strings.TrimSpace(username)
	if pluginID == "" || username == "" {
		return ErrMissingFields
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := s.load(ctx, pluginID)
		if err != nil {
			s.observe(OpRevoke, err)
			return err
		}
		if p.Group != username || p.OwnerUsername != username {
			s.observe(OpRevoke, ErrNotFound)
			return ErrNotFound
		}

		now := s.now().UTC()
		next := p.Clone()
		next.Authorized = false
		next.OwnerUsername = ""
		next.RollingKeyHash = ""
		next.RollingKeyVersion = 0
		next.RollingKeyCreatedAt = nil
		next.PendingRollingKey = ""
		next.AuthRequestTokenHash = ""
		next.AuthRequestExpiry = nil
		next.RevokedAt = &now

		// La instancia vuelve al grupo sin dueño: deja de listarse para el
		// usuario y cualquiera puede volver a emparejarla.
		err = s.relocate(ctx, next.Clone(), next, repository.UnownedGroup)
		if err == ErrConcurrentUpdate {
			continue
		}
		if err != nil {
			log.Error("failed to revoke plugin", logger.PluginID(pluginID), logger.Err(err))
			return ErrStoreFailed
		}

		log.Info("plugin revoked", logger.PluginID(pluginID), logger.Username(username))
		s.observe(OpRevoke, nil)
		return nil
	}
	s.observe(OpRevoke, ErrConcurrentUpdate)
	return ErrConcurrentUpdate
}

func (s *service) List(ctx context.Context, username string) ([]Summary, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.list"))

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrMissingFields
	}

	items, err := s.plugins.ListByGroup(ctx, username)
	if err != nil {
		log.Error("failed to list plugins", logger.Username(username), logger.Err(err))
		return nil, ErrStoreFailed
	}

	out := make([]Summary, 0, len(items))
	for _, p := range items {
		// Copia vieja de un revoke cuyo borrado falló.
		if p.OwnerUsername != username {
			continue
		}
		out = append(out, Summary{
			ID:                p.ID,
			Authorized:        p.Authorized,
			AuthorizedAt:      p.AuthorizedAt,
			LastSeen:          p.LastSeen,
			RollingKeyVersion: p.RollingKeyVersion,
		})
	}
	s.observe(OpList, nil)
	return out, nil
}

// load busca la instancia por id y traduce los errores del store.
func (s *service) load(ctx context.Context, pluginID string) (*repository.PluginInstance, error) {
	p, err := s.plugins.FindByID(ctx, pluginID)
	if repository.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.From(ctx).Error("failed to load plugin", logger.Layer("service"),
			logger.PluginID(pluginID), logger.Err(err))
		return nil, ErrStoreFailed
	}
	return p, nil
}

func (s *service) observe(op Operation, err error) {
	s.metrics.PluginAuth(op.String(), resultLabel(err))
}

// resultLabel reduce un error del paquete a una etiqueta de métrica.
func resultLabel(err error) string {
	switch err {
	case nil:
		return "ok"
	case ErrUnauthenticated:
		return "unauthenticated"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrRequireReauth:
		return "require_reauth"
	case ErrNotFound:
		return "not_found"
	case ErrExpired:
		return "expired"
	case ErrConcurrentUpdate:
		return "conflict"
	default:
		return "error"
	}
}
