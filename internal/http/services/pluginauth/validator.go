package pluginauth

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/domain/types"
	"github.com/dropDatabas3/noke/internal/metrics"
	"github.com/dropDatabas3/noke/internal/observability/logger"
	tokens "github.com/dropDatabas3/noke/internal/security/token"
)

// Credentials son las cabeceras de autenticación de una request del plugin.
type Credentials struct {
	PluginID string // x-plugin-id; presente = modo rolling
	APIKey   string // x-api-key
	Bearer   string // Authorization: Bearer (solo token estático)
}

// Validator resuelve el principal de una request del plano de datos.
type Validator interface {
	// Validate autentica la request. En modo rolling rota la key: el
	// principal retornado trae la siguiente y la presentada queda gastada.
	Validate(ctx context.Context, c Credentials) (*types.Principal, error)
}

type validator struct {
	plugins repository.PluginRepository
	tokens  repository.APITokenRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewValidator crea el validador rolling/static.
func NewValidator(d Deps) Validator {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &validator{
		plugins: d.Plugins,
		tokens:  d.Tokens,
		metrics: d.Metrics,
		now:     now,
	}
}

func (v *validator) Validate(ctx context.Context, c Credentials) (*types.Principal, error) {
	pluginID := strings.TrimSpace(c.PluginID)
	apiKey := strings.TrimSpace(c.APIKey)

	if pluginID != "" {
		p, err := v.rolling(ctx, pluginID, apiKey)
		v.observe(types.AuthModeRolling, err)
		return p, err
	}

	raw := apiKey
	if raw == "" {
		raw = strings.TrimSpace(c.Bearer)
	}
	if raw == "" {
		return nil, ErrUnauthorized
	}
	p, err := v.static(ctx, raw)
	v.observe(types.AuthModeStatic, err)
	return p, err
}

func (v *validator) observe(mode types.AuthMode, err error) {
	result := resultLabel(err)
	v.metrics.PluginAuth(OpValidate.String(), result)
	v.metrics.Validation(string(mode), result)
}

func (v *validator) rolling(ctx context.Context, pluginID, key string) (*types.Principal, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.validate"),
		logger.PluginID(pluginID), logger.AuthMode(string(types.AuthModeRolling)))

	if key == "" {
		return nil, ErrUnauthorized
	}
	p, err := v.plugins.FindByID(ctx, pluginID)
	if repository.IsNotFound(err) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		log.Error("failed to load plugin", logger.Err(err))
		return nil, ErrStoreFailed
	}
	if !p.Authorized || p.OwnerUsername == "" || p.RollingKeyHash == "" {
		return nil, ErrUnauthorized
	}
	if !tokens.EqualHash(key, p.RollingKeyHash) {
		log.Warn("stale rolling key presented", logger.KeyVersion(p.RollingKeyVersion))
		v.metrics.RequireReauth("stale_key")
		return nil, ErrRequireReauth
	}

	next, err := tokens.GenerateSecret()
	if err != nil {
		log.Error("failed to generate rolling key", logger.Err(err))
		return nil, ErrCryptoFailed
	}

	now := v.now().UTC()
	p.RollingKeyHash = tokens.SHA256Hex(next)
	p.RollingKeyVersion++
	p.RollingKeyCreatedAt = &now
	p.LastSeen = now

	// De dos requests con la misma key solo una gana la escritura; la otra
	// presentó una key que ya no es la vigente.
	err = v.plugins.Update(ctx, p)
	if repository.IsPreconditionFailed(err) || repository.IsNotFound(err) {
		log.Warn("rolling key rotation lost race")
		v.metrics.RequireReauth("race")
		return nil, ErrRequireReauth
	}
	if err != nil {
		log.Error("failed to rotate rolling key", logger.Err(err))
		return nil, ErrStoreFailed
	}
	v.metrics.KeyRotated()

	return &types.Principal{
		Username:      p.OwnerUsername,
		Mode:          types.AuthModeRolling,
		PluginID:      p.ID,
		NewRollingKey: next,
		KeyVersion:    p.RollingKeyVersion,
	}, nil
}

func (v *validator) static(ctx context.Context, raw string) (*types.Principal, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.validate"),
		logger.AuthMode(string(types.AuthModeStatic)))

	t, err := v.tokens.GetByHash(ctx, tokens.SHA256Hex(raw))
	if repository.IsNotFound(err) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		log.Error("failed to load api token", logger.Err(err))
		return nil, ErrStoreFailed
	}
	now := v.now().UTC()
	if t.Expired(now) {
		return nil, ErrUnauthorized
	}

	if err := v.tokens.TouchLastUsed(ctx, t.ID, now); err != nil {
		log.Warn("failed to touch api token", logger.TokenID(t.ID), logger.Err(err))
	}

	perms := t.Permissions
	if len(perms) == 0 {
		perms = repository.AllPermissions
	}
	return &types.Principal{
		Username:    t.Username,
		Mode:        types.AuthModeStatic,
		TokenID:     t.ID,
		Permissions: slices.Clone(perms),
	}, nil
}
