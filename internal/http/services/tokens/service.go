// Package tokens administra los API tokens estáticos del usuario.
package tokens

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/observability/logger"
	sectokens "github.com/dropDatabas3/noke/internal/security/token"
	"github.com/google/uuid"
)

const defaultName = "API Token"

var (
	ErrInvalidExpiry     = errors.New("expiresIn must be one of 30d, 90d, 1y, never")
	ErrInvalidPermission = errors.New("unknown permission")
	ErrNotFound          = errors.New("token not found")
	ErrStoreFailed       = errors.New("token store failed")
	ErrCryptoFailed      = errors.New("token generation failed")
)

// expiries mapea los valores aceptados de expiresIn. 0 = sin vencimiento.
var expiries = map[string]time.Duration{
	"30d":   30 * 24 * time.Hour,
	"90d":   90 * 24 * time.Hour,
	"1y":    365 * 24 * time.Hour,
	"never": 0,
}

// Service define la gestión de tokens.
type Service interface {
	List(ctx context.Context, username string) ([]Token, error)

	// Create retorna el token en claro; es la única vez que se expone.
	Create(ctx context.Context, username string, in CreateInput) (*Created, error)

	Delete(ctx context.Context, username, tokenID string) error
}

// CreateInput son los parámetros de Create. ExpiresIn vacío equivale a never.
type CreateInput struct {
	Name        string
	ExpiresIn   string
	Permissions []string
}

// Token es la vista pública de un token (sin hash).
type Token struct {
	ID          string
	Name        string
	Permissions []string
	CreatedAt   time.Time
	LastUsed    *time.Time
	ExpiresAt   *time.Time
}

// Created es el resultado de Create.
type Created struct {
	Token
	Raw string
}

type service struct {
	repo repository.APITokenRepository
	now  func() time.Time
}

// NewService crea el service. now nil = time.Now.
func NewService(repo repository.APITokenRepository, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}
}

func (s *service) List(ctx context.Context, username string) ([]Token, error) {
	items, err := s.repo.ListByUser(ctx, username)
	if err != nil {
		logger.From(ctx).Error("failed to list tokens", logger.Layer("service"),
			logger.Op("tokens.list"), logger.Err(err))
		return nil, ErrStoreFailed
	}
	out := make([]Token, 0, len(items))
	for _, t := range items {
		out = append(out, view(t))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, username string, in CreateInput) (*Created, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("tokens.create"))

	expiresIn := strings.TrimSpace(in.ExpiresIn)
	if expiresIn == "" {
		expiresIn = "never"
	}
	ttl, ok := expiries[expiresIn]
	if !ok {
		return nil, ErrInvalidExpiry
	}

	perms := repository.AllPermissions
	if len(in.Permissions) > 0 {
		for _, p := range in.Permissions {
			if !slices.Contains(repository.AllPermissions, p) {
				return nil, ErrInvalidPermission
			}
		}
		perms = in.Permissions
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = defaultName
	}

	raw, err := sectokens.GenerateSecret()
	if err != nil {
		log.Error("failed to generate token", logger.Err(err))
		return nil, ErrCryptoFailed
	}

	now := s.now().UTC()
	t := &repository.APIToken{
		ID:          "token_" + uuid.NewString(),
		Username:    username,
		Name:        name,
		TokenHash:   sectokens.SHA256Hex(raw),
		Permissions: slices.Clone(perms),
		CreatedAt:   now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		t.ExpiresAt = &exp
	}

	if err := s.repo.Create(ctx, t); err != nil {
		log.Error("failed to store token", logger.Err(err))
		return nil, ErrStoreFailed
	}

	log.Info("api token created", logger.TokenID(t.ID), logger.Username(username))
	return &Created{Token: view(*t), Raw: raw}, nil
}

func (s *service) Delete(ctx context.Context, username, tokenID string) error {
	err := s.repo.Delete(ctx, strings.TrimSpace(tokenID), username)
	if repository.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		logger.From(ctx).Error("failed to delete token", logger.Layer("service"),
			logger.Op("tokens.delete"), logger.Err(err))
		return ErrStoreFailed
	}
	return nil
}

func view(t repository.APIToken) Token {
	return Token{
		ID:          t.ID,
		Name:        t.Name,
		Permissions: t.Permissions,
		CreatedAt:   t.CreatedAt,
		LastUsed:    t.LastUsed,
		ExpiresAt:   t.ExpiresAt,
	}
}
