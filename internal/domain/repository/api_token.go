package repository

import (
	"context"
	"time"
)

// Permisos gruesos de un API token estático.
const (
	PermEntriesRead = "entries:read"
	PermGenerate    = "generate"
)

// AllPermissions es el set por defecto de un token nuevo.
var AllPermissions = []string{PermEntriesRead, PermGenerate}

// APIToken es una credencial estática; solo se guarda su hash.
type APIToken struct {
	ID          string
	Username    string
	Name        string
	TokenHash   string
	Permissions []string
	CreatedAt   time.Time
	LastUsed    *time.Time
	ExpiresAt   *time.Time
}

// Expired reporta si el token venció en now.
func (t *APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// APITokenRepository persiste API tokens.
type APITokenRepository interface {
	// Create inserta un token. ErrConflict si el id o el hash ya existen.
	Create(ctx context.Context, t *APIToken) error

	// GetByHash busca por hash. ErrNotFound si no existe.
	GetByHash(ctx context.Context, tokenHash string) (*APIToken, error)

	// ListByUser lista los tokens de un usuario.
	ListByUser(ctx context.Context, username string) ([]APIToken, error)

	// Delete elimina el token si pertenece a username. ErrNotFound si no.
	Delete(ctx context.Context, id, username string) error

	// TouchLastUsed actualiza LastUsed (last-write-wins).
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}
