package repository

import (
	"context"
	"time"
)

// UnownedGroup es la partición de las instancias todavía no autorizadas.
const UnownedGroup = "_plugins"

// PluginInstance es una instalación del plugin de navegador.
type PluginInstance struct {
	ID    string
	Group string // UnownedGroup o username del dueño

	PluginSecretHash string
	OwnerUsername    string
	Authorized       bool

	RollingKeyHash      string
	RollingKeyVersion   int64
	RollingKeyCreatedAt *time.Time
	PendingRollingKey   string // cifrado; se entrega una sola vez

	AuthRequestTokenHash string
	AuthRequestExpiry    *time.Time

	CreatedAt    time.Time
	LastSeen     time.Time
	AuthorizedAt *time.Time
	RevokedAt    *time.Time

	// Version es el etag para escrituras condicionales. Lo asigna el store.
	Version int64
	// UpdatedAt lo asigna el store en cada escritura.
	UpdatedAt time.Time
}

// Clone retorna una copia profunda (los punteros a time no se comparten).
func (p *PluginInstance) Clone() *PluginInstance {
	c := *p
	c.RollingKeyCreatedAt = cloneTime(p.RollingKeyCreatedAt)
	c.AuthRequestExpiry = cloneTime(p.AuthRequestExpiry)
	c.AuthorizedAt = cloneTime(p.AuthorizedAt)
	c.RevokedAt = cloneTime(p.RevokedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// PluginRepository persiste instancias de plugin.
type PluginRepository interface {
	// Create inserta p en (p.ID, p.Group). ErrConflict si ya existe.
	// Asigna p.Version y p.UpdatedAt.
	Create(ctx context.Context, p *PluginInstance) error

	// Get busca por id dentro de un group. ErrNotFound si no existe.
	Get(ctx context.Context, id, group string) (*PluginInstance, error)

	// FindByID busca por id en cualquier group. Si hay más de una copia
	// (relocación con borrado fallido) retorna la escrita más recientemente.
	FindByID(ctx context.Context, id string) (*PluginInstance, error)

	// ListByGroup lista las instancias de un group ordenadas por CreatedAt.
	ListByGroup(ctx context.Context, group string) ([]PluginInstance, error)

	// Update reemplaza el documento si su versión almacenada sigue siendo
	// p.Version. Si no, ErrPreconditionFailed; si no existe, ErrNotFound.
	// En éxito incrementa p.Version y asigna p.UpdatedAt.
	Update(ctx context.Context, p *PluginInstance) error

	// Delete elimina (id, group). ErrNotFound si no existe.
	Delete(ctx context.Context, id, group string) error
}
