package pluginclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/dropDatabas3/noke/internal/util/atomicwrite"
)

// ErrNoCredentials indica que el store está vacío.
var ErrNoCredentials = errors.New("pluginclient: no stored credentials")

// Credentials es el estado persistente del plugin.
type Credentials struct {
	PluginID     string `json:"pluginId,omitempty"`
	PluginSecret string `json:"pluginSecret,omitempty"`
	Username     string `json:"username,omitempty"`
	RollingKey   string `json:"rollingKey,omitempty"`
	KeyVersion   int64  `json:"keyVersion,omitempty"`

	// StaticToken es el fallback legacy: se usa solo si no hay rolling key.
	StaticToken string `json:"staticToken,omitempty"`
}

// Paired reporta si hay una rolling key utilizable.
func (c *Credentials) Paired() bool {
	return c != nil && c.PluginID != "" && c.RollingKey != ""
}

// CredentialStore guarda las credenciales del plugin entre ejecuciones.
type CredentialStore interface {
	// Load retorna una copia. ErrNoCredentials si nunca se guardó nada.
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, c *Credentials) error
	Clear(ctx context.Context) error
}

// ─── File ───

// FileStore persiste las credenciales como JSON con permisos 0600.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (*Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, err
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("pluginclient: parse %s: %w", s.path, err)
	}
	return &c, nil
}

func (s *FileStore) Save(ctx context.Context, c *Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicwrite.WriteFile(s.path, b, 0o600)
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ─── Memory ───

// MemoryStore mantiene las credenciales en memoria. Para tests y para
// procesos que no deben tocar disco.
type MemoryStore struct {
	mu sync.Mutex
	c  *Credentials
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(_ context.Context) (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return nil, ErrNoCredentials
	}
	cp := *s.c
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, c *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.c = &cp
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = nil
	return nil
}
