// Package plugindata sirve el plano de datos del plugin: entradas del vault,
// búsqueda por dominio y generación de passwords.
package plugindata

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/url"
	"strings"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

const (
	DefaultLength = 16
	MinLength     = 4
	MaxLength     = 128

	// defaultName es el nombre que muestra el plugin para una entrada sin nombre.
	defaultName = "Unbenannt"

	charsLower   = "abcdefghijklmnopqrstuvwxyz"
	charsUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	charsDigits  = "0123456789"
	charsSymbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

var (
	ErrMissingURL   = errors.New("url is required")
	ErrNoCharset    = errors.New("at least one character class must be enabled")
	ErrStoreFailed  = errors.New("entries store failed")
	ErrCryptoFailed = errors.New("password generation failed")
)

// Cipher descifra los passwords de las entradas.
type Cipher interface {
	Decrypt(value string) (string, error)
}

// Service define las operaciones del plano de datos. El username llega ya
// autenticado por el validador.
type Service interface {
	Entries(ctx context.Context, username string) ([]Entry, error)
	Search(ctx context.Context, username, rawURL string) (*SearchResult, error)
	Generate(ctx context.Context, opts GenerateOptions) (string, error)
}

// Entry es la vista de una entrada con el password descifrado.
type Entry struct {
	ID            string
	Name          string
	LoginUsername string
	Password      string
	URL           string
	Notes         string
	Folder        *string
}

// SearchResult incluye el dominio que se usó para comparar.
type SearchResult struct {
	Entries       []Entry
	MatchedDomain string
}

// GenerateOptions: los campos nil toman el valor por defecto (16, todo activo).
type GenerateOptions struct {
	Length    *int
	Uppercase *bool
	Lowercase *bool
	Numbers   *bool
	Symbols   *bool
}

// Deps contiene las dependencias del service.
type Deps struct {
	Entries repository.EntryRepository
	Cipher  Cipher
}

type service struct {
	entries repository.EntryRepository
	cipher  Cipher
}

// NewService crea el service del plano de datos.
func NewService(d Deps) Service {
	return &service{entries: d.Entries, cipher: d.Cipher}
}

func (s *service) Entries(ctx context.Context, username string) ([]Entry, error) {
	items, err := s.list(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, items), nil
}

func (s *service) Search(ctx context.Context, username, rawURL string) (*SearchResult, error) {
	domain := searchDomain(rawURL)
	if domain == "" {
		return nil, ErrMissingURL
	}

	items, err := s.list(ctx, username)
	if err != nil {
		return nil, err
	}
	matched := make([]repository.Entry, 0, len(items))
	for _, e := range items {
		if entryMatches(e.URL, domain) {
			matched = append(matched, e)
		}
	}
	return &SearchResult{Entries: s.view(ctx, matched), MatchedDomain: domain}, nil
}

func (s *service) list(ctx context.Context, username string) ([]repository.Entry, error) {
	items, err := s.entries.ListByUser(ctx, username)
	if err != nil {
		logger.From(ctx).Error("failed to list entries", logger.Layer("service"),
			logger.Op("plugindata.list"), logger.Username(username), logger.Err(err))
		return nil, ErrStoreFailed
	}
	return items, nil
}

// view descifra y aplica los defaults de presentación. Un password que no
// descifra se entrega vacío para no romper el listado completo.
func (s *service) view(ctx context.Context, items []repository.Entry) []Entry {
	out := make([]Entry, 0, len(items))
	for _, e := range items {
		name := e.Name
		if name == "" {
			name = defaultName
		}
		pw := ""
		if e.Password != "" {
			var err error
			if pw, err = s.cipher.Decrypt(e.Password); err != nil {
				logger.From(ctx).Warn("failed to decrypt entry password", logger.Layer("service"),
					logger.String("entry_id", e.ID), logger.Err(err))
				pw = ""
			}
		}
		out = append(out, Entry{
			ID:            e.ID,
			Name:          name,
			LoginUsername: e.LoginUsername,
			Password:      pw,
			URL:           e.URL,
			Notes:         e.Notes,
			Folder:        e.Folder,
		})
	}
	return out
}

// searchDomain extrae el host sin "www." o, si rawURL no es una URL
// absoluta, usa el texto tal cual.
func searchDomain(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if host := hostOf(rawURL); host != "" {
		return host
	}
	return strings.TrimPrefix(rawURL, "www.")
}

func entryMatches(entryURL, domain string) bool {
	if entryURL == "" {
		return false
	}
	host := hostOf(entryURL)
	if host == "" {
		return strings.Contains(entryURL, domain)
	}
	return strings.Contains(host, domain) || strings.Contains(domain, host)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func (s *service) Generate(_ context.Context, opts GenerateOptions) (string, error) {
	length := DefaultLength
	if opts.Length != nil {
		length = min(max(*opts.Length, MinLength), MaxLength)
	}

	var charset strings.Builder
	if flag(opts.Lowercase) {
		charset.WriteString(charsLower)
	}
	if flag(opts.Uppercase) {
		charset.WriteString(charsUpper)
	}
	if flag(opts.Numbers) {
		charset.WriteString(charsDigits)
	}
	if flag(opts.Symbols) {
		charset.WriteString(charsSymbols)
	}
	chars := charset.String()
	if chars == "" {
		return "", ErrNoCharset
	}

	// rand.Int hace rejection sampling, sin sesgo de módulo.
	n := big.NewInt(int64(len(chars)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", ErrCryptoFailed
		}
		out[i] = chars[idx.Int64()]
	}
	return string(out), nil
}

func flag(v *bool) bool { return v == nil || *v }
