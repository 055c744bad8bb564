// Package pluginclient es el cliente del protocolo de plugins: registro,
// emparejamiento con polling acotado y requests del plano de datos con
// rotación de rolling key.
//
// Las rolling keys son de un solo uso, así que el cliente serializa sus
// requests autenticadas y persiste la key nueva después de cada respuesta,
// incluidas las de error que la traen en cabecera.
package pluginclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	plugindto "github.com/dropDatabas3/noke/internal/http/dto/plugin"
	authdto "github.com/dropDatabas3/noke/internal/http/dto/pluginauth"
	"github.com/dropDatabas3/noke/internal/http/middlewares"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

var (
	// ErrNotPaired: no hay rolling key ni token estático.
	ErrNotPaired = errors.New("pluginclient: plugin is not paired")
	// ErrNotRegistered: no hay pluginId/pluginSecret guardados.
	ErrNotRegistered = errors.New("pluginclient: plugin is not registered")
	// ErrReauthRequired: la key quedó inválida y se descartó. Hay que volver
	// a emparejar.
	ErrReauthRequired = errors.New("pluginclient: re-pairing required")
	// ErrAuthTimeout: el usuario no aprobó dentro de la ventana.
	ErrAuthTimeout = errors.New("pluginclient: authorization timed out")
)

// APIError es una respuesta no-2xx del servidor.
type APIError struct {
	Status        int
	Code          string `json:"code"`
	Message       string `json:"message"`
	Detail        string `json:"detail"`
	RequireReauth bool   `json:"requireReauth"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Entry es una entrada del vault tal como la entrega el servidor.
type Entry = plugindto.Entry

// GenerateOptions son las opciones del generador; nil toma el default.
type GenerateOptions = plugindto.GenerateRequest

// SearchResult es el resultado de Search.
type SearchResult struct {
	Entries       []Entry
	MatchedDomain string
}

// AuthRequest es lo que el usuario necesita para aprobar el plugin.
type AuthRequest struct {
	AuthURL   string
	AuthToken string
	ExpiresIn time.Duration
}

// Client habla con un servidor NoKe.
type Client struct {
	baseURL string
	http    *http.Client
	store   CredentialStore
	poll    PollPolicy

	// mu serializa las requests con rolling key.
	mu sync.Mutex
}

// Option configura el Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithPollPolicy(p PollPolicy) Option   { return func(c *Client) { c.poll = p } }

// New crea un cliente contra baseURL (sin /api).
func New(baseURL string, store CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   store,
		poll:    DefaultPollPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Credentials retorna el estado guardado.
func (c *Client) Credentials(ctx context.Context) (*Credentials, error) {
	return c.store.Load(ctx)
}

// Register obtiene un pluginId/pluginSecret nuevo. Descarta cualquier
// emparejamiento previo; conserva el token estático.
func (c *Client) Register(ctx context.Context) (*Credentials, error) {
	var resp authdto.RegisterResponse
	if err := c.call(ctx, http.MethodPost, "/api/plugin-auth/register", nil, nil, &resp); err != nil {
		return nil, err
	}

	creds := &Credentials{PluginID: resp.PluginID, PluginSecret: resp.PluginSecret}
	if prev, err := c.store.Load(ctx); err == nil {
		creds.StaticToken = prev.StaticToken
	}
	if err := c.store.Save(ctx, creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// RequestAuth pide un authToken nuevo; invalida cualquier anterior.
func (c *Client) RequestAuth(ctx context.Context) (*AuthRequest, error) {
	creds, err := c.registered(ctx)
	if err != nil {
		return nil, err
	}

	var resp authdto.RequestAuthResponse
	req := authdto.CredentialsRequest{PluginID: creds.PluginID, PluginSecret: creds.PluginSecret}
	if err := c.call(ctx, http.MethodPost, "/api/plugin-auth/request-auth", req, nil, &resp); err != nil {
		return nil, err
	}
	return &AuthRequest{
		AuthURL:   resp.AuthURL,
		AuthToken: resp.AuthToken,
		ExpiresIn: time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// Pair recorre register (si hace falta) → request-auth → polling. onAuth
// recibe la URL que el usuario debe abrir.
func (c *Client) Pair(ctx context.Context, onAuth func(*AuthRequest)) (*Credentials, error) {
	if _, err := c.registered(ctx); errors.Is(err, ErrNotRegistered) {
		if _, err := c.Register(ctx); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	ar, err := c.RequestAuth(ctx)
	if err != nil {
		return nil, err
	}
	if onAuth != nil {
		onAuth(ar)
	}
	return c.WaitForAuthorization(ctx)
}

// SetStaticToken guarda un API token estático como fallback.
func (c *Client) SetStaticToken(ctx context.Context, token string) error {
	creds, err := c.store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		creds, err = &Credentials{}, nil
	}
	if err != nil {
		return err
	}
	creds.StaticToken = strings.TrimSpace(token)
	return c.store.Save(ctx, creds)
}

// Logout borra todas las credenciales locales. No revoca en el servidor:
// eso lo hace el usuario desde la web.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Validate verifica la credencial actual (y la rota). Retorna el usuario.
func (c *Client) Validate(ctx context.Context) (string, error) {
	var resp authdto.ValidateResponse
	if err := c.doPlugin(ctx, http.MethodPost, "/api/plugin-auth/validate", nil, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

// Entries lista todas las entradas del usuario.
func (c *Client) Entries(ctx context.Context) ([]Entry, error) {
	var resp plugindto.EntriesResponse
	if err := c.doPlugin(ctx, http.MethodGet, "/api/plugin/entries", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Search busca entradas para la URL de la página actual.
func (c *Client) Search(ctx context.Context, pageURL string) (*SearchResult, error) {
	var resp plugindto.SearchResponse
	path := "/api/plugin/search?url=" + url.QueryEscape(pageURL)
	if err := c.doPlugin(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &SearchResult{Entries: resp.Entries, MatchedDomain: resp.MatchedDomain}, nil
}

// Generate pide un password aleatorio al servidor.
func (c *Client) Generate(ctx context.Context, opts GenerateOptions) (string, error) {
	var resp plugindto.GenerateResponse
	if err := c.doPlugin(ctx, http.MethodPost, "/api/plugin/generate", opts, &resp); err != nil {
		return "", err
	}
	return resp.Password, nil
}

func (c *Client) registered(ctx context.Context) (*Credentials, error) {
	creds, err := c.store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) || (err == nil && (creds.PluginID == "" || creds.PluginSecret == "")) {
		return nil, ErrNotRegistered
	}
	return creds, err
}

// doPlugin envía una request autenticada. Con rolling key persiste la key
// siguiente antes de mirar el status; ante requireReauth la descarta.
func (c *Client) doPlugin(ctx context.Context, method, path string, in, out any) error {
	log := logger.From(ctx).With(logger.Component("pluginclient"), logger.Op("request"), logger.Path(path))

	c.mu.Lock()
	defer c.mu.Unlock()

	creds, err := c.store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return ErrNotPaired
	}
	if err != nil {
		return err
	}

	hdr := http.Header{}
	rolling := creds.Paired()
	switch {
	case rolling:
		hdr.Set(middlewares.HeaderPluginID, creds.PluginID)
		hdr.Set(middlewares.HeaderAPIKey, creds.RollingKey)
	case creds.StaticToken != "":
		hdr.Set("Authorization", "Bearer "+creds.StaticToken)
	default:
		return ErrNotPaired
	}

	resp, body, err := c.send(ctx, method, path, in, hdr)
	if err != nil {
		return err
	}

	if rolling {
		if key, ver := nextKey(resp, body); key != "" && key != creds.RollingKey {
			creds.RollingKey, creds.KeyVersion = key, ver
			if err := c.store.Save(ctx, creds); err != nil {
				log.Error("rolling key not persisted", logger.Err(err))
				return fmt.Errorf("pluginclient: persist rolling key: %w", err)
			}
		}
	}

	err = decode(resp, body, out)
	var apiErr *APIError
	if rolling && errors.As(err, &apiErr) && apiErr.RequireReauth {
		log.Warn("rolling key rejected, clearing it", logger.KeyVersion(creds.KeyVersion))
		creds.RollingKey, creds.KeyVersion = "", 0
		if serr := c.store.Save(ctx, creds); serr != nil {
			return errors.Join(ErrReauthRequired, serr)
		}
		return fmt.Errorf("%w: %s", ErrReauthRequired, apiErr.Message)
	}
	return err
}

// nextKey lee la key siguiente: cabecera primero, body como respaldo.
func nextKey(resp *http.Response, body []byte) (string, int64) {
	if k := resp.Header.Get(middlewares.HeaderNewRollingKey); k != "" {
		v, _ := strconv.ParseInt(resp.Header.Get(middlewares.HeaderKeyVersion), 10, 64)
		return k, v
	}
	var rk plugindto.RollingKey
	if json.Unmarshal(body, &rk) == nil {
		return rk.NewRollingKey, rk.KeyVersion
	}
	return "", 0
}

// call es una request sin credenciales del plugin.
func (c *Client) call(ctx context.Context, method, path string, in any, hdr http.Header, out any) error {
	resp, body, err := c.send(ctx, method, path, in, hdr)
	if err != nil {
		return err
	}
	return decode(resp, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, in any, hdr http.Header) (*http.Response, []byte, error) {
	var rdr io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, nil, err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func decode(resp *http.Response, body []byte, out any) error {
	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		if apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
