package pluginclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	authdto "github.com/dropDatabas3/noke/internal/http/dto/pluginauth"
	"github.com/dropDatabas3/noke/internal/http/services/pluginauth"
	"github.com/dropDatabas3/noke/internal/observability/logger"
)

// PollPolicy acota el polling de check-auth: intervalo fijo y un timeout
// duro igual a la vida del authToken.
type PollPolicy struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultPollPolicy sondea cada 2s durante pluginauth.AuthWindow.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 2 * time.Second, Timeout: pluginauth.AuthWindow}
}

func (p PollPolicy) normalized() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = 2 * time.Second
	}
	if p.Timeout <= 0 || p.Timeout > pluginauth.AuthWindow {
		p.Timeout = pluginauth.AuthWindow
	}
	return p
}

// WaitForAuthorization sondea check-auth hasta que el usuario apruebe, la
// ventana venza o ctx se cancele. Los errores transitorios (red, 5xx) se
// reintentan; cualquier otro corta el polling.
func (c *Client) WaitForAuthorization(ctx context.Context) (*Credentials, error) {
	creds, err := c.registered(ctx)
	if err != nil {
		return nil, err
	}

	p := c.poll.normalized()
	log := logger.From(ctx).With(logger.Component("pluginclient"), logger.Op("poll"), logger.PluginID(creds.PluginID))

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req := authdto.CredentialsRequest{PluginID: creds.PluginID, PluginSecret: creds.PluginSecret}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		var resp authdto.CheckAuthResponse
		err := c.call(ctx, http.MethodPost, "/api/plugin-auth/check-auth", req, nil, &resp)
		switch {
		case err == nil && resp.Authorized && resp.RollingKey != "":
			creds.Username = resp.Username
			creds.RollingKey = resp.RollingKey
			creds.KeyVersion = 1
			if err := c.store.Save(ctx, creds); err != nil {
				return nil, err
			}
			log.Info("plugin paired", logger.Username(resp.Username))
			return creds, nil
		case err == nil && resp.RequireReauth:
			// La key ya se entregó a otro poller.
			return nil, ErrReauthRequired
		case err != nil && !transient(err):
			if ctx.Err() != nil {
				return nil, timeoutOr(ctx)
			}
			return nil, err
		case err != nil:
			log.Debug("check-auth failed, retrying", logger.Err(err))
		}

		select {
		case <-ctx.Done():
			return nil, timeoutOr(ctx)
		case <-ticker.C:
		}
	}
}

func transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	// Errores de red.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func timeoutOr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrAuthTimeout
	}
	return ctx.Err()
}
