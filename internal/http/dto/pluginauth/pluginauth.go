// Package pluginauth contiene los DTOs de /api/plugin-auth/*.
package pluginauth

import "time"

// RegisterResponse es la respuesta de POST /api/plugin-auth/register.
// PluginSecret no se vuelve a entregar.
type RegisterResponse struct {
	Success      bool   `json:"success"`
	PluginID     string `json:"pluginId"`
	PluginSecret string `json:"pluginSecret"`
}

// CredentialsRequest es el body de request-auth y check-auth.
type CredentialsRequest struct {
	PluginID     string `json:"pluginId" validate:"required"`
	PluginSecret string `json:"pluginSecret" validate:"required"`
}

// RequestAuthResponse es la respuesta de POST /api/plugin-auth/request-auth.
type RequestAuthResponse struct {
	Success   bool   `json:"success"`
	AuthURL   string `json:"authUrl"`
	AuthToken string `json:"authToken"`
	ExpiresIn int64  `json:"expiresIn"` // segundos
}

// AuthorizeRequest es el body de POST /api/plugin-auth/authorize. Username
// es opcional: si viene debe coincidir con la sesión.
type AuthorizeRequest struct {
	PluginID  string `json:"pluginId" validate:"required"`
	AuthToken string `json:"authToken" validate:"required"`
	Username  string `json:"username,omitempty"`
}

// AuthorizeResponse es la respuesta de authorize.
type AuthorizeResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
}

// CheckAuthResponse es la respuesta del polling. Authorized=false es
// "esperando aprobación".
type CheckAuthResponse struct {
	Success       bool   `json:"success"`
	Authorized    bool   `json:"authorized"`
	RequireReauth bool   `json:"requireReauth,omitempty"`
	Username      string `json:"username,omitempty"`
	RollingKey    string `json:"rollingKey,omitempty"`
}

// ValidateResponse es la respuesta de POST /api/plugin-auth/validate.
type ValidateResponse struct {
	Success       bool   `json:"success"`
	Username      string `json:"username"`
	NewRollingKey string `json:"newRollingKey,omitempty"`
	KeyVersion    int64  `json:"keyVersion,omitempty"`
}

// RevokeRequest es el body de POST /api/plugin-auth/revoke.
type RevokeRequest struct {
	PluginID string `json:"pluginId" validate:"required"`
	Username string `json:"username,omitempty"`
}

// ListRequest es el body de POST /api/plugin-auth/list.
type ListRequest struct {
	Username string `json:"username,omitempty"`
}

// SuccessResponse es la respuesta de revoke.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// PluginSummary es un item de ListResponse.
type PluginSummary struct {
	ID                string     `json:"id"`
	Authorized        bool       `json:"authorized"`
	AuthorizedAt      *time.Time `json:"authorizedAt"`
	LastSeen          time.Time  `json:"lastSeen"`
	RollingKeyVersion int64      `json:"rollingKeyVersion"`
}

// ListResponse es la respuesta de list.
type ListResponse struct {
	Success bool            `json:"success"`
	Plugins []PluginSummary `json:"plugins"`
}
