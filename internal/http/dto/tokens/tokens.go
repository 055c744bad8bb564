// Package tokens contiene los DTOs de /api/tokens.
package tokens

import "time"

// Token es un item del listado (sin el valor en claro).
type Token struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUsed    *time.Time `json:"lastUsed"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// ListResponse es la respuesta de GET /api/tokens.
type ListResponse struct {
	Success bool    `json:"success"`
	Tokens  []Token `json:"tokens"`
}

// CreateRequest es el body de POST /api/tokens.
type CreateRequest struct {
	Name        string   `json:"name"`
	ExpiresIn   string   `json:"expiresIn"`
	Permissions []string `json:"permissions,omitempty"`
}

// CreateResponse trae el token en claro; es la única vez que se entrega.
type CreateResponse struct {
	Success     bool       `json:"success"`
	Token       string     `json:"token"`
	TokenID     string     `json:"tokenId"`
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// DeleteResponse es la respuesta de DELETE /api/tokens/{tokenId}.
type DeleteResponse struct {
	Success bool `json:"success"`
}
