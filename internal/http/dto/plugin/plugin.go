// Package plugin contiene los DTOs del plano de datos /api/plugin/*.
package plugin

// RollingKey viaja en toda respuesta exitosa autenticada en modo rolling.
type RollingKey struct {
	NewRollingKey string `json:"newRollingKey,omitempty"`
	KeyVersion    int64  `json:"keyVersion,omitempty"`
}

// Entry es una entrada con el password descifrado.
type Entry struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	LoginUsername string  `json:"loginUsername"`
	Password      string  `json:"password"`
	URL           string  `json:"url"`
	Notes         string  `json:"notes"`
	Folder        *string `json:"folder"`
}

// EntriesResponse es la respuesta de /api/plugin/entries.
type EntriesResponse struct {
	Success bool    `json:"success"`
	Entries []Entry `json:"entries"`
	RollingKey
}

// SearchRequest es el body opcional de /api/plugin/search (la URL también
// puede ir en la query).
type SearchRequest struct {
	URL string `json:"url"`
}

// SearchResponse es la respuesta de /api/plugin/search.
type SearchResponse struct {
	Success       bool    `json:"success"`
	Entries       []Entry `json:"entries"`
	MatchedDomain string  `json:"matchedDomain"`
	RollingKey
}

// GenerateRequest es el body de /api/plugin/generate. Los campos ausentes
// toman los defaults.
type GenerateRequest struct {
	Length    *int  `json:"length,omitempty"`
	Uppercase *bool `json:"uppercase,omitempty"`
	Lowercase *bool `json:"lowercase,omitempty"`
	Numbers   *bool `json:"numbers,omitempty"`
	Symbols   *bool `json:"symbols,omitempty"`
}

// GenerateResponse es la respuesta de /api/plugin/generate.
type GenerateResponse struct {
	Success  bool   `json:"success"`
	Password string `json:"password"`
	RollingKey
}
