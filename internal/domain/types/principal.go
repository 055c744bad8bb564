// Package types define tipos de dominio compartidos entre paquetes.
package types

import "slices"

// AuthMode indica cómo se autenticó una request del plugin.
type AuthMode string

const (
	AuthModeRolling AuthMode = "rolling"
	AuthModeStatic  AuthMode = "static"
)

// Principal es la identidad resuelta por el validador del plugin.
type Principal struct {
	Username string
	Mode     AuthMode

	// Solo en modo rolling.
	PluginID      string
	NewRollingKey string
	KeyVersion    int64

	// Solo en modo static.
	TokenID     string
	Permissions []string
}

// Rotated reporta si la validación emitió una nueva rolling key.
func (p *Principal) Rotated() bool {
	return p != nil && p.Mode == AuthModeRolling && p.NewRollingKey != ""
}

// Can reporta si el principal tiene el permiso. Un principal rolling actúa
// con todos los permisos del dueño.
func (p *Principal) Can(perm string) bool {
	if p == nil {
		return false
	}
	if p.Mode == AuthModeRolling {
		return true
	}
	return slices.Contains(p.Permissions, perm)
}
