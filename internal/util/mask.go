// Package util contiene helpers sin dependencias de dominio.
package util

import "strconv"

// MaskSecret deja ver solo los primeros 4 caracteres de s. Sirve para
// mostrar rolling keys o tokens en logs y en la CLI sin filtrarlos.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "…(" + strconv.Itoa(len(s)) + ")"
	}
}
