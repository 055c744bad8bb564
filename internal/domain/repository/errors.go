package repository

import "errors"

var (
	// ErrNotFound indica que el documento no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un duplicado (id o clave única ya existente).
	ErrConflict = errors.New("conflict")

	// ErrPreconditionFailed indica que una escritura condicional perdió la
	// carrera: el documento cambió desde que se leyó.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidInput indica datos de entrada inválidos para el store.
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsPreconditionFailed verifica si el error es ErrPreconditionFailed.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}
