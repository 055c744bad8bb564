package pluginauth

import "time"

// AuthWindow es la vida de un auth request token. El cliente usa el mismo
// valor como timeout duro del polling de check-auth.
const AuthWindow = 5 * time.Minute

// maxWriteAttempts acota los reintentos de read-modify-write cuando una
// escritura condicional pierde la carrera.
const maxWriteAttempts = 3

// Operation enumera las acciones del protocolo de autorización de plugins.
type Operation int

const (
	OpRegister Operation = iota + 1
	OpRequestAuth
	OpAuthorize
	OpCheckAuth
	OpValidate
	OpRevoke
	OpList
)

var operationNames = [...]string{
	OpRegister:    "register",
	OpRequestAuth: "request-auth",
	OpAuthorize:   "authorize",
	OpCheckAuth:   "check-auth",
	OpValidate:    "validate",
	OpRevoke:      "revoke",
	OpList:        "list",
}

// Operations retorna todas las operaciones en orden de declaración.
func Operations() []Operation {
	return []Operation{OpRegister, OpRequestAuth, OpAuthorize, OpCheckAuth, OpValidate, OpRevoke, OpList}
}

// String retorna el nombre usado en la ruta (/api/plugin-auth/{name}).
func (o Operation) String() string {
	if o < OpRegister || o > OpList {
		return "unknown"
	}
	return operationNames[o]
}

// RequiresSession reporta si la operación se invoca desde la sesión web del
// usuario y no desde el plugin.
func (o Operation) RequiresSession() bool {
	switch o {
	case OpAuthorize, OpRevoke, OpList:
		return true
	}
	return false
}
