// Package tokens genera secretos opacos y sus hashes de almacenamiento.
//
// Todo lo que se entrega a un cliente (plugin secret, rolling key, auth
// request token, API token) sale de GenerateHex y se persiste solo como
// SHA256Hex. La comparación contra el hash guardado usa EqualHash.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// SecretBytes es la entropía de cualquier credencial emitida (256 bits).
const SecretBytes = 32

// GenerateHex genera nBytes aleatorios y los devuelve en hexadecimal.
func GenerateHex(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateSecret es GenerateHex(SecretBytes).
func GenerateSecret() (string, error) {
	return GenerateHex(SecretBytes)
}

// GenerateOpaqueToken genera un token aleatorio base64url sin padding.
// Se usa para identificadores efímeros (mfa challenge).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Hex devuelve sha256(s) en hexadecimal (formato de almacenamiento).
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// EqualHash compara en tiempo constante el hash de presented con stored.
// Un stored vacío nunca matchea.
func EqualHash(presented, stored string) bool {
	if stored == "" || presented == "" {
		return false
	}
	h := SHA256Hex(presented)
	return subtle.ConstantTimeCompare([]byte(h), []byte(stored)) == 1
}
