// Package secretbox cifra secretos cortos (rolling key pendiente, secretos TOTP,
// passwords de entries) con AES-256-GCM.
//
// Formato: base64(nonce)|base64(ciphertext). Un valor que no tiene esa forma
// se considera texto plano heredado y Decrypt lo devuelve sin cambios, así los
// registros no migrados siguen siendo legibles.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// EnvMasterKey es la variable de entorno con la clave maestra.
	EnvMasterKey = "SECRETBOX_MASTER_KEY"

	nonceSizeGCM      = 12
	requiredKeyLength = 32
	sep               = "|"
)

var (
	// ErrNoKey: no hay clave maestra configurada.
	ErrNoKey = errors.New("secretbox: master key not set")
	// ErrInvalidKey: la clave no decodifica a 32 bytes.
	ErrInvalidKey = errors.New("secretbox: invalid master key")
	// ErrDecrypt: el valor tiene formato cifrado pero no autentica (clave incorrecta o manipulado).
	ErrDecrypt = errors.New("secretbox: decrypt failed")
)

// Box cifra y descifra con una clave fija. Es seguro para uso concurrente.
type Box struct {
	aead cipher.AEAD
}

// New crea un Box a partir de una clave cruda de 32 bytes.
func New(key []byte) (*Box, error) {
	if len(key) != requiredKeyLength {
		return nil, fmt.Errorf("%w: se requieren %d bytes, obtuvo %d", ErrInvalidKey, requiredKeyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// ParseKey acepta la clave en base64 (std o raw) o hex de 64 caracteres.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoKey
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if len(s) == 2*requiredKeyLength {
		if b, err := hex.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, ErrInvalidKey
}

// FromString es ParseKey + New.
func FromString(s string) (*Box, error) {
	k, err := ParseKey(s)
	if err != nil {
		return nil, err
	}
	return New(k)
}

// FromEnv carga la clave desde SECRETBOX_MASTER_KEY.
// Genere una con: openssl rand -base64 32
func FromEnv() (*Box, error) {
	return FromString(os.Getenv(EnvMasterKey))
}

// Encrypt devuelve base64(nonce)|base64(ciphertext). El string vacío queda vacío.
func (b *Box) Encrypt(plainText string) (string, error) {
	if plainText == "" {
		return "", nil
	}
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt revierte Encrypt. Valores sin formato base64(nonce)|base64(ct)
// se devuelven tal cual (passthrough de datos heredados).
func (b *Box) Decrypt(value string) (string, error) {
	nonce, ct, ok := split(value)
	if !ok {
		return value, nil
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(pt), nil
}

// IsEncrypted reporta si value tiene el formato que produce Encrypt.
func IsEncrypted(value string) bool {
	_, _, ok := split(value)
	return ok
}

func split(value string) (nonce, ct []byte, ok bool) {
	parts := strings.Split(value, sep)
	if len(parts) != 2 {
		return nil, nil, false
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSizeGCM {
		return nil, nil, false
	}
	ct, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(ct) == 0 {
		return nil, nil, false
	}
	return nonce, ct, true
}
