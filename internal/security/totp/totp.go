// Package totp implementa TOTP (RFC 6238) con HMAC-SHA1, 6 dígitos y paso de 30s.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// Period es el time-step en segundos.
	Period = 30
	// Digits del código.
	Digits = 6
	// DefaultSkew: pasos aceptados a cada lado del actual.
	DefaultSkew = 1
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// ErrInvalidSecret indica un secreto base32 ilegible.
var ErrInvalidSecret = errors.New("totp: invalid secret")

// GenerateSecret retorna 20 bytes aleatorios y su forma base32 sin padding.
func GenerateSecret() (raw []byte, secretB32 string, err error) {
	raw = make([]byte, 20)
	if _, err = rand.Read(raw); err != nil {
		return nil, "", err
	}
	return raw, b32.EncodeToString(raw), nil
}

// DecodeSecret acepta base32 con o sin padding, en cualquier case y con espacios.
func DecodeSecret(secretB32 string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secretB32), " ", ""))
	s = strings.TrimRight(s, "=")
	raw, err := b32.DecodeString(s)
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidSecret
	}
	return raw, nil
}

// OTPAuthURL construye la URI otpauth:// para el QR de la app autenticadora.
func OTPAuthURL(issuer, accountName, secretB32 string) string {
	label := url.PathEscape(fmt.Sprintf("%s:%s", issuer, accountName))
	q := url.Values{}
	q.Set("secret", secretB32)
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", fmt.Sprint(Digits))
	q.Set("period", fmt.Sprint(Period))
	return fmt.Sprintf("otpauth://totp/%s?%s", label, q.Encode())
}

// Code calcula el código para el instante t.
func Code(secretRaw []byte, t time.Time) string {
	return gen(secretRaw, t.Unix()/Period)
}

// Verify valida code en la ventana +/- windowSteps alrededor de t.
// Si lastCounterUsed no es nil, rechaza contadores <= al último usado (anti-replay).
// Retorna el contador que matcheó para que el caller lo persista.
func Verify(secretRaw []byte, code string, t time.Time, windowSteps int, lastCounterUsed *int64) (ok bool, counter int64) {
	code = strings.TrimSpace(code)
	if len(code) != Digits || len(secretRaw) == 0 {
		return false, 0
	}
	if windowSteps < 0 {
		windowSteps = 0
	}
	now := t.Unix() / Period
	for c := now - int64(windowSteps); c <= now+int64(windowSteps); c++ {
		if lastCounterUsed != nil && c <= *lastCounterUsed {
			continue
		}
		if hmac.Equal([]byte(gen(secretRaw, c)), []byte(code)) {
			return true, c
		}
	}
	return false, 0
}

// gen es HOTP(K, C) (RFC 4226).
func gen(secretRaw []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))
	m := hmac.New(sha1.New, secretRaw)
	_, _ = m.Write(msg[:])
	sum := m.Sum(nil)
	offset := int(sum[len(sum)-1] & 0x0f)
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", bin%1_000_000)
}
