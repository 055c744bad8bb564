package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(seed byte) []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = seed + byte(i)
	}
	return k
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()
	box, err := New(testKey(1))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	for _, msg := range []string{"a", "hola mundo ✓ secreto", strings.Repeat("k", 64), "con|pipe"} {
		ct, err := box.Encrypt(msg)
		if err != nil {
			t.Fatalf("Encrypt err: %v", err)
		}
		if ct == msg {
			t.Fatalf("ciphertext igual al plaintext")
		}
		pt, err := box.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt err: %v", err)
		}
		if pt != msg {
			t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
		}
	}
}

func TestDecrypt_LegacyPassthrough(t *testing.T) {
	t.Parallel()
	box, _ := New(testKey(2))

	for _, legacy := range []string{"", "plain-password", "abcdef0123:deadbeef", "a|b", "x|y|z"} {
		got, err := box.Decrypt(legacy)
		if err != nil {
			t.Fatalf("Decrypt(%q) err: %v", legacy, err)
		}
		if got != legacy {
			t.Fatalf("passthrough roto: got %q want %q", got, legacy)
		}
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	t.Parallel()
	box, _ := New(testKey(3))

	ct, err := box.Encrypt("top secret")
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	parts := strings.Split(ct, "|")
	raw, _ := base64.StdEncoding.DecodeString(parts[1])
	raw[0] ^= 0xff
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(raw)

	if _, err := box.Decrypt(tampered); err != ErrDecrypt {
		t.Fatalf("esperaba ErrDecrypt, obtuvo %v", err)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	t.Parallel()
	a, _ := New(testKey(4))
	b, _ := New(testKey(5))

	ct, _ := a.Encrypt("secreto")
	if _, err := b.Decrypt(ct); err != ErrDecrypt {
		t.Fatalf("esperaba ErrDecrypt, obtuvo %v", err)
	}
}

func TestParseKey(t *testing.T) {
	t.Parallel()
	k := testKey(6)

	if _, err := ParseKey(base64.StdEncoding.EncodeToString(k)); err != nil {
		t.Fatalf("base64: %v", err)
	}
	if _, err := ParseKey(base64.RawStdEncoding.EncodeToString(k)); err != nil {
		t.Fatalf("base64 raw: %v", err)
	}
	if _, err := ParseKey(strings.Repeat("ab", 32)); err != nil {
		t.Fatalf("hex: %v", err)
	}
	if _, err := ParseKey(""); err != ErrNoKey {
		t.Fatalf("vacía: esperaba ErrNoKey, obtuvo %v", err)
	}
	if _, err := ParseKey("corta"); err != ErrInvalidKey {
		t.Fatalf("corta: esperaba ErrInvalidKey, obtuvo %v", err)
	}
}
