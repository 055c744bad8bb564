package auth

import (
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const sessionIssuer = "noke"

// SessionIssuer emite y verifica los tokens de sesión web (HS256).
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type sessionClaims struct {
	Type string `json:"typ"`
	jwtv5.RegisteredClaims
}

// NewSessionIssuer crea el emisor. ttl <= 0 usa 12h.
func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	s.now = now
	return s
}

// TTL retorna la vida de una sesión.
func (s *SessionIssuer) TTL() time.Duration { return s.ttl }

// Issue firma una sesión para username.
func (s *SessionIssuer) Issue(username string) (string, error) {
	now := s.now().UTC()
	claims := sessionClaims{
		Type: "session",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   username,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	return tk.SignedString(s.secret)
}

// Verify valida la firma y la expiración y retorna el username.
func (s *SessionIssuer) Verify(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrSessionInvalid
	}
	var claims sessionClaims
	_, err := jwtv5.ParseWithClaims(raw, &claims,
		func(*jwtv5.Token) (any, error) { return s.secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(sessionIssuer),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return "", ErrSessionExpired
		}
		return "", ErrSessionInvalid
	}
	if claims.Type != "session" || claims.Subject == "" {
		return "", ErrSessionInvalid
	}
	return claims.Subject, nil
}
