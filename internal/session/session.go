// Package session keeps the dashboard sign-in state in a signed cookie.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store is the capability the rest of the dashboard uses to reason about
// sign-in state. Implementations decide how the session is carried.
type Store interface {
	HasSession(r *http.Request) bool
	SetSession(w http.ResponseWriter, subject string) error
	ClearSession(w http.ResponseWriter)
}

// Subjecter is implemented by stores that can name the signed-in user.
type Subjecter interface {
	Subject(r *http.Request) (string, bool)
}

var (
	// ErrEmptySubject is returned when SetSession is called without a subject.
	ErrEmptySubject = errors.New("session: subject is required")
	// ErrWeakSecret is returned by NewCookieStore for short signing keys.
	ErrWeakSecret = errors.New("session: secret must be at least 32 bytes")
)

const issuer = "acct-ai-dashboard"

// CookieStore carries an HS256 JWT in an HttpOnly cookie.
type CookieStore struct {
	secret []byte
	name   string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// CookieOption customises a CookieStore.
type CookieOption func(*CookieStore)

// WithSecureCookie marks the cookie Secure, for deployments behind TLS.
func WithSecureCookie(secure bool) CookieOption {
	return func(s *CookieStore) { s.secure = secure }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CookieOption {
	return func(s *CookieStore) { s.now = now }
}

// NewCookieStore creates a cookie-backed store.
func NewCookieStore(secret, cookieName string, ttl time.Duration, opts ...CookieOption) (*CookieStore, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	if cookieName == "" {
		return nil, errors.New("session: cookie name is required")
	}
	s := &CookieStore{
		secret: []byte(secret),
		name:   cookieName,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HasSession reports whether the request carries a valid, unexpired token.
func (s *CookieStore) HasSession(r *http.Request) bool {
	_, ok := s.Subject(r)
	return ok
}

// Subject returns the token subject of a valid session.
func (s *CookieStore) Subject(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	subject, err := s.validate(cookie.Value)
	if err != nil {
		return "", false
	}
	return subject, true
}

// SetSession issues a fresh token for subject.
func (s *CookieStore) SetSession(w http.ResponseWriter, subject string) error {
	if subject == "" {
		return ErrEmptySubject
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("session: sign token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(s.ttl),
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSession expires the cookie.
func (s *CookieStore) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *CookieStore) validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// Static is a fixed Store for tests and local tooling.
type Static bool

func (s Static) HasSession(*http.Request) bool { return bool(s) }

func (s Static) SetSession(http.ResponseWriter, string) error { return nil }

func (s Static) ClearSession(http.ResponseWriter) {}

var (
	_ Store     = (*CookieStore)(nil)
	_ Subjecter = (*CookieStore)(nil)
	_ Store     = Static(false)
)
