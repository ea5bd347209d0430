// Package session keeps the logged-in identity in a signed, client-held cookie.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultCookieName = "session"
	defaultTTL        = 24 * time.Hour
)

var (
	ErrMissingSecret = errors.New("session secret is required")
	ErrInvalidToken  = errors.New("invalid session token")
)

// Session is the identity binding for one request.
// Only one user may be bound at a time.
type Session struct {
	userID  int
	bound   bool
	changed bool
}

// Start clears any prior binding and binds userID.
func (s *Session) Start(userID int) {
	s.End()
	s.userID = userID
	s.bound = true
}

// Current returns the bound user id, if any.
func (s *Session) Current() (int, bool) {
	if s == nil || !s.bound {
		return 0, false
	}
	return s.userID, true
}

// End clears the binding. Calling it on an empty session is a no-op apart
// from instructing the client to drop its cookie.
func (s *Session) End() {
	s.userID = 0
	s.bound = false
	s.changed = true
}

// Options configures a Manager.
type Options struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager signs and verifies session cookies with HS256.
type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// NewManager constructs a Manager. The secret must be non-empty.
func NewManager(opts Options) (*Manager, error) {
	secret := strings.TrimSpace(opts.Secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	m := &Manager{
		secret:     []byte(secret),
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		now:        time.Now,
	}
	if m.cookieName == "" {
		m.cookieName = defaultCookieName
	}
	if m.ttl <= 0 {
		m.ttl = defaultTTL
	}
	return m, nil
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Load reads the session cookie from the request. A missing, unsigned,
// altered or expired token yields an empty session.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}
	userID, err := m.parse(cookie.Value)
	if err != nil {
		return &Session{}
	}
	return &Session{userID: userID, bound: true}
}

// Save writes the session back to the client if it changed during the request.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	if s == nil || !s.changed {
		return nil
	}

	if !s.bound {
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	token, err := m.issue(s.userID)
	if err != nil {
		return err
	}
	// no MaxAge: the cookie lives as long as the browser session
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) issue(userID int) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenString string) (int, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || userID < 1 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
