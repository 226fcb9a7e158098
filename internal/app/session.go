package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"onfawiki/internal/nav"
)

// SessionCookie carries the signed admin session.
const SessionCookie = "onfawiki_session"

const sessionIssuer = "onfawiki"

var errInvalidToken = errors.New("invalid session token")

// sessionClaims records who logged in and when. IssuedAt is the login time
// the navigator checks against nav.SessionTTL.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// Sessions signs and verifies admin session tokens with HS256.
type Sessions struct {
	secret []byte
	now    func() time.Time
}

// NewSessions returns a signer using secret.
func NewSessions(secret string, now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{secret: []byte(secret), now: now}
}

// Issue returns a token recording a login by user at loggedInAt.
func (s *Sessions) Issue(user string, loggedInAt time.Time) (string, error) {
	claims := sessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   user,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(loggedInAt),
		ExpiresAt: jwt.NewNumericDate(loggedInAt.Add(nav.SessionTTL)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// LoginTime verifies token and returns its login time. Expiry is left to the
// caller so an expired session can be cleared rather than silently ignored.
func (s *Sessions) LoginTime(token string) (time.Time, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation(), jwt.WithIssuer(sessionIssuer))
	if err != nil || !parsed.Valid {
		return time.Time{}, errInvalidToken
	}
	if claims.IssuedAt == nil {
		return time.Time{}, errInvalidToken
	}
	return claims.IssuedAt.Time, nil
}

// Valid reports whether token is a live session.
func (s *Sessions) Valid(token string) bool {
	at, err := s.LoginTime(token)
	return err == nil && s.now().Sub(at) < nav.SessionTTL
}

// FromRequest returns the session token from the cookie or an
// "Authorization: Bearer" header.
func FromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requestSession adapts one HTTP exchange to nav.Session.
type requestSession struct {
	sessions *Sessions
	w        http.ResponseWriter
	r        *http.Request
	user     string
	token    string
}

func (s *Sessions) forRequest(w http.ResponseWriter, r *http.Request, user string) *requestSession {
	return &requestSession{sessions: s, w: w, r: r, user: user}
}

func (rs *requestSession) LoginTime() (time.Time, bool) {
	token := FromRequest(rs.r)
	if token == "" {
		return time.Time{}, false
	}
	at, err := rs.sessions.LoginTime(token)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

func (rs *requestSession) Save(loggedInAt time.Time) error {
	token, err := rs.sessions.Issue(rs.user, loggedInAt)
	if err != nil {
		return err
	}
	rs.token = token
	http.SetCookie(rs.w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  loggedInAt.Add(nav.SessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   rs.r.TLS != nil,
	})
	return nil
}

func (rs *requestSession) Clear() error {
	http.SetCookie(rs.w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
