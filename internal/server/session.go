package server

import (
	"crypto/rand"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskline/internal/domain"
)

const (
	sessionCookie     = "token"
	DefaultSessionTTL = 5 * time.Minute
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// sessions issues and verifies the HS256 tokens carried in the session
// cookie. The subject is the numeric user id.
type sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newSessions(cfg Config) (sessions, error) {
	s := sessions{secret: []byte(cfg.JWTSecret), ttl: cfg.SessionTTL, now: cfg.Now}
	if s.ttl <= 0 {
		s.ttl = DefaultSessionTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return sessions{}, err
		}
		cfg.logger().Printf("no jwt secret configured; sessions end when the service stops")
	}
	return s, nil
}

func (s sessions) issue(a domain.Account) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(a.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Name: a.Name,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// verify returns the user id a token was issued to.
func (s sessions) verify(token string) (int64, error) {
	if token == "" {
		return 0, errors.New("session token required")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	claims := &sessionClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !parsed.Valid {
		return 0, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("subject claim must be a user id")
	}
	return id, nil
}

func (s sessions) cookie(token string, expires time.Time) http.Cookie {
	return http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func clearedCookie() http.Cookie {
	return http.Cookie{
		Name:     sessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
