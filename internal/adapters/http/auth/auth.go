// Package auth gates administrator routes behind a bcrypt checked login and
// short lived HS256 tokens.
package auth

import (
	"container/list"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/okian/festboard/pkg/metrics"
)

const (
	issuer = "festboard"

	defaultMaxClients = 10000
)

// Token is what a successful login returns.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Claims carried by an admin token.
type Claims struct {
	jwt.RegisteredClaims
}

// Authenticator checks admin credentials and issues and verifies tokens.
type Authenticator struct {
	username  string
	hash      []byte
	secret    []byte
	ttl       time.Duration
	perMinute int
	now       func() time.Time

	mu         sync.Mutex
	maxClients int
	limiters   map[string]*list.Element
	seen       *list.List // of *clientLimiter, least recently seen first
}

type clientLimiter struct {
	client   string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New returns an Authenticator. Without credentials and a secret it is
// disabled and every login and token is refused.
func New(opts ...Option) *Authenticator {
	a := &Authenticator{
		ttl:        12 * time.Hour,
		now:        time.Now,
		maxClients: defaultMaxClients,
		limiters:   make(map[string]*list.Element),
		seen:       list.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enabled reports whether admin access is configured.
func (a *Authenticator) Enabled() bool {
	return a.username != "" && len(a.hash) > 0 && len(a.secret) > 0
}

// allow spends one login attempt for client. Limiters idle for a full
// refill period are dropped, since a new one would behave the same. Past
// maxClients the least recently seen client is dropped.
func (a *Authenticator) allow(client string) bool {
	if a.perMinute <= 0 {
		return true
	}
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()

	for el := a.seen.Front(); el != nil; el = a.seen.Front() {
		if now.Sub(el.Value.(*clientLimiter).lastSeen) < time.Minute {
			break
		}
		a.dropClient(el)
	}

	el, ok := a.limiters[client]
	if !ok {
		if a.maxClients > 0 && a.seen.Len() >= a.maxClients {
			a.dropClient(a.seen.Front())
		}
		cl := &clientLimiter{
			client:  client,
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(a.perMinute)), a.perMinute),
		}
		el = a.seen.PushBack(cl)
		a.limiters[client] = el
	}
	cl := el.Value.(*clientLimiter)
	cl.lastSeen = now
	a.seen.MoveToBack(el)
	return cl.limiter.AllowN(now, 1)
}

// dropClient must be called with a.mu held.
func (a *Authenticator) dropClient(el *list.Element) {
	if el == nil {
		return
	}
	delete(a.limiters, el.Value.(*clientLimiter).client)
	a.seen.Remove(el)
}

// TrackedClients returns how many clients currently hold a login limiter.
func (a *Authenticator) TrackedClients() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seen.Len()
}

// Login checks username and password and returns a signed token. client
// identifies the caller for throttling, usually its remote address.
func (a *Authenticator) Login(_ context.Context, client, username, password string) (Token, error) {
	if !a.Enabled() {
		metrics.RecordAuthFailure("disabled")
		return Token{}, ErrDisabled
	}
	if !a.allow(client) {
		metrics.RecordAuthFailure("rate_limited")
		return Token{}, ErrRateLimited
	}

	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		metrics.RecordAuthFailure("bad_credentials")
		return Token{}, ErrInvalidCredentials
	}

	now := a.now()
	exp := now.Add(a.ttl)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   a.username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: exp}, nil
}

// Verify parses a token and returns its subject.
func (a *Authenticator) Verify(raw string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject != a.username {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

type subjectKey struct{}

// Subject returns the authenticated admin stored on ctx by Middleware.
func Subject(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey{}).(string)
	return s, ok
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			metrics.RecordAuthFailure("missing_token")
			unauthorized(w, "missing bearer token")
			return
		}
		sub, err := a.Verify(strings.TrimSpace(raw))
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, ErrDisabled) {
				reason = "disabled"
			}
			metrics.RecordAuthFailure(reason)
			unauthorized(w, err.Error())
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, sub)))
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", `Bearer realm="festboard"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": "unauthorized", "message": msg})
}

// HashPassword returns a bcrypt hash suitable for admin_password_hash.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
