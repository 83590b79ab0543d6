package auth

import "time"

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithCredentials sets the admin username and its bcrypt password hash.
func WithCredentials(username, passwordHash string) Option {
	return func(a *Authenticator) {
		a.username = username
		a.hash = []byte(passwordHash)
	}
}

// WithSecret sets the HMAC key used to sign tokens.
func WithSecret(secret string) Option {
	return func(a *Authenticator) { a.secret = []byte(secret) }
}

// WithTTL sets how long an issued token stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithLoginRate limits login attempts per client to perMinute, with an
// equal burst. Zero or less disables throttling.
func WithLoginRate(perMinute int) Option {
	return func(a *Authenticator) { a.perMinute = perMinute }
}

// WithMaxClients caps how many clients are throttled individually. Zero or
// less removes the cap.
func WithMaxClients(n int) Option {
	return func(a *Authenticator) { a.maxClients = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}
