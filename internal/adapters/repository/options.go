package repository

import (
	"time"

	"github.com/uptrace/bun/extra/bundebug"
)

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithClock sets the time source used for registry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TreapStore) {
		if now != nil {
			s.now = now
		}
	}
}

// BunOption applies a configuration option to the BunStore.
type BunOption func(*bunConfig)

type bunConfig struct {
	debug   bool
	verbose bool
}

// WithDebugSQL installs a bundebug query hook. With verbose every query is
// printed, otherwise only failing ones.
func WithDebugSQL(enabled, verbose bool) BunOption {
	return func(c *bunConfig) {
		c.debug = enabled
		c.verbose = verbose
	}
}

func (c bunConfig) hook() *bundebug.QueryHook {
	return bundebug.NewQueryHook(
		bundebug.WithEnabled(c.debug),
		bundebug.WithVerbose(c.verbose),
	)
}
