package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/festboard/internal/loadcheck"
	"github.com/okian/festboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultTeams       = 8
	defaultPrograms    = 40
	defaultRewrites    = 10
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		username = flag.String("user", "admin", "Admin username")
		teams    = flag.Int("teams", defaultTeams, "Number of teams to create")
		programs = flag.Int("programs", defaultPrograms, "Number of programs to create")
		rewrites = flag.Int("rewrites", defaultRewrites, "Programs that receive a second, superseding result")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed     = flag.Int64("seed", 0, "Seed for generated data (0 picks one)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	password := os.Getenv("FEST_ADMIN_PASSWORD")
	if password == "" {
		os.Stderr.WriteString("FEST_ADMIN_PASSWORD must be set\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &loadcheck.Config{
		BaseURL:  *baseURL,
		Username: *username,
		Password: password,
		Teams:    *teams,
		Programs: *programs,
		Rewrites: *rewrites,
		Workers:  *workers,
		Timeout:  *timeout,
		Seed:     *seed,
		Verbose:  *verbose,
	}

	if _, err := loadcheck.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load check failed", logger.Error(err))
		os.Exit(1)
	}
}
