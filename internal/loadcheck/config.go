package loadcheck

import "time"

// Config holds configuration for a load check run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Username string        // Admin username
	Password string        // Admin password
	Teams    int           // Number of teams to create
	Programs int           // Number of programs to create
	Rewrites int           // Programs that get a second, superseding result
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Seed     int64         // Seed for generated data; 0 picks one from the clock
	Verbose  bool          // Log every request
}

// Stats holds run statistics.
type Stats struct {
	ProgramsCreated  int
	ResultsSubmitted int
	ResultsFailed    int
	ReplaysRefused   int
	TeamsVerified    int
	StartTime        time.Time
	Duration         time.Duration
}
