// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank  int    `json:"rank"`
	Team  string `json:"team"`
	Total int64  `json:"total"`
}
