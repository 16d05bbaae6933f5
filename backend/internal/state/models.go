// Package state keeps per-session conversation history between requests.
package state

import (
	"context"
	"time"
)

// Turn is one completed exchange in a session
type Turn struct {
	Query  string    `json:"query"`
	Answer string    `json:"answer"`
	Mood   string    `json:"mood"`
	At     time.Time `json:"at"`
}

// Store holds the recent turns of each session. Implementations must be
// safe for concurrent use; different session IDs never share history.
type Store interface {
	// Load returns the session's turns oldest first. Unknown or expired
	// sessions yield an empty slice.
	Load(ctx context.Context, sessionID string) ([]Turn, error)
	// Append records a turn and refreshes the session's idle deadline
	Append(ctx context.Context, sessionID string, turn Turn) error
}
