// Package state records build, test and run invocations using SQLite.
//
// History is observational only: nothing in target resolution, proto
// staleness or environment composition reads it back.
package state

import (
	"context"
	"time"
)

// DefaultPath is the history database location relative to the repo root.
const DefaultPath = ".pithos/state.db"

// Invocation is one orchestrator command against a target.
type Invocation struct {
	ID        string
	Command   string
	Target    string
	Path      string
	Ecosystem string
	ExitCode  int
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Succeeded reports whether the invocation exited zero.
func (i *Invocation) Succeeded() bool {
	return i.ExitCode == 0
}

// Store persists invocations.
type Store interface {
	RecordInvocation(ctx context.Context, inv *Invocation) error
	ListInvocations(ctx context.Context, filter Filter) ([]*Invocation, error)
	Close() error
}

// Filter narrows ListInvocations. Zero values match everything.
type Filter struct {
	Target  string
	Command string
	// Limit caps the number of rows; <= 0 uses DefaultLimit.
	Limit int
}

// DefaultLimit is the row cap for unbounded listings.
const DefaultLimit = 20
