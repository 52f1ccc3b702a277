// Package history persists pipeline leg outcomes so past runs can be
// inspected after the process exits.
package history

import (
	"context"
	"time"
)

// LegRecord is one pipeline leg as stored.
type LegRecord struct {
	ID         string
	Variant    string
	Branch     string
	Phase      string // terminal phase (PUBLISHED, SKIPPED, BUILD_FAILED, ...)
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Transition is one phase change within a leg.
type Transition struct {
	LegID string
	Phase string
	At    time.Time
}

// Store defines the interface for persisting and retrieving pipeline history.
type Store interface {
	// StartLeg records a new leg at invocation start.
	StartLeg(ctx context.Context, id, variant, branch string) error

	// RecordTransition appends a phase transition for a leg.
	RecordTransition(ctx context.Context, legID, phase string) error

	// FinishLeg records the terminal phase and optional error of a leg.
	FinishLeg(ctx context.Context, legID, phase string, legErr error) error

	// RecentLegs returns the most recent legs, newest first.
	RecentLegs(ctx context.Context, limit int) ([]LegRecord, error)

	// Transitions returns the phase transitions of a leg in order.
	Transitions(ctx context.Context, legID string) ([]Transition, error)

	// Close closes the store and releases resources.
	Close() error
}

// NoopStore discards all history. Used when persistence is disabled.
type NoopStore struct{}

func (NoopStore) StartLeg(context.Context, string, string, string) error { return nil }
func (NoopStore) RecordTransition(context.Context, string, string) error { return nil }
func (NoopStore) FinishLeg(context.Context, string, string, error) error { return nil }
func (NoopStore) RecentLegs(context.Context, int) ([]LegRecord, error)   { return nil, nil }
func (NoopStore) Transitions(context.Context, string) ([]Transition, error) {
	return nil, nil
}
func (NoopStore) Close() error { return nil }
