package state

import (
	"context"
	"errors"
)

// ErrLineageMismatch is returned when saving a snapshot over one from a
// different stack lineage.
var ErrLineageMismatch = errors.New("state: lineage mismatch")

// Store loads and saves snapshots.
type Store interface {
	// Load returns the snapshot of stack, or an empty one if none exists.
	Load(ctx context.Context, stack string) (*Snapshot, error)
	// Save persists the snapshot, incrementing its serial.
	Save(ctx context.Context, snap *Snapshot) error
	// Close releases backend resources.
	Close() error
}

// checkLineage rejects writes that would clobber another stack's history.
func checkLineage(existing, next *Snapshot) error {
	if existing == nil || existing.Lineage == "" || next.Lineage == "" {
		return nil
	}
	if existing.Lineage != next.Lineage {
		return ErrLineageMismatch
	}
	return nil
}
