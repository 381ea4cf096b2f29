package model

import "time"

// Writer defines a generic interface for writing monitor snapshots to a store.
type Writer interface {
	// Write persists one snapshot payload taken at the given timestamp for
	// the named monitor. The implementation is expected to know how to
	// handle the payload type it receives.
	Write(payload interface{}, timestamp, monitor string) error

	// GetInterval returns the configured snapshot interval for this writer.
	GetInterval() time.Duration
}
