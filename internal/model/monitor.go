package model

import "time"

// Monitor is a single named traffic monitor. It attributes every packet
// arriving on one of its input ports to an address cluster and answers the
// management operations exposed by the engine.
type Monitor interface {
	// OnPacket counts the packet using the binding configured for the given
	// input port. It returns the cluster's sibling count captured before
	// this packet's own contribution, and whether the update split the
	// cluster into finer sub-clusters.
	OnPacket(input int, info *PacketInfo) (sibling int32, split bool, err error)

	// Inspect renders the full cluster listing as text.
	Inspect() string

	// Threshold and SetThreshold read and replace the splitting threshold
	// in packets per second.
	Threshold() int32
	SetThreshold(v int32)

	// Reset rewrites every cluster to the given baseline and starts a new
	// measurement period. The tree structure is preserved.
	Reset(baseline int64) error

	// SinceReset reports how long the current measurement period has run.
	SinceReset() time.Duration

	Name() string

	// Snapshot returns a copy of the monitor's cluster state for writers.
	Snapshot() interface{}
}

// Sink receives the annotated packets leaving the engine.
type Sink interface {
	Publish(packet *AnnotatedPacket) error
}
