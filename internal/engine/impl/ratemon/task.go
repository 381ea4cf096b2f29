package ratemon

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"NetFocus/internal/config"
	"NetFocus/internal/engine/impl/ratemon/statistic"
	"NetFocus/internal/model"
)

// FieldSelector picks which address of a packet an input counts.
type FieldSelector int

const (
	SelectSource FieldSelector = iota
	SelectDestination
)

func (f FieldSelector) String() string {
	if f == SelectSource {
		return "src"
	}
	return "dst"
}

// ParseFieldSelector maps the config spelling of an address field to its
// selector. Accepted spellings are src/source and dst/destination, case
// insensitive.
func ParseFieldSelector(s string) (FieldSelector, error) {
	switch strings.ToLower(s) {
	case "src", "source":
		return SelectSource, nil
	case "dst", "destination":
		return SelectDestination, nil
	default:
		return 0, fmt.Errorf("unknown address field %q", s)
	}
}

// InputBinding describes one input port of a monitor: the address side it
// reads and the delta it applies per packet. Deltas may be negative, which
// lets a pair of inputs count a difference (for example dst minus src).
type InputBinding struct {
	Field FieldSelector
	Delta int32
}

// MonitorSnapshot is the state a writer persists: the monitor identity and
// every leaf cluster at the moment the snapshot was taken.
type MonitorSnapshot struct {
	Name      string
	Threshold int32
	Since     time.Time
	Clusters  []statistic.Cluster
}

// TrafficMonitor counts packets per address cluster in an adaptive tree,
// refining hot clusters automatically. All input ports of one monitor feed
// the same tree.
//
// Updates and resets take the write lock; inspections and snapshots take
// the read lock, so readers never observe a half-applied reset.
type TrafficMonitor struct {
	name     string
	bindings []InputBinding

	mu   sync.RWMutex
	tree *statistic.AdaptiveTree
}

// NewTrafficMonitor builds a monitor from its config definition. Definitions
// that cannot be meant seriously (no name, negative threshold, no inputs,
// unknown address field) are rejected with a ConfigError.
func NewTrafficMonitor(def config.MonitorDef) (*TrafficMonitor, error) {
	if def.Name == "" {
		return nil, &ConfigError{Monitor: def.Name, Detail: "monitor has no name"}
	}
	if def.Threshold < 0 {
		return nil, &ConfigError{Monitor: def.Name, Detail: fmt.Sprintf("negative threshold %d", def.Threshold)}
	}
	if len(def.Inputs) == 0 {
		return nil, &ConfigError{Monitor: def.Name, Detail: "monitor has no inputs"}
	}

	bindings := make([]InputBinding, len(def.Inputs))
	for i, in := range def.Inputs {
		field, err := ParseFieldSelector(in.Field)
		if err != nil {
			return nil, &ConfigError{Monitor: def.Name, Detail: fmt.Sprintf("input %d: %v", i, err)}
		}
		bindings[i] = InputBinding{Field: field, Delta: in.Delta}
	}

	return &TrafficMonitor{
		name:     def.Name,
		bindings: bindings,
		tree:     statistic.NewAdaptiveTree(def.Threshold, time.Now()),
	}, nil
}

// Name returns the name of the monitor.
func (m *TrafficMonitor) Name() string {
	return m.name
}

// OnPacket counts info on the given input port and returns the sibling
// count of the packet's cluster (its value before this packet) plus whether
// the update split the cluster.
//
// An input port the monitor never declared is a ConfigError: the pipeline
// is miswired and the operator has to know. A packet without an IPv4
// address on the selected side is an InputError and is simply not counted.
func (m *TrafficMonitor) OnPacket(input int, info *model.PacketInfo) (sibling int32, split bool, err error) {
	if input < 0 || input >= len(m.bindings) {
		return 0, false, &ConfigError{
			Monitor: m.name,
			Detail:  fmt.Sprintf("packet labeled for input %d, monitor has %d", input, len(m.bindings)),
		}
	}
	binding := m.bindings[input]

	ip := info.FiveTuple.SrcIP
	if binding.Field == SelectDestination {
		ip = info.FiveTuple.DstIP
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false, &InputError{
			Monitor: m.name,
			Err:     fmt.Errorf("%s address %v is not IPv4", binding.Field, ip),
		}
	}
	var addr [4]byte
	copy(addr[:], v4)

	// Capture timestamps travel with the packet so that replayed traffic
	// is measured on its own clock.
	now := info.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	m.mu.Lock()
	sibling, split = m.tree.Apply(addr, binding.Delta, now)
	m.mu.Unlock()
	return sibling, split, nil
}

// Inspect renders the current cluster table as text, one line per leaf
// cluster in slot index order.
func (m *TrafficMonitor) Inspect() string {
	var sb strings.Builder
	m.mu.RLock()
	m.tree.Render(&sb)
	m.mu.RUnlock()
	return sb.String()
}

// Threshold returns the active splitting threshold in packets per second.
func (m *TrafficMonitor) Threshold() int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Threshold()
}

// SetThreshold replaces the splitting threshold.
func (m *TrafficMonitor) SetThreshold(v int32) {
	m.mu.Lock()
	m.tree.SetThreshold(v)
	m.mu.Unlock()
}

// Reset rewrites every cluster to the baseline and starts a new measurement
// period, keeping the refined structure. A baseline outside the counter
// range is an InputError and leaves the monitor untouched.
func (m *TrafficMonitor) Reset(baseline int64) error {
	m.mu.Lock()
	err := m.tree.Reset(baseline, time.Now())
	m.mu.Unlock()
	if err != nil {
		return &InputError{Monitor: m.name, Err: err}
	}
	return nil
}

// SinceReset returns how long the current measurement period has been
// running.
func (m *TrafficMonitor) SinceReset() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.tree.Since())
}

// Snapshot captures the monitor state for a writer.
func (m *TrafficMonitor) Snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MonitorSnapshot{
		Name:      m.name,
		Threshold: m.tree.Threshold(),
		Since:     m.tree.Since(),
		Clusters:  m.tree.Clusters(),
	}
}
