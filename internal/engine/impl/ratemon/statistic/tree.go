package statistic

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxLevels bounds the table hierarchy: one level per address byte.
const maxLevels = 4

// ErrBaselineRange is returned by Reset when the requested baseline does not
// fit the counter representation.
var ErrBaselineRange = errors.New("baseline outside counter range")

// slotState is the closed variant set of a CounterSlot: a slot is either a
// live counter (leaf) or, once split, the owner of a finer-grained child
// table.
type slotState interface {
	isSlotState()
}

// leaf is the counting variant of a slot.
type leaf struct {
	value      int32
	lastUpdate time.Time
}

// split is the subdivided variant. The aggregate the cluster had at the
// moment it split is carried in base; the child table counts from zero, so
// reading any descendant reports base plus the descendant's own value.
type split struct {
	base  int32
	child *CounterTable
}

func (*leaf) isSlotState()  {}
func (*split) isSlotState() {}

// CounterSlot is one entry of a CounterTable.
type CounterSlot struct {
	state slotState
}

// CounterTable is a 256-entry table of counter slots, indexed by the value
// of the address byte at the table's depth. Child tables are exclusively
// owned by the slot that split; the structure is a strict tree.
type CounterTable struct {
	slots [256]CounterSlot
}

func newCounterTable(now time.Time) *CounterTable {
	t := &CounterTable{}
	for i := range t.slots {
		t.slots[i].state = &leaf{lastUpdate: now}
	}
	return t
}

// Cluster is one leaf cluster captured by a dump or snapshot.
type Cluster struct {
	// Prefix is the dotted address prefix, unused trailing bytes
	// wildcarded, e.g. "10.5.*.*".
	Prefix string
	// Depth is the number of address bytes the prefix pins, 1 to 4.
	Depth int
	// Value is the cluster aggregate including the base carried by every
	// split on the path.
	Value int32
}

// AdaptiveTree is an adaptive hierarchical counter over 4-byte addresses.
// Counters live in 256-way tables keyed by successive address bytes; when a
// cluster grows faster than the threshold permits, its slot is split into a
// child table so the growth can be pinned to a narrower prefix. Splits are
// monotonic: a child table is never removed, only reset.
//
// The tree itself is not synchronized; TrafficMonitor serializes access.
type AdaptiveTree struct {
	root      *CounterTable
	threshold int32     // admitted growth in packets per second
	since     time.Time // start of the current measurement period
	baseline  int32     // leaf value written by the last reset
}

// NewAdaptiveTree creates an empty tree: all slots zero-valued and unsplit,
// with the measurement period starting at now.
func NewAdaptiveTree(threshold int32, now time.Time) *AdaptiveTree {
	return &AdaptiveTree{
		root:      newCounterTable(now),
		threshold: threshold,
		since:     now,
	}
}

// Apply attributes delta to the cluster containing addr and returns the
// cluster's previous value (the sibling count, captured before this update's
// own contribution) along with whether the update split the terminal slot.
//
// The terminal slot splits when its accumulated growth over the current
// measurement period exceeds what the threshold permits (periods shorter
// than one second count as a full second), provided time has visibly
// advanced since the slot's previous update and another level is available.
func (t *AdaptiveTree) Apply(addr [4]byte, delta int32, now time.Time) (sibling int32, didSplit bool) {
	table := t.root
	for depth := 0; ; depth++ {
		slot := &table.slots[addr[depth]]
		switch s := slot.state.(type) {
		case *split:
			table = s.child
		case *leaf:
			sibling = s.value
			s.value += delta
			elapsed := now.Sub(s.lastUpdate)
			s.lastUpdate = now
			if elapsed > 0 && depth+1 < maxLevels && t.rateExceeded(s.value, now) {
				slot.state = &split{base: s.value, child: newCounterTable(now)}
				didSplit = true
			}
			return sibling, didSplit
		default:
			panic(fmt.Sprintf("statistic: corrupt slot state %T", slot.state))
		}
	}
}

// rateExceeded reports whether a cluster holding value has grown past the
// per-second budget for the measurement period that started at the last
// reset. Periods shorter than one second are rounded up to a full second so
// that a handful of packets right after a reset cannot force a split on
// timing alone.
func (t *AdaptiveTree) rateExceeded(value int32, now time.Time) bool {
	period := now.Sub(t.since).Seconds()
	if period < 1 {
		period = 1
	}
	growth := float64(value) - float64(t.baseline)
	return growth > float64(t.threshold)*period
}

// ValueAt returns the aggregate attributed to the most specific cluster
// containing addr: the base carried by every split on the path plus the
// terminal leaf's own value. Read-only.
func (t *AdaptiveTree) ValueAt(addr [4]byte) int32 {
	var total int32
	table := t.root
	for depth := 0; ; depth++ {
		slot := &table.slots[addr[depth]]
		switch s := slot.state.(type) {
		case *split:
			total += s.base
			table = s.child
		case *leaf:
			return total + s.value
		default:
			panic(fmt.Sprintf("statistic: corrupt slot state %T", slot.state))
		}
	}
}

// Reset rewrites every leaf to baseline and every split base to zero, so
// that each address reads back exactly baseline, and starts a new
// measurement period at now. Structure created by earlier splits is kept.
// A baseline outside the int32 counter range is rejected with
// ErrBaselineRange and the tree is left untouched.
func (t *AdaptiveTree) Reset(baseline int64, now time.Time) error {
	if baseline < math.MinInt32 || baseline > math.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrBaselineRange, baseline)
	}
	t.baseline = int32(baseline)
	resetTable(t.root, int32(baseline), now)
	t.since = now
	return nil
}

func resetTable(table *CounterTable, baseline int32, now time.Time) {
	for i := range table.slots {
		switch s := table.slots[i].state.(type) {
		case *leaf:
			s.value = baseline
			s.lastUpdate = now
		case *split:
			s.base = 0
			resetTable(s.child, baseline, now)
		}
	}
}

// Threshold returns the active splitting threshold in packets per second.
func (t *AdaptiveTree) Threshold() int32 {
	return t.threshold
}

// SetThreshold replaces the splitting threshold. Future split decisions use
// the new value; existing structure is untouched.
func (t *AdaptiveTree) SetThreshold(v int32) {
	t.threshold = v
}

// Since returns the start of the current measurement period.
func (t *AdaptiveTree) Since() time.Time {
	return t.since
}

// Clusters returns every leaf cluster in slot index order, depth first.
func (t *AdaptiveTree) Clusters() []Cluster {
	var out []Cluster
	t.walk(func(path []byte, aggregate int32) {
		out = append(out, Cluster{
			Prefix: clusterPrefix(path),
			Depth:  len(path),
			Value:  aggregate,
		})
	})
	return out
}

// Render writes the textual dump: one line per leaf cluster, slot index
// order at each level, depth first, pairing the dotted prefix with the
// cluster aggregate. Read-only.
func (t *AdaptiveTree) Render(w io.Writer) {
	t.walk(func(path []byte, aggregate int32) {
		fmt.Fprintf(w, "%s %d\n", clusterPrefix(path), aggregate)
	})
}

// walk visits every leaf cluster in slot index order, depth first, passing
// the address bytes on the path and the aggregate including carried bases.
// The path slice is reused between calls and must not be retained.
func (t *AdaptiveTree) walk(fn func(path []byte, aggregate int32)) {
	var path [maxLevels]byte
	walkTable(t.root, path[:0], 0, fn)
}

func walkTable(table *CounterTable, path []byte, carried int32, fn func(path []byte, aggregate int32)) {
	for i := range table.slots {
		p := append(path, byte(i))
		switch s := table.slots[i].state.(type) {
		case *leaf:
			fn(p, carried+s.value)
		case *split:
			walkTable(s.child, p, carried+s.base, fn)
		}
	}
}

// clusterPrefix renders the dotted prefix for a slot reached through the
// given address bytes, wildcarding the bytes the path does not pin.
func clusterPrefix(path []byte) string {
	parts := make([]string, 0, maxLevels)
	for _, b := range path {
		parts = append(parts, strconv.Itoa(int(b)))
	}
	for len(parts) < maxLevels {
		parts = append(parts, "*")
	}
	return strings.Join(parts, ".")
}
