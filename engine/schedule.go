package engine

// OpKind identifies one operation kind in the per-tick ops layout.
// The declaration order is the execution order of a tick.
type OpKind uint8

const (
	OpDeathMarkers OpKind = iota // decay death markers
	OpObstacles                  // static obstacle upkeep
	OpFood                       // food regeneration
	OpSpatialInsert              // rebuild the spatial index
	OpAgentUpdate                // full per-agent update

	NumOpKinds
)

// String returns the op kind's name.
func (k OpKind) String() string {
	switch k {
	case OpDeathMarkers:
		return "deathMarkers"
	case OpObstacles:
		return "obstacles"
	case OpFood:
		return "food"
	case OpSpatialInsert:
		return "spatialInsert"
	case OpAgentUpdate:
		return "agentUpdate"
	}
	return "unknown"
}

// OpRange is a half-open [Start, End) index range.
type OpRange struct {
	Start, End int
}

// Len returns the number of indices in the range.
func (r OpRange) Len() int { return r.End - r.Start }

// OpsLayout maps a single linear counter onto the tick's heterogeneous
// collections. Ranges are contiguous, disjoint and half-open: an index
// exactly at a range boundary belongs to the next range. Zero-count
// collections yield empty, skippable ranges.
type OpsLayout struct {
	ranges [NumOpKinds]OpRange
	total  int
}

// BuildOpsLayout computes the layout for the given per-kind counts.
func BuildOpsLayout(counts [NumOpKinds]int) OpsLayout {
	var l OpsLayout
	off := 0
	for k := OpKind(0); k < NumOpKinds; k++ {
		n := counts[k]
		if n < 0 {
			n = 0
		}
		l.ranges[k] = OpRange{Start: off, End: off + n}
		off += n
	}
	l.total = off
	return l
}

// Total returns the number of scheduled operations.
func (l *OpsLayout) Total() int { return l.total }

// Range returns the index range for one op kind.
func (l *OpsLayout) Range(k OpKind) OpRange { return l.ranges[k] }

// Lookup resolves a linear index to its operation kind and the local
// index within that kind's collection. ok is false past the layout end.
func (l *OpsLayout) Lookup(i int) (kind OpKind, local int, ok bool) {
	if i < 0 || i >= l.total {
		return 0, 0, false
	}
	for k := OpKind(0); k < NumOpKinds; k++ {
		// Half-open: an index at r.End falls through to the next kind.
		if r := l.ranges[k]; i < r.End {
			return k, i - r.Start, true
		}
	}
	return 0, 0, false
}

// Due reports whether a slot participates in a staggered sub-update
// this frame: slots are spread across the period by their index.
func Due(slot, period int, frame uint32) bool {
	if period <= 1 {
		return true
	}
	return uint32(slot)%uint32(period) == frame%uint32(period)
}

// ScaledDT converts the fixed per-tick delta into the elapsed virtual
// time between two staggered runs: a check that fires once per period
// applies the whole period's worth of change. Exact because the engine
// runs on a fixed virtual clock (tick count times fixed dt), not on
// measured wall time.
func ScaledDT(dt float32, period int) float32 {
	if period <= 1 {
		return dt
	}
	return dt * float32(period)
}
