// Package components defines ECS components for the simulation.
package components

// Position represents an entity's world position.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity.
type Velocity struct {
	X, Y float32
}

// Acceleration accumulates steering forces for one tick.
// Cleared after integration.
type Acceleration struct {
	X, Y float32
}

// Trail holds a bounded ring of recent positions for rendering.
type Trail struct {
	Points [MaxTrailPoints]Position
	Head   uint8 // next write index
	Count  uint8
}

// MaxTrailPoints bounds per-agent trail memory.
const MaxTrailPoints = 16

// Push appends a position, evicting the oldest when full.
func (t *Trail) Push(p Position) {
	t.Points[t.Head] = p
	t.Head = (t.Head + 1) % MaxTrailPoints
	if t.Count < MaxTrailPoints {
		t.Count++
	}
}

// Each calls fn for every retained point, oldest first.
func (t *Trail) Each(fn func(Position)) {
	start := int(t.Head) - int(t.Count)
	if start < 0 {
		start += MaxTrailPoints
	}
	for i := 0; i < int(t.Count); i++ {
		fn(t.Points[(start+i)%MaxTrailPoints])
	}
}
