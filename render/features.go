package render

import (
	"github.com/RegiByte/emergent-boids-sub002/components"
	"github.com/RegiByte/emergent-boids-sub002/telemetry"
)

// carcassTTLFrames is how long a carcass dot stays on screen. Carcass
// depletion has no dedicated event, so the layer ages them out on the
// same order as predators consume them.
const carcassTTLFrames = 900

type foodDot struct {
	X, Y    float32
	Carcass bool
	Born    uint32 // frame the dot appeared
}

type obstacleShape struct {
	X, Y, Radius float32
}

// FeatureLayer tracks world features the shared buffer does not carry,
// reconstructed from the lifecycle event stream.
type FeatureLayer struct {
	food      []foodDot
	obstacles []obstacleShape
	frame     uint32
}

// NewFeatureLayer returns an empty layer.
func NewFeatureLayer() *FeatureLayer {
	return &FeatureLayer{}
}

// Observe folds one event into the layer. Events the layer does not
// visualize are ignored.
func (l *FeatureLayer) Observe(ev telemetry.Event) {
	switch ev.Type {
	case telemetry.EventFoodSpawned:
		l.food = append(l.food, foodDot{
			X: ev.X, Y: ev.Y,
			Carcass: ev.Role == components.SourcePredator,
			Born:    ev.Frame,
		})
	case telemetry.EventObstacleSpawned:
		l.obstacles = append(l.obstacles, obstacleShape{X: ev.X, Y: ev.Y, Radius: ev.Amount})
	}
}

// Advance ages out expired carcasses.
func (l *FeatureLayer) Advance(frame uint32) {
	l.frame = frame
	kept := l.food[:0]
	for _, f := range l.food {
		if f.Carcass && frame-f.Born > carcassTTLFrames {
			continue
		}
		kept = append(kept, f)
	}
	l.food = kept
}
