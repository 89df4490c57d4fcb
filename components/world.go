package components

// SourceRole restricts which species may consume a food source.
type SourceRole uint8

const (
	SourcePrey     SourceRole = iota // Plant matter, consumable by prey
	SourcePredator                   // Carcass, consumable by predators
)

// String returns the source role's wire name.
func (r SourceRole) String() string {
	if r == SourcePredator {
		return "predator"
	}
	return "prey"
}

// Food is a stationary energy source. Energy regenerates toward
// MaxEnergy and the source is removed once fully consumed with no
// regeneration configured.
type Food struct {
	Energy    float32
	MaxEnergy float32
	Role      SourceRole
}

// Obstacle is a static circular barrier agents steer around.
type Obstacle struct {
	Radius float32
}

// DeathMarker repels prey from a recent kill site. Strength decays
// linearly with remaining lifetime; the marker is removed at zero.
type DeathMarker struct {
	SpeciesID int     // Species of the agent that died here
	Strength  float32 // Initial repulsion strength
	Remaining int32   // Ticks left
	Lifetime  int32   // Ticks at creation
}

// Decay advances the marker by one tick and reports whether it expired.
func (m *DeathMarker) Decay() bool {
	if m.Remaining > 0 {
		m.Remaining--
	}
	return m.Remaining <= 0
}

// Effective returns the current strength after decay.
func (m *DeathMarker) Effective() float32 {
	if m.Lifetime <= 0 {
		return 0
	}
	return m.Strength * float32(m.Remaining) / float32(m.Lifetime)
}
