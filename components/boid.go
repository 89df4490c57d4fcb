package components

// Stance is an agent's current behavioral mode. The set is closed;
// every switch over Stance must handle all values.
type Stance uint8

const (
	StanceIdle Stance = iota
	StanceFlocking
	StanceFleeing
	StanceHunting
	StanceEating
	StanceSeekingMate
	StanceMating

	numStances
)

// stanceNames indexes by Stance.
var stanceNames = [numStances]string{
	"idle",
	"flocking",
	"fleeing",
	"hunting",
	"eating",
	"seeking_mate",
	"mating",
}

// String returns the stance's wire name.
func (s Stance) String() string {
	if s < numStances {
		return stanceNames[s]
	}
	return "unknown"
}

// DeathCause tags a death event.
type DeathCause uint8

const (
	DeathOldAge DeathCause = iota
	DeathStarvation
	DeathPredation
)

// String returns the cause's wire name.
func (c DeathCause) String() string {
	switch c {
	case DeathOldAge:
		return "old_age"
	case DeathStarvation:
		return "starvation"
	case DeathPredation:
		return "predation"
	}
	return "unknown"
}

// Boid is the logical record for one agent. Physical state (position,
// velocity) lives in separate components and is published through the
// shared state buffer; this record is owned by the lifecycle pass.
type Boid struct {
	Slot      int    // Shared buffer slot, assigned once for the agent's lifetime
	ID        string // Stable identity, never reissued
	SpeciesID int    // Index into the configured species list

	Energy float32 // Always within [0, MaxEnergy]
	Health float32 // Always within [0, MaxHealth]
	Age    float32 // Simulated seconds

	Stance      Stance
	StanceSince uint32 // Frame the current stance was entered

	SeekingMate    bool
	MateID         string // Weak reference by id; empty when unpaired
	MateCommitment int32  // Ticks of sustained mate proximity

	ReproCooldown  float32 // Seconds until reproduction is possible again
	EatCooldown    float32 // Seconds until the next feeding event
	AttackCooldown float32 // Seconds until the next attack

	Alive      bool
	DeathCause DeathCause // Valid only once Alive is false
}

// SetStance switches stance and records the frame of entry.
func (b *Boid) SetStance(s Stance, frame uint32) {
	if b.Stance != s {
		b.Stance = s
		b.StanceSince = frame
	}
}
