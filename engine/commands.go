package engine

import (
	"fmt"
	"math"

	"github.com/RegiByte/emergent-boids-sub002/components"
	"github.com/RegiByte/emergent-boids-sub002/telemetry"
)

// Command is a typed request applied between ticks on the simulation
// goroutine. Control commands (pause, resume, step, time scale) are
// consumed by the runner; everything else mutates the world through
// Engine.Apply.
type Command interface {
	kind() string
}

// AddAgentCommand spawns agents of a named species. Zero Count means 1.
// Population caps still apply; capped spawns are skipped silently.
type AddAgentCommand struct {
	Species string
	X, Y    float64
	Count   int
}

// RemoveAgentCommand kills one agent by id. The death is reported as
// old age so downstream consumers never see an unknown cause.
type RemoveAgentCommand struct {
	AgentID string
}

// SpawnObstacleCommand places a static obstacle.
type SpawnObstacleCommand struct {
	X, Y   float64
	Radius float64
}

// SpawnFoodCommand places a regenerating food source.
type SpawnFoodCommand struct {
	X, Y   float64
	Energy float64
}

// SetForceWeightsCommand replaces the steering rule weights.
type SetForceWeightsCommand struct {
	Separation, Alignment, Cohesion float64
	Fear, Hunting, Avoidance        float64
	FoodSeek, MateSeek, Wander      float64
}

// PauseCommand suspends tick production.
type PauseCommand struct{}

// ResumeCommand resumes tick production.
type ResumeCommand struct{}

// StepCommand runs N ticks while paused. Zero means 1.
type StepCommand struct {
	Ticks int
}

// SetTimeScaleCommand multiplies the wall-clock tick rate. The fixed dt
// is unchanged; only how fast ticks are issued.
type SetTimeScaleCommand struct {
	Scale float64
}

func (AddAgentCommand) kind() string        { return "add_agent" }
func (RemoveAgentCommand) kind() string     { return "remove_agent" }
func (SpawnObstacleCommand) kind() string   { return "spawn_obstacle" }
func (SpawnFoodCommand) kind() string       { return "spawn_food" }
func (SetForceWeightsCommand) kind() string { return "set_force_weights" }
func (PauseCommand) kind() string           { return "pause" }
func (ResumeCommand) kind() string          { return "resume" }
func (StepCommand) kind() string            { return "step" }
func (SetTimeScaleCommand) kind() string    { return "set_time_scale" }

// Apply executes one world command. Invalid commands publish a
// command_error event and leave the world untouched; the tick loop
// never aborts on bad input.
func (e *Engine) Apply(cmd Command) {
	switch c := cmd.(type) {
	case AddAgentCommand:
		e.applyAddAgent(c)
	case RemoveAgentCommand:
		e.applyRemoveAgent(c)
	case SpawnObstacleCommand:
		e.applySpawnObstacle(c)
	case SpawnFoodCommand:
		e.applySpawnFood(c)
	case SetForceWeightsCommand:
		e.applySetForceWeights(c)
	case PauseCommand, ResumeCommand, StepCommand, SetTimeScaleCommand:
		// Control commands belong to the runner; reaching the engine
		// means a caller bypassed it.
		e.commandError("control command %q not valid here", cmd.kind())
	default:
		e.commandError("unknown command type %T", cmd)
	}
}

func (e *Engine) applyAddAgent(c AddAgentCommand) {
	sid, ok := e.cfg.Derived.SpeciesIndex[c.Species]
	if !ok {
		e.commandError("add_agent: unknown species %q", c.Species)
		return
	}
	if !e.inWorld(c.X, c.Y) {
		e.commandError("add_agent: position (%v, %v) outside world", c.X, c.Y)
		return
	}

	sp := &e.cfg.Species[sid]
	count := c.Count
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		heading := e.rng.Float32() * 2 * math.Pi
		e.spawnBoid(sid, "", float32(c.X), float32(c.Y), heading,
			float32(sp.InitialEnergy*sp.MaxEnergy))
	}
}

func (e *Engine) applyRemoveAgent(c RemoveAgentCommand) {
	ent, ok := e.byID[c.AgentID]
	if !ok {
		e.commandError("remove_agent: no agent %q", c.AgentID)
		return
	}
	boid := e.boidMap.Get(ent)
	pos := e.posMap.Get(ent)
	if boid == nil || pos == nil || !boid.Alive {
		e.commandError("remove_agent: agent %q already dead", c.AgentID)
		return
	}
	e.markDead(ent, boid, pos, components.DeathOldAge)
}

func (e *Engine) applySpawnObstacle(c SpawnObstacleCommand) {
	if c.Radius <= 0 {
		e.commandError("spawn_obstacle: radius must be positive, got %v", c.Radius)
		return
	}
	if !e.inWorld(c.X, c.Y) {
		e.commandError("spawn_obstacle: position (%v, %v) outside world", c.X, c.Y)
		return
	}
	e.spawnObstacle(float32(c.X), float32(c.Y), float32(c.Radius))
}

func (e *Engine) applySpawnFood(c SpawnFoodCommand) {
	if !e.inWorld(c.X, c.Y) {
		e.commandError("spawn_food: position (%v, %v) outside world", c.X, c.Y)
		return
	}
	energy := c.Energy
	if energy <= 0 {
		energy = e.cfg.Food.Energy
	}
	e.spawnFood(float32(c.X), float32(c.Y),
		float32(energy), float32(e.cfg.Food.MaxEnergy), components.SourcePrey)
}

func (e *Engine) applySetForceWeights(c SetForceWeightsCommand) {
	f := &e.cfg.Forces
	f.Separation = c.Separation
	f.Alignment = c.Alignment
	f.Cohesion = c.Cohesion
	f.Fear = c.Fear
	f.Hunting = c.Hunting
	f.Avoidance = c.Avoidance
	f.FoodSeek = c.FoodSeek
	f.MateSeek = c.MateSeek
	f.Wander = c.Wander
}

func (e *Engine) inWorld(x, y float64) bool {
	return x >= 0 && x < float64(e.cfg.World.Width) &&
		y >= 0 && y < float64(e.cfg.World.Height)
}

func (e *Engine) commandError(format string, args ...any) {
	e.events.Publish(telemetry.NewCommandErrorEvent(e.frame, fmt.Sprintf(format, args...)))
}
