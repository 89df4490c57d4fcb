package engine

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"

	"github.com/RegiByte/emergent-boids-sub002/components"
	"github.com/RegiByte/emergent-boids-sub002/config"
	"github.com/RegiByte/emergent-boids-sub002/systems"
	"github.com/RegiByte/emergent-boids-sub002/telemetry"
)

// boidRef is the spatial grid payload for agents: enough to classify a
// neighbor without a component lookup.
type boidRef struct {
	Entity   ecs.Entity
	Slot     int32
	Species  int32
	Predator bool
}

// Options configures engine construction.
type Options struct {
	Seed int64
}

// Engine owns the complete simulated world. All methods must be called
// from a single goroutine; cross-thread access goes through the shared
// state channel and the event bus only.
type Engine struct {
	cfg *config.Config
	rng *rand.Rand

	world *ecs.World

	// Entity mappers
	boidMapper *ecs.Map5[
		components.Position,
		components.Velocity,
		components.Acceleration,
		components.Trail,
		components.Boid,
	]
	boidFilter *ecs.Filter5[
		components.Position,
		components.Velocity,
		components.Acceleration,
		components.Trail,
		components.Boid,
	]
	foodMapper     *ecs.Map2[components.Position, components.Food]
	foodFilter     *ecs.Filter2[components.Position, components.Food]
	obstacleMapper *ecs.Map2[components.Position, components.Obstacle]
	obstacleFilter *ecs.Filter2[components.Position, components.Obstacle]
	markerMapper   *ecs.Map2[components.Position, components.DeathMarker]
	markerFilter   *ecs.Filter2[components.Position, components.DeathMarker]

	// Individual component mappers for lookups
	posMap      *ecs.Map1[components.Position]
	velMap      *ecs.Map1[components.Velocity]
	accMap      *ecs.Map1[components.Acceleration]
	trailMap    *ecs.Map1[components.Trail]
	boidMap     *ecs.Map1[components.Boid]
	foodMap     *ecs.Map1[components.Food]
	obstacleMap *ecs.Map1[components.Obstacle]
	markerMap   *ecs.Map1[components.DeathMarker]

	// Spatial indices, rebuilt every tick through the ops layout
	boidGrid     *systems.SpatialGrid[boidRef]
	foodGrid     *systems.SpatialGrid[ecs.Entity]
	obstacleGrid *systems.SpatialGrid[ecs.Entity]
	markerGrid   *systems.SpatialGrid[ecs.Entity]

	fertility *systems.FertilityField

	// Shared state publication
	channel  *SharedStateChannel
	producer *Producer

	events *telemetry.Bus

	// Per-tick collection snapshots driving the ops layout
	boidList     []ecs.Entity
	foodList     []ecs.Entity
	obstacleList []ecs.Entity
	markerList   []ecs.Entity

	// Deferred mutations applied after the op sweep
	births         []birthRequest
	removals       []ecs.Entity
	foodRemovals   []ecs.Entity
	markerRemovals []ecs.Entity

	// Slot management: freed slots wait two flips before reuse so both
	// mirrors have observed the cleared alive flag.
	slotsUsed  int
	freeSlots  []freedSlot
	bySlot     []ecs.Entity
	byID       map[string]ecs.Entity
	speciesCnt []int

	aliveCount int
	deadCount  int
	bornCount  int

	frame   uint32
	simTime float64

	// Scratch buffers reused across agents
	nbScratch   []systems.Neighbor[boidRef]
	ptScratch   []systems.Neighbor[ecs.Entity]
	peerScratch []systems.PeerNeighbor
	threatBuf   []systems.PointNeighbor
	targetBuf   []systems.PointNeighbor
	obsBuf      []systems.PointNeighbor

	missingSpeciesLogged map[int]bool
}

type freedSlot struct {
	slot    int
	atFrame uint32
}

type birthRequest struct {
	speciesID int
	parentID  string
	x, y      float32
	heading   float32
	energy    float32
}

// New constructs an engine from the given config.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	channel, err := NewSharedStateChannel(cfg.Buffer.Capacity)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	producer, err := channel.NewProducer()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	world := ecs.NewWorld()

	e := &Engine{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		world: world,
		boidMapper: ecs.NewMap5[
			components.Position,
			components.Velocity,
			components.Acceleration,
			components.Trail,
			components.Boid,
		](world),
		boidFilter: ecs.NewFilter5[
			components.Position,
			components.Velocity,
			components.Acceleration,
			components.Trail,
			components.Boid,
		](world),
		foodMapper:     ecs.NewMap2[components.Position, components.Food](world),
		foodFilter:     ecs.NewFilter2[components.Position, components.Food](world),
		obstacleMapper: ecs.NewMap2[components.Position, components.Obstacle](world),
		obstacleFilter: ecs.NewFilter2[components.Position, components.Obstacle](world),
		markerMapper:   ecs.NewMap2[components.Position, components.DeathMarker](world),
		markerFilter:   ecs.NewFilter2[components.Position, components.DeathMarker](world),

		posMap:      ecs.NewMap1[components.Position](world),
		velMap:      ecs.NewMap1[components.Velocity](world),
		accMap:      ecs.NewMap1[components.Acceleration](world),
		trailMap:    ecs.NewMap1[components.Trail](world),
		boidMap:     ecs.NewMap1[components.Boid](world),
		foodMap:     ecs.NewMap1[components.Food](world),
		obstacleMap: ecs.NewMap1[components.Obstacle](world),
		markerMap:   ecs.NewMap1[components.DeathMarker](world),

		channel:  channel,
		producer: producer,
		events:   telemetry.NewBus(cfg.Telemetry.EventBuffer),

		bySlot:     make([]ecs.Entity, cfg.Buffer.Capacity),
		byID:       make(map[string]ecs.Entity),
		speciesCnt: make([]int, len(cfg.Species)),

		missingSpeciesLogged: make(map[int]bool),
	}

	cell := float32(cfg.Physics.GridCellSize)
	w, h := cfg.Derived.WorldW32, cfg.Derived.WorldH32
	e.boidGrid = systems.NewSpatialGrid[boidRef](w, h, cell)
	e.foodGrid = systems.NewSpatialGrid[ecs.Entity](w, h, cell)
	e.obstacleGrid = systems.NewSpatialGrid[ecs.Entity](w, h, cell)
	e.markerGrid = systems.NewSpatialGrid[ecs.Entity](w, h, cell)

	e.fertility = systems.NewFertilityField(opts.Seed,
		cfg.Food.NoiseScale, cfg.Food.NoiseThreshold, w, h)

	e.seedWorld()

	return e, nil
}

// Channel returns the shared state channel for consumers.
func (e *Engine) Channel() *SharedStateChannel {
	return e.channel
}

// Events returns the lifecycle event bus.
func (e *Engine) Events() *telemetry.Bus {
	return e.events
}

// Frame returns the current frame counter.
func (e *Engine) Frame() uint32 {
	return e.frame
}

// SimTime returns elapsed simulation seconds.
func (e *Engine) SimTime() float64 {
	return e.simTime
}

// AliveCount returns the number of live agents.
func (e *Engine) AliveCount() int {
	return e.aliveCount
}

// SpeciesCount returns the live count of one species.
func (e *Engine) SpeciesCount(speciesID int) int {
	if speciesID < 0 || speciesID >= len(e.speciesCnt) {
		return 0
	}
	return e.speciesCnt[speciesID]
}

// seedWorld creates the initial population, food and obstacles.
func (e *Engine) seedWorld() {
	cfg := e.cfg
	w, h := cfg.Derived.WorldW32, cfg.Derived.WorldH32

	for sid := range cfg.Species {
		sp := &cfg.Species[sid]
		for i := 0; i < sp.InitialCount; i++ {
			x := e.rng.Float32() * w
			y := e.rng.Float32() * h
			heading := e.rng.Float32() * 2 * math.Pi
			energy := float32(sp.InitialEnergy * sp.MaxEnergy)
			e.spawnBoid(sid, "", x, y, heading, energy)
		}
	}

	for i := 0; i < cfg.Food.InitialCount; i++ {
		x, y := e.fertility.SamplePoint(e.rng)
		e.spawnFood(x, y, float32(cfg.Food.Energy), float32(cfg.Food.MaxEnergy), components.SourcePrey)
	}

	for i := 0; i < cfg.Obstacles.InitialCount; i++ {
		x := e.rng.Float32() * w
		y := e.rng.Float32() * h
		r := float32(cfg.Obstacles.MinRadius +
			e.rng.Float64()*(cfg.Obstacles.MaxRadius-cfg.Obstacles.MinRadius))
		e.spawnObstacle(x, y, r)
	}
}

// spawnBoid creates an agent if slot capacity and population caps
// allow. Returns false when the spawn was skipped; at-cap skips are
// policy, not errors.
func (e *Engine) spawnBoid(speciesID int, parentID string, x, y, heading, energy float32) bool {
	cfg := e.cfg
	if speciesID < 0 || speciesID >= len(cfg.Species) {
		return false
	}
	sp := &cfg.Species[speciesID]

	if e.speciesCnt[speciesID] >= sp.Cap {
		return false
	}
	if cfg.Population.GlobalCap > 0 && e.aliveCount >= cfg.Population.GlobalCap {
		return false
	}

	slot, ok := e.allocSlot()
	if !ok {
		slog.Warn("shared buffer full, spawn skipped",
			"species", sp.Name, "capacity", e.channel.Capacity())
		return false
	}

	id := uuid.NewString()
	speed := float32(sp.MaxSpeed) * 0.25

	pos := components.Position{X: systems.Wrap(x, cfg.Derived.WorldW32), Y: systems.Wrap(y, cfg.Derived.WorldH32)}
	vel := components.Velocity{
		X: float32(math.Cos(float64(heading))) * speed,
		Y: float32(math.Sin(float64(heading))) * speed,
	}
	acc := components.Acceleration{}
	trail := components.Trail{}
	boid := components.Boid{
		Slot:      slot,
		ID:        id,
		SpeciesID: speciesID,
		Energy:    clampf(energy, 0, float32(sp.MaxEnergy)),
		Health:    float32(sp.MaxHealth),
		Stance:    components.StanceIdle,
		Alive:     true,
	}
	boid.StanceSince = e.frame
	boid.ReproCooldown = float32(sp.Reproduction.MinAge)

	ent := e.boidMapper.NewEntity(&pos, &vel, &acc, &trail, &boid)
	e.bySlot[slot] = ent
	e.byID[id] = ent
	e.speciesCnt[speciesID]++
	e.aliveCount++
	e.bornCount++

	e.events.Publish(telemetry.NewBirthEvent(e.frame, id, parentID, speciesID, pos.X, pos.Y))
	return true
}

// spawnFood creates a food source entity.
func (e *Engine) spawnFood(x, y, energy, maxEnergy float32, role components.SourceRole) ecs.Entity {
	pos := components.Position{
		X: systems.Wrap(x, e.cfg.Derived.WorldW32),
		Y: systems.Wrap(y, e.cfg.Derived.WorldH32),
	}
	food := components.Food{Energy: energy, MaxEnergy: maxEnergy, Role: role}
	ent := e.foodMapper.NewEntity(&pos, &food)
	e.events.Publish(telemetry.NewFoodSpawnedEvent(e.frame, pos.X, pos.Y, energy, role))
	return ent
}

// spawnObstacle creates a static obstacle entity.
func (e *Engine) spawnObstacle(x, y, radius float32) ecs.Entity {
	pos := components.Position{
		X: systems.Wrap(x, e.cfg.Derived.WorldW32),
		Y: systems.Wrap(y, e.cfg.Derived.WorldH32),
	}
	obs := components.Obstacle{Radius: radius}
	ent := e.obstacleMapper.NewEntity(&pos, &obs)
	e.events.Publish(telemetry.NewObstacleSpawnedEvent(e.frame, pos.X, pos.Y, radius))
	return ent
}

// spawnMarker drops a death marker at a kill site.
func (e *Engine) spawnMarker(x, y float32, speciesID int) {
	pos := components.Position{X: x, Y: y}
	life := int32(e.cfg.Markers.LifetimeTicks)
	marker := components.DeathMarker{
		SpeciesID: speciesID,
		Strength:  float32(e.cfg.Markers.Strength),
		Remaining: life,
		Lifetime:  life,
	}
	e.markerMapper.NewEntity(&pos, &marker)
}

// allocSlot reserves a shared buffer slot. Freed slots become reusable
// only after both mirrors have published the cleared alive flag.
func (e *Engine) allocSlot() (int, bool) {
	if e.slotsUsed < e.channel.Capacity() {
		s := e.slotsUsed
		e.slotsUsed++
		return s, true
	}
	for i, f := range e.freeSlots {
		if e.frame-f.atFrame >= 2 {
			e.freeSlots = append(e.freeSlots[:i], e.freeSlots[i+1:]...)
			return f.slot, true
		}
	}
	return 0, false
}

// markDead flags an agent dead and emits its death event. The logical
// record survives until endTick removal so observers can read final
// attributes; the id is never reissued.
func (e *Engine) markDead(ent ecs.Entity, boid *components.Boid, pos *components.Position, cause components.DeathCause) {
	if !boid.Alive {
		return
	}
	boid.Alive = false
	boid.DeathCause = cause

	e.events.Publish(telemetry.NewDeathEvent(e.frame, boid.ID, boid.SpeciesID, cause, pos.X, pos.Y))

	e.speciesCnt[boid.SpeciesID]--
	e.aliveCount--
	e.deadCount++

	e.producer.ClearSlot(boid.Slot)
	e.freeSlots = append(e.freeSlots, freedSlot{slot: boid.Slot, atFrame: e.frame})
	e.removals = append(e.removals, ent)
}

// species returns the species config, or nil when the id is unknown.
// Unknown ids degrade that agent to a no-op, never a frame failure.
func (e *Engine) species(id int) *config.SpeciesConfig {
	if id < 0 || id >= len(e.cfg.Species) {
		if !e.missingSpeciesLogged[id] {
			slog.Warn("missing species config, agent degraded to no-op", "species_id", id)
			e.missingSpeciesLogged[id] = true
		}
		return nil
	}
	return &e.cfg.Species[id]
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
