package engine

import (
	"math"

	"github.com/RegiByte/emergent-boids-sub002/components"
	"github.com/RegiByte/emergent-boids-sub002/config"
	"github.com/RegiByte/emergent-boids-sub002/systems"
)

// Step runs one fixed-timestep tick: snapshot the collections, compute
// the ops layout, sweep a single counter across every scheduled
// operation, then apply deferred births/removals and publish the tick
// through the shared state channel.
func (e *Engine) Step() {
	dt := e.cfg.Derived.DT32

	e.beginTick()

	var counts [NumOpKinds]int
	counts[OpDeathMarkers] = len(e.markerList)
	counts[OpObstacles] = len(e.obstacleList)
	counts[OpFood] = len(e.foodList)
	counts[OpSpatialInsert] = len(e.boidList)
	counts[OpAgentUpdate] = len(e.boidList)
	layout := BuildOpsLayout(counts)

	for i := 0; i < layout.Total(); i++ {
		kind, local, ok := layout.Lookup(i)
		if !ok {
			break
		}
		switch kind {
		case OpDeathMarkers:
			e.opDecayMarker(local)
		case OpObstacles:
			e.opIndexObstacle(local)
		case OpFood:
			e.opUpdateFood(local, dt)
		case OpSpatialInsert:
			e.opIndexBoid(local)
		case OpAgentUpdate:
			e.opUpdateAgent(local, dt)
		}
	}

	e.endTick(dt)
}

// beginTick snapshots the per-kind entity lists that give the ops
// layout stable local indices, clears the spatial grids, and opens the
// back mirror for this tick's writes.
func (e *Engine) beginTick() {
	e.boidList = e.boidList[:0]
	query := e.boidFilter.Query()
	for query.Next() {
		e.boidList = append(e.boidList, query.Entity())
	}

	e.foodList = e.foodList[:0]
	fq := e.foodFilter.Query()
	for fq.Next() {
		e.foodList = append(e.foodList, fq.Entity())
	}

	e.obstacleList = e.obstacleList[:0]
	oq := e.obstacleFilter.Query()
	for oq.Next() {
		e.obstacleList = append(e.obstacleList, oq.Entity())
	}

	e.markerList = e.markerList[:0]
	mq := e.markerFilter.Query()
	for mq.Next() {
		e.markerList = append(e.markerList, mq.Entity())
	}

	e.boidGrid.Clear()
	e.foodGrid.Clear()
	e.obstacleGrid.Clear()
	e.markerGrid.Clear()

	e.producer.Begin()
}

// opDecayMarker advances one death marker and queues expired ones.
func (e *Engine) opDecayMarker(local int) {
	ent := e.markerList[local]
	m := e.markerMap.Get(ent)
	pos := e.posMap.Get(ent)
	if m == nil || pos == nil {
		return
	}
	if m.Decay() {
		e.markerRemovals = append(e.markerRemovals, ent)
		return
	}
	e.markerGrid.Insert(ent, pos.X, pos.Y)
}

// opIndexObstacle re-registers one static obstacle in the per-tick grid.
func (e *Engine) opIndexObstacle(local int) {
	ent := e.obstacleList[local]
	pos := e.posMap.Get(ent)
	if pos == nil {
		return
	}
	e.obstacleGrid.Insert(ent, pos.X, pos.Y)
}

// opUpdateFood regenerates one food source and indexes it. Depleted
// sources that cannot regrow (carcasses) are removed.
func (e *Engine) opUpdateFood(local int, dt float32) {
	ent := e.foodList[local]
	food := e.foodMap.Get(ent)
	pos := e.posMap.Get(ent)
	if food == nil || pos == nil {
		return
	}

	if food.Role == components.SourcePrey {
		regen := float32(e.cfg.Food.RegenRate) * dt
		food.Energy = clampf(food.Energy+regen, 0, food.MaxEnergy)
	} else if food.Energy <= 0 {
		e.foodRemovals = append(e.foodRemovals, ent)
		return
	}

	e.foodGrid.Insert(ent, pos.X, pos.Y)
}

// opIndexBoid inserts one agent into the boid grid.
func (e *Engine) opIndexBoid(local int) {
	ent := e.boidList[local]
	pos := e.posMap.Get(ent)
	boid := e.boidMap.Get(ent)
	if pos == nil || boid == nil || !boid.Alive {
		return
	}
	sp := e.species(boid.SpeciesID)
	if sp == nil {
		return
	}
	e.boidGrid.Insert(boidRef{
		Entity:   ent,
		Slot:     int32(boid.Slot),
		Species:  int32(boid.SpeciesID),
		Predator: sp.IsPredator(),
	}, pos.X, pos.Y)
}

// opUpdateAgent runs the full per-agent update: staggered behavior
// re-evaluation, every-tick integration, staggered trail sampling and
// staggered lifecycle checks, then publishes the slot.
func (e *Engine) opUpdateAgent(local int, dt float32) {
	ent := e.boidList[local]
	boid := e.boidMap.Get(ent)
	if boid == nil || !boid.Alive {
		return
	}
	pos := e.posMap.Get(ent)
	vel := e.velMap.Get(ent)
	acc := e.accMap.Get(ent)
	if pos == nil || vel == nil || acc == nil {
		return
	}
	sp := e.species(boid.SpeciesID)
	if sp == nil {
		return
	}

	st := e.cfg.Stagger

	if Due(boid.Slot, st.BehaviorPeriod, e.frame) {
		e.updateBehavior(ent, boid, pos, vel, acc, sp)
	}

	if boid.Alive {
		e.integrate(pos, vel, acc, sp, dt)
	}

	if Due(boid.Slot, st.TrailPeriod, e.frame) {
		if trail := e.trailMap.Get(ent); trail != nil {
			trail.Push(*pos)
		}
	}

	if boid.Alive && Due(boid.Slot, st.LifecyclePeriod, e.frame) {
		e.lifecycleCheck(ent, boid, pos, sp, ScaledDT(dt, st.LifecyclePeriod))
	}

	if boid.Alive {
		e.publishSlot(boid, pos, vel)
	}
}

// integrate applies the accumulated steering force to velocity and
// position with toroidal wrap. Runs every tick even when the behavior
// pass was staggered out, so motion stays smooth.
func (e *Engine) integrate(pos *components.Position, vel *components.Velocity, acc *components.Acceleration, sp *config.SpeciesConfig, dt float32) {
	vel.X += acc.X * dt
	vel.Y += acc.Y * dt

	vel.X, vel.Y = systems.Limit(vel.X, vel.Y, float32(sp.MaxSpeed))

	pos.X = systems.Wrap(pos.X+vel.X*dt, e.cfg.Derived.WorldW32)
	pos.Y = systems.Wrap(pos.Y+vel.Y*dt, e.cfg.Derived.WorldH32)
}

// publishSlot writes one live agent's state into the back mirror.
func (e *Engine) publishSlot(boid *components.Boid, pos *components.Position, vel *components.Velocity) {
	e.producer.SetPosition(boid.Slot, pos.X, pos.Y)
	e.producer.SetVelocity(boid.Slot, vel.X, vel.Y)
	e.producer.SetScalars(boid.Slot, boid.Energy, boid.Health)
	e.producer.SetFlags(boid.Slot, boid.Stance, boid.SpeciesID, boid.SeekingMate, true, boid.StanceSince)
}

// endTick applies deferred mutations, publishes stats, and advances the
// virtual clock.
func (e *Engine) endTick(dt float32) {
	// Births queued during the sweep; caps re-checked inside spawnBoid
	// so a full tick can never overshoot.
	for _, b := range e.births {
		e.spawnBoid(b.speciesID, b.parentID, b.x, b.y, b.heading, b.energy)
	}

	e.respawnGuard()

	// Death events were emitted at markDead; only now do the records
	// disappear. The queues are cleared here, not at beginTick, so
	// removals from commands applied between ticks are not lost.
	for _, ent := range e.removals {
		if boid := e.boidMap.Get(ent); boid != nil {
			delete(e.byID, boid.ID)
		}
		e.boidMapper.Remove(ent)
	}
	for _, ent := range e.foodRemovals {
		e.foodMapper.Remove(ent)
	}
	for _, ent := range e.markerRemovals {
		e.markerMapper.Remove(ent)
	}
	e.births = e.births[:0]
	e.removals = e.removals[:0]
	e.foodRemovals = e.foodRemovals[:0]
	e.markerRemovals = e.markerRemovals[:0]

	e.producer.SetStats(
		uint32(e.aliveCount),
		uint32(e.deadCount),
		uint32(e.bornCount),
		e.frame,
		float32(e.simTime),
	)
	e.producer.Publish()

	e.frame++
	e.simTime += float64(dt)
}

// respawnGuard reseeds a collapsed species when enabled. Disabled by
// default; population caps still apply to the reseeded agents.
func (e *Engine) respawnGuard() {
	p := e.cfg.Population
	if !p.RespawnEnabled {
		return
	}
	for sid := range e.cfg.Species {
		sp := &e.cfg.Species[sid]
		if e.speciesCnt[sid] >= p.RespawnThreshold {
			continue
		}
		for i := 0; i < p.RespawnCount; i++ {
			x := e.rng.Float32() * e.cfg.Derived.WorldW32
			y := e.rng.Float32() * e.cfg.Derived.WorldH32
			heading := e.rng.Float32() * 2 * math.Pi
			e.spawnBoid(sid, "", x, y, heading, float32(sp.InitialEnergy*sp.MaxEnergy))
		}
	}
}
