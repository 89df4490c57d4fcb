package engine

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/RegiByte/emergent-boids-sub002/components"
	"github.com/RegiByte/emergent-boids-sub002/config"
	"github.com/RegiByte/emergent-boids-sub002/systems"
	"github.com/RegiByte/emergent-boids-sub002/telemetry"
)

// maxNeighbors caps spatial query results per agent so dense flocks
// cannot cause unbounded per-tick work.
const maxNeighbors = 48

// hungerFraction is the energy fraction below which agents forage.
const hungerFraction = 0.75

// updateBehavior re-evaluates one agent's stance and steering force.
// This is the expensive pass; the scheduler runs it on a staggered
// subset of agents per tick while integration runs every tick on the
// force computed here.
func (e *Engine) updateBehavior(ent ecs.Entity, boid *components.Boid, pos *components.Position, vel *components.Velocity, acc *components.Acceleration, sp *config.SpeciesConfig) {
	fw := &e.cfg.Forces
	vision := float32(sp.VisionRange)

	agent := systems.AgentView{
		X: pos.X, Y: pos.Y,
		VX: vel.X, VY: vel.Y,
		MaxSpeed: float32(sp.MaxSpeed),
		MaxForce: float32(sp.MaxForce),
	}

	e.nbScratch = e.boidGrid.QueryNearby(e.nbScratch[:0], pos.X, pos.Y, maxNeighbors, vision)

	// Partition neighbors into peers, threats and prey targets.
	e.peerScratch = e.peerScratch[:0]
	e.threatBuf = e.threatBuf[:0]
	e.targetBuf = e.targetBuf[:0]
	var nearestPrey *systems.Neighbor[boidRef]
	for i := range e.nbScratch {
		n := &e.nbScratch[i]
		if n.Value.Entity == ent {
			continue
		}
		switch {
		case int(n.Value.Species) == boid.SpeciesID:
			pv := e.velMap.Get(n.Value.Entity)
			if pv == nil {
				continue
			}
			e.peerScratch = append(e.peerScratch, systems.PeerNeighbor{
				DX: n.DX, DY: n.DY, DistSq: n.DistSq, VX: pv.X, VY: pv.Y,
			})
		case n.Value.Predator && !sp.IsPredator():
			e.threatBuf = append(e.threatBuf, systems.PointNeighbor{
				DX: n.DX, DY: n.DY, DistSq: n.DistSq, Weight: 1,
			})
		case !n.Value.Predator && sp.IsPredator():
			e.targetBuf = append(e.targetBuf, systems.PointNeighbor{
				DX: n.DX, DY: n.DY, DistSq: n.DistSq,
			})
			if nearestPrey == nil || n.DistSq < nearestPrey.DistSq {
				nearestPrey = n
			}
		}
	}

	// Death markers repel prey alongside live predators.
	if !sp.IsPredator() {
		e.ptScratch = e.markerGrid.QueryNearby(e.ptScratch[:0], pos.X, pos.Y, maxNeighbors, vision)
		for i := range e.ptScratch {
			n := &e.ptScratch[i]
			m := e.markerMap.Get(n.Value)
			if m == nil {
				continue
			}
			e.threatBuf = append(e.threatBuf, systems.PointNeighbor{
				DX: n.DX, DY: n.DY, DistSq: n.DistSq, Weight: m.Effective(),
			})
		}
	}

	// Nearest compatible food.
	var foodDX, foodDY float32
	var foodDistSq float32 = -1
	e.ptScratch = e.foodGrid.QueryNearby(e.ptScratch[:0], pos.X, pos.Y, maxNeighbors, vision)
	wantRole := components.SourcePrey
	if sp.IsPredator() {
		wantRole = components.SourcePredator
	}
	for i := range e.ptScratch {
		n := &e.ptScratch[i]
		f := e.foodMap.Get(n.Value)
		if f == nil || f.Role != wantRole || f.Energy <= 0 {
			continue
		}
		foodDX, foodDY, foodDistSq = n.DX, n.DY, n.DistSq
		break // results arrive nearest-first
	}

	hungry := boid.Energy < float32(sp.MaxEnergy)*hungerFraction

	// Stance selection, highest priority first.
	switch {
	case len(e.threatBuf) > 0 && !sp.IsPredator() && hasLiveThreat(e.threatBuf):
		boid.SetStance(components.StanceFleeing, e.frame)
	case sp.IsPredator() && hungry && foodDistSq >= 0 && (nearestPrey == nil || foodDistSq < nearestPrey.DistSq):
		boid.SetStance(components.StanceEating, e.frame)
	case sp.IsPredator() && hungry && nearestPrey != nil:
		boid.SetStance(components.StanceHunting, e.frame)
	case !sp.IsPredator() && hungry && foodDistSq >= 0:
		boid.SetStance(components.StanceEating, e.frame)
	case boid.SeekingMate && boid.MateID != "":
		// Upgraded to mating below once the partner is in range.
		boid.SetStance(components.StanceSeekingMate, e.frame)
	case len(e.peerScratch) > 0:
		boid.SetStance(components.StanceFlocking, e.frame)
	default:
		boid.SetStance(components.StanceIdle, e.frame)
	}

	// Force accumulation for the chosen stance. Separation and obstacle
	// avoidance always apply.
	facc := systems.NewForceAccumulator(float32(sp.MaxForce))

	fx, fy := systems.Separation(agent, e.peerScratch, float32(sp.SeparationRange))
	facc.Add(fx, fy, float32(fw.Separation))

	e.ptScratch = e.obstacleGrid.QueryNearby(e.ptScratch[:0], pos.X, pos.Y, maxNeighbors, vision)
	e.obsBuf = e.obsBuf[:0]
	for i := range e.ptScratch {
		n := &e.ptScratch[i]
		o := e.obstacleMap.Get(n.Value)
		if o == nil {
			continue
		}
		e.obsBuf = append(e.obsBuf, systems.PointNeighbor{
			DX: n.DX, DY: n.DY, DistSq: n.DistSq, Radius: o.Radius,
		})
	}
	fx, fy = systems.Avoid(agent, e.obsBuf, vision*0.5)
	facc.Add(fx, fy, float32(fw.Avoidance))

	switch boid.Stance {
	case components.StanceFleeing:
		fx, fy = systems.Flee(agent, e.threatBuf)
		facc.Add(fx, fy, float32(fw.Fear))
	case components.StanceHunting:
		fx, fy = systems.Hunt(agent, e.targetBuf)
		facc.Add(fx, fy, float32(fw.Hunting))
	case components.StanceEating:
		fx, fy = systems.Seek(agent, foodDX, foodDY)
		facc.Add(fx, fy, float32(fw.FoodSeek))
	case components.StanceSeekingMate, components.StanceMating:
		if mdx, mdy, ok := e.mateDelta(boid, pos); ok {
			if mdx*mdx+mdy*mdy <= float32(sp.MateRange*sp.MateRange) {
				boid.SetStance(components.StanceMating, e.frame)
			}
			fx, fy = systems.Seek(agent, mdx, mdy)
			facc.Add(fx, fy, float32(fw.MateSeek))
		}
	case components.StanceFlocking:
		fx, fy = systems.Alignment(agent, e.peerScratch)
		facc.Add(fx, fy, float32(fw.Alignment))
		fx, fy = systems.Cohesion(agent, e.peerScratch)
		facc.Add(fx, fy, float32(fw.Cohesion))
	case components.StanceIdle:
		// wander below
	}

	jx, jy := e.randUnit()
	fx, fy = systems.Wander(agent, jx, jy)
	facc.Add(fx, fy, float32(fw.Wander))

	acc.X, acc.Y = facc.Resolve()

	// Predators strike from the behavior pass; the kill itself runs
	// through the catch handler so the death cause is always predation.
	if sp.IsPredator() && boid.Stance == components.StanceHunting && nearestPrey != nil {
		e.tryAttack(boid, pos, sp, nearestPrey)
	}
}

// hasLiveThreat reports whether any threat carries full weight (a live
// predator rather than a decaying marker).
func hasLiveThreat(threats []systems.PointNeighbor) bool {
	for i := range threats {
		if threats[i].Weight >= 1 {
			return true
		}
	}
	return false
}

// mateDelta returns the toroidal delta to the agent's committed mate.
func (e *Engine) mateDelta(boid *components.Boid, pos *components.Position) (dx, dy float32, ok bool) {
	mateEnt, exists := e.byID[boid.MateID]
	if !exists {
		return 0, 0, false
	}
	mb := e.boidMap.Get(mateEnt)
	mp := e.posMap.Get(mateEnt)
	if mb == nil || mp == nil || !mb.Alive {
		return 0, 0, false
	}
	dx, dy = systems.ToroidalDelta(pos.X, pos.Y, mp.X, mp.Y,
		e.cfg.Derived.WorldW32, e.cfg.Derived.WorldH32)
	return dx, dy, true
}

// tryAttack runs the catch handler: damage the prey, and on a kill
// transfer energy, emit the catch, and drop a marker plus a carcass.
// Predation is the only path that sets the predation death cause.
func (e *Engine) tryAttack(pred *components.Boid, predPos *components.Position, sp *config.SpeciesConfig, prey *systems.Neighbor[boidRef]) {
	if pred.AttackCooldown > 0 {
		return
	}
	if prey.DistSq > float32(sp.AttackRange*sp.AttackRange) {
		return
	}

	preyBoid := e.boidMap.Get(prey.Value.Entity)
	preyPos := e.posMap.Get(prey.Value.Entity)
	if preyBoid == nil || preyPos == nil || !preyBoid.Alive {
		return
	}

	pred.AttackCooldown = float32(sp.AttackCooldown)
	preyBoid.Health -= float32(sp.AttackDamage)

	if preyBoid.Health > 0 {
		return
	}
	preyBoid.Health = 0

	// Kill: predator feeds on the catch directly.
	gain := preyBoid.Energy * 0.5
	pred.Energy = clampf(pred.Energy+gain, 0, float32(sp.MaxEnergy))

	e.events.Publish(telemetry.NewCatchEvent(e.frame, pred.ID, preyBoid.ID, preyBoid.SpeciesID, gain, preyPos.X, preyPos.Y))
	e.markDead(prey.Value.Entity, preyBoid, preyPos, components.DeathPredation)

	e.spawnMarker(preyPos.X, preyPos.Y, preyBoid.SpeciesID)
	cfgFood := &e.cfg.Food
	e.spawnFood(preyPos.X, preyPos.Y,
		float32(cfgFood.CarcassEnergy), float32(cfgFood.CarcassEnergy),
		components.SourcePredator)
}

// randUnit returns a random unit vector from the engine's seeded rng.
func (e *Engine) randUnit() (float32, float32) {
	a := e.rng.Float64() * 2 * math.Pi
	return float32(math.Cos(a)), float32(math.Sin(a))
}
