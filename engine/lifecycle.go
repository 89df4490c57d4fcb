package engine

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/RegiByte/emergent-boids-sub002/components"
	"github.com/RegiByte/emergent-boids-sub002/config"
	"github.com/RegiByte/emergent-boids-sub002/systems"
	"github.com/RegiByte/emergent-boids-sub002/telemetry"
)

// biteFraction limits how much of its energy ceiling an agent can gain
// in a single feeding event.
const biteFraction = 0.25

// lifecycleCheck runs one staggered lifecycle pass for an agent. sdt is
// the tick dt scaled by the lifecycle period, so aging and metabolism
// advance at the same rate regardless of how the checks are spread
// across ticks.
func (e *Engine) lifecycleCheck(ent ecs.Entity, boid *components.Boid, pos *components.Position, sp *config.SpeciesConfig, sdt float32) {
	boid.ReproCooldown = clampf(boid.ReproCooldown-sdt, 0, boid.ReproCooldown)
	boid.EatCooldown = clampf(boid.EatCooldown-sdt, 0, boid.EatCooldown)
	boid.AttackCooldown = clampf(boid.AttackCooldown-sdt, 0, boid.AttackCooldown)

	boid.Age += sdt
	if boid.Age >= float32(sp.MaxAge) {
		e.markDead(ent, boid, pos, components.DeathOldAge)
		return
	}

	boid.Energy -= float32(sp.MetabolicRate) * sdt

	if boid.Stance == components.StanceEating && boid.EatCooldown <= 0 {
		e.tryFeed(boid, pos, sp)
	}

	if boid.Energy <= 0 {
		boid.Energy = 0
		e.markDead(ent, boid, pos, components.DeathStarvation)
		return
	}

	// Health only drops in combat; a combat kill is handled in the catch
	// path, so anything that reaches zero here counts as starvation.
	if boid.Health <= 0 {
		e.markDead(ent, boid, pos, components.DeathStarvation)
		return
	}
	boid.Health = clampf(boid.Health+float32(sp.HealthRegen)*sdt, 0, float32(sp.MaxHealth))

	e.updateReproduction(boid, pos, sp)
}

// tryFeed transfers energy from the nearest compatible food source in
// consume range. At most one feeding event per lifecycle check.
func (e *Engine) tryFeed(boid *components.Boid, pos *components.Position, sp *config.SpeciesConfig) {
	wantRole := components.SourcePrey
	if sp.IsPredator() {
		wantRole = components.SourcePredator
	}

	e.ptScratch = e.foodGrid.QueryNearby(e.ptScratch[:0], pos.X, pos.Y, 4, float32(sp.ConsumeRange))
	for i := range e.ptScratch {
		food := e.foodMap.Get(e.ptScratch[i].Value)
		if food == nil || food.Role != wantRole || food.Energy <= 0 {
			continue
		}

		bite := float32(sp.MaxEnergy) * biteFraction
		if bite > food.Energy {
			bite = food.Energy
		}
		if headroom := float32(sp.MaxEnergy) - boid.Energy; bite > headroom {
			bite = headroom
		}
		if bite <= 0 {
			return
		}

		food.Energy -= bite
		boid.Energy += bite
		boid.EatCooldown = float32(sp.EatCooldown)

		e.events.Publish(telemetry.NewFoodConsumedEvent(e.frame, boid.ID, boid.SpeciesID, bite, pos.X, pos.Y))
		return
	}
}

// updateReproduction drives the mate-seeking state machine. Eligibility
// is recomputed every lifecycle check; losing it mid-courtship drops
// the pairing.
func (e *Engine) updateReproduction(boid *components.Boid, pos *components.Position, sp *config.SpeciesConfig) {
	rep := &sp.Reproduction

	eligible := boid.Age >= float32(rep.MinAge) &&
		boid.ReproCooldown <= 0 &&
		boid.Energy >= float32(rep.EnergyThreshold*sp.MaxEnergy)

	if !eligible {
		e.dropPairing(boid)
		return
	}

	if rep.Mode == config.ModeAsexual {
		e.consummate(boid, nil, pos, sp)
		return
	}

	boid.SeekingMate = true

	if boid.MateID != "" {
		e.advancePairing(boid, pos, sp)
		return
	}

	// Court the nearest eligible peer; pairing is mutual so the partner
	// steers back on its own next behavior pass.
	cand := e.findMateCandidate(boid, pos, sp)
	if cand != nil {
		boid.MateID = cand.ID
		cand.MateID = boid.ID
	}
}

// advancePairing accumulates commitment while the committed mate holds
// in range, and consummates once the commitment threshold is reached.
func (e *Engine) advancePairing(boid *components.Boid, pos *components.Position, sp *config.SpeciesConfig) {
	rep := &sp.Reproduction

	mateEnt, ok := e.byID[boid.MateID]
	if !ok {
		e.dropPairing(boid)
		return
	}
	mate := e.boidMap.Get(mateEnt)
	matePos := e.posMap.Get(mateEnt)
	if mate == nil || matePos == nil || !mate.Alive || !mate.SeekingMate || mate.SpeciesID != boid.SpeciesID {
		e.dropPairing(boid)
		return
	}

	dx, dy := systems.ToroidalDelta(pos.X, pos.Y, matePos.X, matePos.Y,
		e.cfg.Derived.WorldW32, e.cfg.Derived.WorldH32)
	if dx*dx+dy*dy > float32(sp.MateRange*sp.MateRange) {
		// Proximity must be sustained; breaking range restarts the clock.
		boid.MateCommitment = 0
		return
	}

	// Checks run every lifecycle period, so one check advances the
	// commitment clock by a full period of frames.
	boid.MateCommitment += int32(e.cfg.Stagger.LifecyclePeriod)
	if boid.MateCommitment < int32(rep.CommitmentFrames) {
		return
	}

	e.consummate(boid, mate, pos, sp)
}

// consummate queues offspring and settles the parents. For sexual
// reproduction only the partner whose commitment clock fires runs this,
// and it resets both sides, so each pairing yields exactly one brood.
func (e *Engine) consummate(boid, mate *components.Boid, pos *components.Position, sp *config.SpeciesConfig) {
	rep := &sp.Reproduction

	cost := float32(rep.EnergyBonus) * float32(rep.Offspring)
	if mate != nil {
		cost /= 2
	}

	for i := 0; i < rep.Offspring; i++ {
		jx := (e.rng.Float32()*2 - 1) * float32(sp.SeparationRange)
		jy := (e.rng.Float32()*2 - 1) * float32(sp.SeparationRange)
		e.births = append(e.births, birthRequest{
			speciesID: boid.SpeciesID,
			parentID:  boid.ID,
			x:         pos.X + jx,
			y:         pos.Y + jy,
			heading:   e.rng.Float32() * 2 * math.Pi,
			energy:    float32(rep.EnergyBonus),
		})
	}

	boid.Energy = clampf(boid.Energy-cost, 0, float32(sp.MaxEnergy))
	boid.ReproCooldown = float32(rep.Cooldown)
	e.dropPairing(boid)

	if mate != nil {
		mate.Energy = clampf(mate.Energy-cost, 0, float32(sp.MaxEnergy))
		mate.ReproCooldown = float32(rep.Cooldown)
		e.dropPairing(mate)
	}
}

// dropPairing clears mate-seeking state on one side. The former partner
// notices the broken pairing on its own next check.
func (e *Engine) dropPairing(boid *components.Boid) {
	boid.SeekingMate = false
	boid.MateID = ""
	boid.MateCommitment = 0
}

// findMateCandidate returns the nearest visible same-species agent that
// is seeking and unpaired (or already courting this agent).
func (e *Engine) findMateCandidate(boid *components.Boid, pos *components.Position, sp *config.SpeciesConfig) *components.Boid {
	e.nbScratch = e.boidGrid.QueryNearby(e.nbScratch[:0], pos.X, pos.Y, maxNeighbors, float32(sp.VisionRange))
	for i := range e.nbScratch {
		ref := e.nbScratch[i].Value
		if int(ref.Species) != boid.SpeciesID {
			continue
		}
		cand := e.boidMap.Get(ref.Entity)
		if cand == nil || cand.ID == boid.ID || !cand.Alive || !cand.SeekingMate {
			continue
		}
		if cand.MateID != "" && cand.MateID != boid.ID {
			continue
		}
		return cand
	}
	return nil
}
