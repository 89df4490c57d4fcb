package engine

import (
	"testing"

	"github.com/RegiByte/emergent-boids-sub002/components"
	"github.com/RegiByte/emergent-boids-sub002/config"
	"github.com/RegiByte/emergent-boids-sub002/telemetry"
)

// testConfig returns the embedded defaults with the world emptied out
// and every stagger period collapsed to 1 so tests are deterministic.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	for i := range cfg.Species {
		cfg.Species[i].InitialCount = 0
	}
	cfg.Food.InitialCount = 0
	cfg.Obstacles.InitialCount = 0
	cfg.Population.RespawnEnabled = false
	cfg.Stagger.TrailPeriod = 1
	cfg.Stagger.BehaviorPeriod = 1
	cfg.Stagger.LifecyclePeriod = 1
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	eng, err := New(cfg, Options{Seed: 1})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	return eng
}

func drainByType(eng *Engine, typ telemetry.EventType) []telemetry.Event {
	var out []telemetry.Event
	for _, ev := range eng.Events().Drain(nil) {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestSpeciesCapSkipsSilently(t *testing.T) {
	cfg := testConfig(t)
	cfg.Species[0].Cap = 3

	eng := newTestEngine(t, cfg)
	eng.Events().Drain(nil)

	eng.Apply(AddAgentCommand{Species: cfg.Species[0].Name, X: 100, Y: 100, Count: 10})

	if got := eng.SpeciesCount(0); got != 3 {
		t.Fatalf("expected cap of 3 alive, got %d", got)
	}
	if errs := drainByType(eng, telemetry.EventCommandError); len(errs) != 0 {
		t.Fatalf("at-cap skip is policy, not an error; got %v", errs)
	}
}

func TestGlobalCapSkipsSilently(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.GlobalCap = 2
	cfg.Species[0].Cap = 10

	eng := newTestEngine(t, cfg)
	eng.Apply(AddAgentCommand{Species: cfg.Species[0].Name, X: 100, Y: 100, Count: 5})

	if eng.AliveCount() != 2 {
		t.Fatalf("expected global cap of 2, got %d alive", eng.AliveCount())
	}
	if errs := drainByType(eng, telemetry.EventCommandError); len(errs) != 0 {
		t.Fatalf("at-cap skip published errors: %v", errs)
	}
}

func TestBirthEventsCarryParent(t *testing.T) {
	cfg := testConfig(t)
	eng := newTestEngine(t, cfg)

	eng.Apply(AddAgentCommand{Species: cfg.Species[0].Name, X: 50, Y: 50, Count: 2})

	births := drainByType(eng, telemetry.EventBirth)
	if len(births) != 2 {
		t.Fatalf("expected 2 birth events, got %d", len(births))
	}
	for _, b := range births {
		if b.AgentID == "" {
			t.Error("birth event missing agent id")
		}
		if b.TargetID != "" {
			t.Errorf("command spawn should have no parent, got %q", b.TargetID)
		}
	}
}

func TestRemoveAgentEmitsDeathBeforeRemoval(t *testing.T) {
	cfg := testConfig(t)
	eng := newTestEngine(t, cfg)

	eng.Apply(AddAgentCommand{Species: cfg.Species[0].Name, X: 50, Y: 50, Count: 1})
	births := drainByType(eng, telemetry.EventBirth)
	if len(births) != 1 {
		t.Fatalf("setup: expected 1 birth, got %d", len(births))
	}
	id := births[0].AgentID

	eng.Apply(RemoveAgentCommand{AgentID: id})

	deaths := drainByType(eng, telemetry.EventDeath)
	if len(deaths) != 1 {
		t.Fatalf("expected 1 death event, got %d", len(deaths))
	}
	d := deaths[0]
	if d.AgentID != id || d.Cause != components.DeathOldAge {
		t.Fatalf("expected old_age death of %s, got %+v", id, d)
	}
	if d.X != 50 || d.Y != 50 {
		t.Fatalf("death event should carry final position, got (%v, %v)", d.X, d.Y)
	}

	// The logical record survives until the next tick boundary.
	if _, ok := eng.byID[id]; !ok {
		t.Fatal("record removed before tick boundary")
	}
	if eng.AliveCount() != 0 {
		t.Fatalf("alive count not decremented, got %d", eng.AliveCount())
	}

	eng.Step()
	if _, ok := eng.byID[id]; ok {
		t.Fatal("record not removed at tick boundary")
	}
}

func TestRemoveUnknownAgentReportsError(t *testing.T) {
	eng := newTestEngine(t, testConfig(t))
	eng.Apply(RemoveAgentCommand{AgentID: "nobody"})
	if errs := drainByType(eng, telemetry.EventCommandError); len(errs) != 1 {
		t.Fatalf("expected 1 command error, got %d", len(errs))
	}
}

func TestStarvationDeath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Species[0].MetabolicRate = 1000 // burns through max energy in well under a second

	eng := newTestEngine(t, cfg)
	eng.Apply(AddAgentCommand{Species: cfg.Species[0].Name, X: 50, Y: 50, Count: 1})
	eng.Events().Drain(nil)

	for i := 0; i < 10 && eng.AliveCount() > 0; i++ {
		eng.Step()
	}

	if eng.AliveCount() != 0 {
		t.Fatal("agent survived a lethal metabolic rate")
	}
	deaths := drainByType(eng, telemetry.EventDeath)
	if len(deaths) != 1 || deaths[0].Cause != components.DeathStarvation {
		t.Fatalf("expected one starvation death, got %v", deaths)
	}
}

func TestOldAgeDeath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Species[0].MaxAge = 0.01 // shorter than one tick

	eng := newTestEngine(t, cfg)
	eng.Apply(AddAgentCommand{Species: cfg.Species[0].Name, X: 50, Y: 50, Count: 1})
	eng.Events().Drain(nil)

	eng.Step()

	deaths := drainByType(eng, telemetry.EventDeath)
	if len(deaths) != 1 || deaths[0].Cause != components.DeathOldAge {
		t.Fatalf("expected one old_age death, got %v", deaths)
	}
}

func TestPredationCatch(t *testing.T) {
	cfg := testConfig(t)
	prey, pred := &cfg.Species[0], &cfg.Species[1]
	if prey.IsPredator() || !pred.IsPredator() {
		t.Fatal("default species roles changed; test assumes prey first, predator second")
	}
	prey.MaxHealth = 1       // one hit kills
	prey.MaxSpeed = 0        // stays put
	pred.InitialEnergy = 0.5 // hungry, so it hunts

	eng := newTestEngine(t, cfg)
	eng.Apply(AddAgentCommand{Species: prey.Name, X: 100, Y: 100, Count: 1})
	eng.Apply(AddAgentCommand{Species: pred.Name, X: 100, Y: 100, Count: 1})
	eng.Events().Drain(nil)

	var catches, deaths, food []telemetry.Event
	for i := 0; i < 60 && len(catches) == 0; i++ {
		eng.Step()
		for _, ev := range eng.Events().Drain(nil) {
			switch ev.Type {
			case telemetry.EventCatch:
				catches = append(catches, ev)
			case telemetry.EventDeath:
				deaths = append(deaths, ev)
			case telemetry.EventFoodSpawned:
				food = append(food, ev)
			}
		}
	}

	if len(catches) != 1 {
		t.Fatalf("expected 1 catch, got %d", len(catches))
	}
	if len(deaths) != 1 || deaths[0].Cause != components.DeathPredation {
		t.Fatalf("expected one predation death, got %v", deaths)
	}
	if deaths[0].SpeciesID != 0 {
		t.Fatalf("wrong victim species: %d", deaths[0].SpeciesID)
	}
	if catches[0].TargetID != deaths[0].AgentID {
		t.Fatal("catch target and death victim disagree")
	}
	// A kill drops a carcass only the predator role can eat.
	if len(food) != 1 || food[0].Role != components.SourcePredator {
		t.Fatalf("expected one predator-role carcass, got %v", food)
	}
	if eng.SpeciesCount(0) != 0 || eng.SpeciesCount(1) != 1 {
		t.Fatalf("population wrong after kill: prey=%d pred=%d",
			eng.SpeciesCount(0), eng.SpeciesCount(1))
	}
}

func TestAsexualReproduction(t *testing.T) {
	cfg := testConfig(t)
	sp := &cfg.Species[1]
	if sp.Reproduction.Mode != config.ModeAsexual {
		t.Fatal("default second species is expected to reproduce asexually")
	}
	sp.InitialEnergy = 1
	sp.Reproduction.MinAge = 0
	sp.Reproduction.EnergyThreshold = 0
	sp.Reproduction.Offspring = 1
	sp.Reproduction.Cooldown = 1000

	eng := newTestEngine(t, cfg)
	eng.Apply(AddAgentCommand{Species: sp.Name, X: 100, Y: 100, Count: 1})
	eng.Events().Drain(nil)

	eng.Step()

	births := drainByType(eng, telemetry.EventBirth)
	if len(births) != 1 {
		t.Fatalf("expected 1 offspring birth, got %d", len(births))
	}
	if births[0].TargetID == "" {
		t.Fatal("offspring birth missing parent id")
	}
	if eng.SpeciesCount(1) != 2 {
		t.Fatalf("expected parent plus offspring, got %d", eng.SpeciesCount(1))
	}
}

func TestSexualReproductionOneBroodPerPairing(t *testing.T) {
	cfg := testConfig(t)
	sp := &cfg.Species[0]
	if sp.Reproduction.Mode != config.ModeSexual {
		t.Fatal("default first species is expected to reproduce sexually")
	}
	sp.MaxSpeed = 0 // partners hold position, so range never breaks
	sp.InitialEnergy = 1
	sp.Reproduction.MinAge = 0
	// Parents at full energy clear the threshold; offspring born with
	// the 15-point bonus stay under it, so only one pairing can fire.
	sp.Reproduction.EnergyThreshold = 0.5
	sp.Reproduction.Offspring = 2
	sp.Reproduction.CommitmentFrames = 2
	sp.Reproduction.Cooldown = 1000

	eng := newTestEngine(t, cfg)
	eng.Apply(AddAgentCommand{Species: sp.Name, X: 100, Y: 100, Count: 2})
	eng.Events().Drain(nil)

	for i := 0; i < 10; i++ {
		eng.Step()
	}

	births := drainByType(eng, telemetry.EventBirth)
	if len(births) != 2 {
		t.Fatalf("one pairing must yield exactly one brood of 2, got %d births", len(births))
	}
	if eng.SpeciesCount(0) != 4 {
		t.Fatalf("expected 2 parents + 2 offspring, got %d", eng.SpeciesCount(0))
	}
}

func TestSlotReuseWaitsTwoFrames(t *testing.T) {
	cfg := testConfig(t)
	cfg.Buffer.Capacity = 1

	eng := newTestEngine(t, cfg)
	if !eng.spawnBoid(0, "", 10, 10, 0, 50) {
		t.Fatal("first spawn should succeed")
	}

	ent := eng.bySlot[0]
	eng.markDead(ent, eng.boidMap.Get(ent), eng.posMap.Get(ent), components.DeathOldAge)

	// The freed slot is not reusable until both mirrors have seen the
	// cleared alive flag.
	if eng.spawnBoid(0, "", 10, 10, 0, 50) {
		t.Fatal("slot reused before both mirrors observed the clear")
	}
	eng.frame += 2
	if !eng.spawnBoid(0, "", 10, 10, 0, 50) {
		t.Fatal("slot should be reusable after two frames")
	}
}

func TestCommandValidation(t *testing.T) {
	cfg := testConfig(t)
	eng := newTestEngine(t, cfg)

	cases := []struct {
		name string
		cmd  Command
	}{
		{"unknown species", AddAgentCommand{Species: "dodo", X: 10, Y: 10}},
		{"agent outside world", AddAgentCommand{Species: cfg.Species[0].Name, X: -5, Y: 10}},
		{"obstacle outside world", SpawnObstacleCommand{X: 1e9, Y: 10, Radius: 5}},
		{"non-positive radius", SpawnObstacleCommand{X: 10, Y: 10, Radius: 0}},
		{"food outside world", SpawnFoodCommand{X: 10, Y: -1}},
		{"control command in engine", PauseCommand{}},
	}
	for _, tc := range cases {
		eng.Apply(tc.cmd)
		errs := drainByType(eng, telemetry.EventCommandError)
		if len(errs) != 1 {
			t.Errorf("%s: expected 1 command error, got %d", tc.name, len(errs))
		}
		if eng.AliveCount() != 0 {
			t.Errorf("%s: invalid command mutated the world", tc.name)
		}
	}
}

type bogusCommand struct{}

func (bogusCommand) kind() string { return "bogus" }

func TestUnknownCommandTypeReportsError(t *testing.T) {
	eng := newTestEngine(t, testConfig(t))
	eng.Apply(bogusCommand{})
	errs := drainByType(eng, telemetry.EventCommandError)
	if len(errs) != 1 {
		t.Fatalf("expected 1 command error, got %d", len(errs))
	}
}

func TestSetForceWeights(t *testing.T) {
	cfg := testConfig(t)
	eng := newTestEngine(t, cfg)

	eng.Apply(SetForceWeightsCommand{Separation: 9, Wander: 0.1})
	if cfg.Forces.Separation != 9 || cfg.Forces.Wander != 0.1 {
		t.Fatalf("weights not applied: %+v", cfg.Forces)
	}
}

func TestFoodCommandSpawnsRegeneratingSource(t *testing.T) {
	cfg := testConfig(t)
	eng := newTestEngine(t, cfg)

	eng.Apply(SpawnFoodCommand{X: 10, Y: 10, Energy: 5})
	food := drainByType(eng, telemetry.EventFoodSpawned)
	if len(food) != 1 || food[0].Role != components.SourcePrey {
		t.Fatalf("expected one prey-role source, got %v", food)
	}

	// Prey-role food regenerates toward its ceiling each tick.
	eng.Step()
	eng.Step()
	var energy float32
	fq := eng.foodFilter.Query()
	for fq.Next() {
		_, f := fq.Get()
		energy = f.Energy
	}
	if energy <= 5 {
		t.Fatalf("food did not regenerate: %v", energy)
	}
}

// TestObstacleAvoidanceSteersAgent pins the behavior pass's obstacle
// lookup: with every weight but avoidance zeroed, an agent next to an
// obstacle must come out of the tick pushed directly away from it.
func TestObstacleAvoidanceSteersAgent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Forces = config.ForceConfig{Avoidance: 1}

	eng := newTestEngine(t, cfg)
	eng.Apply(AddAgentCommand{Species: cfg.Species[0].Name, X: 100, Y: 100, Count: 1})
	births := drainByType(eng, telemetry.EventBirth)
	if len(births) != 1 {
		t.Fatalf("setup: expected 1 birth, got %d", len(births))
	}
	eng.Apply(SpawnObstacleCommand{X: 105, Y: 100, Radius: 3})

	eng.Step()

	ent, ok := eng.byID[births[0].AgentID]
	if !ok {
		t.Fatal("agent vanished after one tick")
	}
	acc := eng.accMap.Get(ent)
	if acc == nil {
		t.Fatal("agent has no acceleration component")
	}
	// Obstacle sits in +x; the only active rule pushes toward -x.
	if acc.X >= 0 {
		t.Fatalf("expected steering away from obstacle, got acceleration (%v, %v)", acc.X, acc.Y)
	}
}

// TestLongRunStaysConsistent steps the default world through a thousand
// ticks and cross-checks every population counter at the end.
func TestLongRunStaysConsistent(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	eng, err := New(cfg, Options{Seed: 42})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	const ticks = 1000
	for i := 0; i < ticks; i++ {
		eng.Step()
		eng.Events().Drain(nil) // keep the bus from overflowing
	}

	if eng.Frame() != ticks {
		t.Fatalf("frame counter %d after %d ticks", eng.Frame(), ticks)
	}

	sum := 0
	for sid := range cfg.Species {
		sum += eng.SpeciesCount(sid)
	}
	if sum != eng.AliveCount() {
		t.Fatalf("species counts sum to %d, alive is %d", sum, eng.AliveCount())
	}
	if limit := cfg.Population.GlobalCap; limit > 0 && eng.AliveCount() > limit {
		t.Fatalf("alive %d exceeds global cap %d", eng.AliveCount(), limit)
	}
	if len(eng.byID) != eng.AliveCount() {
		t.Fatalf("id index has %d entries for %d alive agents", len(eng.byID), eng.AliveCount())
	}

	st := eng.Channel().Snapshot().Stats()
	if int(st.Alive) != eng.AliveCount() {
		t.Fatalf("snapshot reports %d alive, engine has %d", st.Alive, eng.AliveCount())
	}
	if st.Frame != ticks-1 {
		t.Fatalf("snapshot frame %d, expected %d", st.Frame, ticks-1)
	}

	// Every alive flag in the snapshot belongs to a live agent; newborns
	// from the final tick publish on their first update, so the flag
	// count can trail the stats by at most that tick's births. Every
	// published position stays inside the half-open world bounds.
	w, h := cfg.Derived.WorldW32, cfg.Derived.WorldH32
	aliveFlags := 0
	snap := eng.Channel().Snapshot()
	for slot := 0; slot < cfg.Buffer.Capacity; slot++ {
		_, _, _, alive := snap.Flags(slot)
		if !alive {
			continue
		}
		aliveFlags++
		x, y := snap.Position(slot)
		if x < 0 || x >= w || y < 0 || y >= h {
			t.Fatalf("slot %d position (%v, %v) outside [0,%v)x[0,%v)", slot, x, y, w, h)
		}
	}
	if aliveFlags > eng.AliveCount() {
		t.Fatalf("snapshot shows %d alive slots for %d agents", aliveFlags, eng.AliveCount())
	}
}
