package telemetry

import "github.com/RegiByte/emergent-boids-sub002/components"

// Collector accumulates events within time windows and produces
// WindowStats. It classifies species through a role predicate supplied
// at construction so it stays independent of the config package.
type Collector struct {
	windowDurationTicks uint32
	dt                  float32
	isPredator          func(speciesID int) bool

	windowStartFrame uint32

	preyBirths int
	predBirths int
	preyDeaths int
	predDeaths int

	deathsOldAge     int
	deathsStarvation int
	deathsPredation  int

	catches  int
	feedings int
}

// NewCollector creates a stats collector.
// windowDurationSec: window length in simulation seconds.
// dt: seconds per tick.
func NewCollector(windowDurationSec float64, dt float32, isPredator func(speciesID int) bool) *Collector {
	ticks := uint32(windowDurationSec / float64(dt))
	if ticks < 1 {
		ticks = 1
	}
	return &Collector{
		windowDurationTicks: ticks,
		dt:                  dt,
		isPredator:          isPredator,
	}
}

// Record folds one event into the current window. Spawn and command
// events pass through uncounted.
func (c *Collector) Record(ev Event) {
	switch ev.Type {
	case EventBirth:
		if c.isPredator(ev.SpeciesID) {
			c.predBirths++
		} else {
			c.preyBirths++
		}
	case EventDeath:
		if c.isPredator(ev.SpeciesID) {
			c.predDeaths++
		} else {
			c.preyDeaths++
		}
		switch ev.Cause {
		case components.DeathOldAge:
			c.deathsOldAge++
		case components.DeathStarvation:
			c.deathsStarvation++
		case components.DeathPredation:
			c.deathsPredation++
		}
	case EventCatch:
		c.catches++
	case EventFoodConsumed:
		c.feedings++
	}
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(currentFrame uint32) bool {
	return currentFrame-c.windowStartFrame >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next
// window. Population counts and energy samples come from the caller,
// which owns the live world state.
func (c *Collector) Flush(
	currentFrame uint32,
	preyCount, predCount int,
	preyEnergies, predEnergies []float64,
	dropped uint64,
) WindowStats {
	preyMean, preyStd, preyP50 := EnergySummary(preyEnergies)
	predMean, predStd, predP50 := EnergySummary(predEnergies)

	ws := WindowStats{
		Frame:   currentFrame,
		SimTime: float64(currentFrame) * float64(c.dt),

		PreyCount: preyCount,
		PredCount: predCount,

		PreyBirths: c.preyBirths,
		PredBirths: c.predBirths,
		PreyDeaths: c.preyDeaths,
		PredDeaths: c.predDeaths,

		DeathsOldAge:     c.deathsOldAge,
		DeathsStarvation: c.deathsStarvation,
		DeathsPredation:  c.deathsPredation,

		Catches:  c.catches,
		Feedings: c.feedings,

		PreyEnergyMean: preyMean,
		PreyEnergyStd:  preyStd,
		PreyEnergyP50:  preyP50,
		PredEnergyMean: predMean,
		PredEnergyStd:  predStd,
		PredEnergyP50:  predP50,

		EventsDropped: dropped,
	}

	c.windowStartFrame = currentFrame
	c.preyBirths, c.predBirths = 0, 0
	c.preyDeaths, c.predDeaths = 0, 0
	c.deathsOldAge, c.deathsStarvation, c.deathsPredation = 0, 0, 0
	c.catches, c.feedings = 0, 0

	return ws
}
