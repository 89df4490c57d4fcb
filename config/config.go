// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Role identifies which side of the food chain a species is on.
const (
	RolePrey     = "prey"
	RolePredator = "predator"
)

// Reproduction modes.
const (
	ModeSexual  = "sexual"
	ModeAsexual = "asexual"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Stagger    StaggerConfig    `yaml:"stagger"`
	Population PopulationConfig `yaml:"population"`
	Buffer     BufferConfig     `yaml:"buffer"`
	Food       FoodConfig       `yaml:"food"`
	Obstacles  ObstacleConfig   `yaml:"obstacles"`
	Markers    MarkerConfig     `yaml:"markers"`
	Forces     ForceConfig      `yaml:"forces"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Species    []SpeciesConfig  `yaml:"species"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the toroidal world dimensions in world units.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PhysicsConfig holds simulation timing and spatial grid parameters.
type PhysicsConfig struct {
	DT              float64 `yaml:"dt"`                // Seconds per simulation tick
	GridCellSize    float64 `yaml:"grid_cell_size"`    // Spatial index cell size in world units
	MaxCatchupTicks int     `yaml:"max_catchup_ticks"` // Upper bound on ticks run per wall-clock frame
}

// StaggerConfig holds the modulo periods that spread per-agent work across ticks.
type StaggerConfig struct {
	TrailPeriod     int `yaml:"trail_period"`     // Trail sampling cadence
	BehaviorPeriod  int `yaml:"behavior_period"`  // Steering re-evaluation cadence
	LifecyclePeriod int `yaml:"lifecycle_period"` // Aging/energy/reproduction cadence
}

// PopulationConfig holds world-level population policy.
type PopulationConfig struct {
	GlobalCap        int  `yaml:"global_cap"`        // Hard ceiling across all species
	RespawnEnabled   bool `yaml:"respawn_enabled"`   // Reseed a species that collapses
	RespawnThreshold int  `yaml:"respawn_threshold"` // Reseed when species count drops below this
	RespawnCount     int  `yaml:"respawn_count"`     // How many agents to reseed
}

// BufferConfig holds shared state buffer sizing.
type BufferConfig struct {
	Capacity    int `yaml:"capacity"`     // Maximum concurrent agent slots
	TrailLength int `yaml:"trail_length"` // Positions retained per agent trail
}

// FoodConfig holds food source parameters.
type FoodConfig struct {
	InitialCount   int     `yaml:"initial_count"`
	Energy         float64 `yaml:"energy"`          // Starting energy per source
	MaxEnergy      float64 `yaml:"max_energy"`      // Regeneration ceiling
	RegenRate      float64 `yaml:"regen_rate"`      // Energy regained per second
	CarcassEnergy  float64 `yaml:"carcass_energy"`  // Energy of predator-origin food dropped on kills
	NoiseScale     float64 `yaml:"noise_scale"`     // Simplex noise frequency for placement
	NoiseThreshold float64 `yaml:"noise_threshold"` // Minimum noise value for a fertile spot
}

// ObstacleConfig holds static obstacle parameters.
type ObstacleConfig struct {
	InitialCount int     `yaml:"initial_count"`
	MinRadius    float64 `yaml:"min_radius"`
	MaxRadius    float64 `yaml:"max_radius"`
}

// MarkerConfig holds death marker parameters.
type MarkerConfig struct {
	LifetimeTicks int     `yaml:"lifetime_ticks"` // Ticks until a marker fully decays
	Strength      float64 `yaml:"strength"`       // Initial repulsion strength
}

// ForceConfig holds steering rule weights.
type ForceConfig struct {
	Separation float64 `yaml:"separation"`
	Alignment  float64 `yaml:"alignment"`
	Cohesion   float64 `yaml:"cohesion"`
	Fear       float64 `yaml:"fear"`
	Hunting    float64 `yaml:"hunting"`
	Avoidance  float64 `yaml:"avoidance"`
	FoodSeek   float64 `yaml:"food_seek"`
	MateSeek   float64 `yaml:"mate_seek"`
	Wander     float64 `yaml:"wander"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow      float64 `yaml:"stats_window"`       // Window size in simulation seconds
	EventBuffer      int     `yaml:"event_buffer"`       // Bounded event bus capacity
	LogIntervalTicks int     `yaml:"log_interval_ticks"` // Ticks between status log lines
}

// ReproductionConfig holds per-species reproduction policy.
type ReproductionConfig struct {
	Mode             string  `yaml:"mode"`              // sexual | asexual
	Offspring        int     `yaml:"offspring"`         // Children per successful reproduction
	EnergyThreshold  float64 `yaml:"energy_threshold"`  // Fraction of max energy required to seek a mate
	EnergyBonus      float64 `yaml:"energy_bonus"`      // Energy granted to each offspring at birth
	Cooldown         float64 `yaml:"cooldown"`          // Seconds between reproductions
	CommitmentFrames int     `yaml:"commitment_frames"` // Ticks of sustained proximity before consummation
	MinAge           float64 `yaml:"min_age"`           // Seconds of age before reproduction is possible
}

// SpeciesConfig defines the phenotype and policy for one species.
type SpeciesConfig struct {
	Name          string  `yaml:"name"`
	Role          string  `yaml:"role"` // prey | predator
	InitialCount  int     `yaml:"initial_count"`
	InitialEnergy float64 `yaml:"initial_energy"` // Fraction of max energy at spawn
	Cap           int     `yaml:"cap"`            // Per-species population ceiling

	MaxSpeed  float64 `yaml:"max_speed"`
	MaxForce  float64 `yaml:"max_force"`
	MaxEnergy float64 `yaml:"max_energy"`
	MaxHealth float64 `yaml:"max_health"`
	MaxAge    float64 `yaml:"max_age"` // Seconds of simulated lifetime

	MetabolicRate float64 `yaml:"metabolic_rate"` // Energy drain per second
	HealthRegen   float64 `yaml:"health_regen"`   // Health regained per second

	VisionRange     float64 `yaml:"vision_range"`
	SeparationRange float64 `yaml:"separation_range"`
	MateRange       float64 `yaml:"mate_range"`
	ConsumeRange    float64 `yaml:"consume_range"`
	AttackRange     float64 `yaml:"attack_range"`

	AttackDamage   float64 `yaml:"attack_damage"`
	AttackCooldown float64 `yaml:"attack_cooldown"` // Seconds between attacks
	EatCooldown    float64 `yaml:"eat_cooldown"`    // Seconds between feeding events

	Reproduction ReproductionConfig `yaml:"reproduction"`
}

// IsPredator reports whether the species hunts other agents.
func (s *SpeciesConfig) IsPredator() bool {
	return s.Role == RolePredator
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32         float32        // Physics.DT as float32
	WorldW32     float32        // World width as float32
	WorldH32     float32        // World height as float32
	TicksPerSec  float64        // 1 / Physics.DT
	SpeciesIndex map[string]int // name -> index into Species
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// A user species list replaces the default list wholesale;
		// merging per-species fields would silently mix phenotypes.
		probe := struct {
			Species []SpeciesConfig `yaml:"species"`
		}{}
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if len(probe.Species) > 0 {
			cfg.Species = nil
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()

	return cfg, nil
}

// validate rejects configs the engine cannot run with.
func (c *Config) validate() error {
	if c.Physics.DT <= 0 {
		return fmt.Errorf("config: physics.dt must be positive, got %v", c.Physics.DT)
	}
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("config: world dimensions must be positive, got %dx%d", c.World.Width, c.World.Height)
	}
	if c.Buffer.Capacity <= 0 {
		return fmt.Errorf("config: buffer.capacity must be positive, got %d", c.Buffer.Capacity)
	}
	if len(c.Species) == 0 {
		return fmt.Errorf("config: at least one species is required")
	}
	seen := make(map[string]bool, len(c.Species))
	for i := range c.Species {
		s := &c.Species[i]
		if s.Name == "" {
			return fmt.Errorf("config: species %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate species name %q", s.Name)
		}
		seen[s.Name] = true
		if s.Role != RolePrey && s.Role != RolePredator {
			return fmt.Errorf("config: species %q has unknown role %q", s.Name, s.Role)
		}
		if s.MaxEnergy <= 0 || s.MaxHealth <= 0 || s.MaxAge <= 0 {
			return fmt.Errorf("config: species %q needs positive max_energy, max_health and max_age", s.Name)
		}
		if m := s.Reproduction.Mode; m != ModeSexual && m != ModeAsexual {
			return fmt.Errorf("config: species %q has unknown reproduction mode %q", s.Name, m)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
	c.Derived.TicksPerSec = 1.0 / c.Physics.DT

	c.Derived.SpeciesIndex = make(map[string]int, len(c.Species))
	for i, s := range c.Species {
		c.Derived.SpeciesIndex[s.Name] = i
	}

	// Stagger periods must be at least 1 so modulo arithmetic is defined.
	if c.Stagger.TrailPeriod < 1 {
		c.Stagger.TrailPeriod = 1
	}
	if c.Stagger.BehaviorPeriod < 1 {
		c.Stagger.BehaviorPeriod = 1
	}
	if c.Stagger.LifecyclePeriod < 1 {
		c.Stagger.LifecyclePeriod = 1
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
