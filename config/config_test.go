package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("embedded defaults rejected: %v", err)
	}

	if cfg.Physics.DT <= 0 {
		t.Error("dt not positive")
	}
	if len(cfg.Species) < 2 {
		t.Fatalf("expected prey and predator defaults, got %d species", len(cfg.Species))
	}

	var prey, pred bool
	for i := range cfg.Species {
		if cfg.Species[i].IsPredator() {
			pred = true
		} else {
			prey = true
		}
	}
	if !prey || !pred {
		t.Error("defaults must include both roles")
	}
}

func TestDerivedValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Derived.DT32 != float32(cfg.Physics.DT) {
		t.Error("DT32 mismatch")
	}
	if cfg.Derived.WorldW32 != float32(cfg.World.Width) {
		t.Error("WorldW32 mismatch")
	}
	for i, s := range cfg.Species {
		if got, ok := cfg.Derived.SpeciesIndex[s.Name]; !ok || got != i {
			t.Errorf("species index for %q = %d, ok=%v", s.Name, got, ok)
		}
	}
}

func TestStaggerPeriodsClampedToOne(t *testing.T) {
	path := writeConfig(t, `
stagger:
  trail_period: 0
  behavior_period: -3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Stagger.TrailPeriod != 1 || cfg.Stagger.BehaviorPeriod != 1 {
		t.Fatalf("periods not clamped: %+v", cfg.Stagger)
	}
	if cfg.Stagger.LifecyclePeriod < 1 {
		t.Fatalf("default lifecycle period invalid: %d", cfg.Stagger.LifecyclePeriod)
	}
}

func TestUserFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
world:
  width: 1234
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.World.Width != 1234 {
		t.Fatalf("override lost: width %d", cfg.World.Width)
	}
	// Untouched sections keep their defaults.
	if cfg.World.Height <= 0 || len(cfg.Species) == 0 {
		t.Fatal("defaults wiped by partial override")
	}
}

func TestSpeciesListReplacedWholesale(t *testing.T) {
	path := writeConfig(t, `
species:
  - name: krill
    role: prey
    max_energy: 10
    max_health: 10
    max_age: 10
    reproduction:
      mode: asexual
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Species) != 1 || cfg.Species[0].Name != "krill" {
		t.Fatalf("species list not replaced: %d species", len(cfg.Species))
	}
}

func TestValidationRejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"zero dt", "physics:\n  dt: 0\n", "dt"},
		{"bad world", "world:\n  width: -5\n", "world"},
		{"zero buffer", "buffer:\n  capacity: 0\n", "capacity"},
		{"duplicate species", `
species:
  - {name: dup, role: prey, max_energy: 1, max_health: 1, max_age: 1, reproduction: {mode: asexual}}
  - {name: dup, role: prey, max_energy: 1, max_health: 1, max_age: 1, reproduction: {mode: asexual}}
`, "duplicate"},
		{"unknown role", `
species:
  - {name: x, role: omnivore, max_energy: 1, max_health: 1, max_age: 1, reproduction: {mode: asexual}}
`, "role"},
		{"unknown mode", `
species:
  - {name: x, role: prey, max_energy: 1, max_health: 1, max_age: 1, reproduction: {mode: budding}}
`, "reproduction mode"},
		{"unnamed species", `
species:
  - {role: prey, max_energy: 1, max_health: 1, max_age: 1, reproduction: {mode: asexual}}
`, "name"},
		{"non-positive limits", `
species:
  - {name: x, role: prey, max_energy: 0, max_health: 1, max_age: 1, reproduction: {mode: asexual}}
`, "max_energy"},
	}

	for _, tc := range cases {
		path := writeConfig(t, tc.yaml)
		_, err := Load(path)
		if err == nil {
			t.Errorf("%s: config accepted", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestMissingFileIsAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("written config rejected: %v", err)
	}
	if loaded.World.Width != cfg.World.Width || len(loaded.Species) != len(cfg.Species) {
		t.Fatal("roundtrip changed the config")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
