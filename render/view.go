package render

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/RegiByte/emergent-boids-sub002/camera"
	"github.com/RegiByte/emergent-boids-sub002/components"
	"github.com/RegiByte/emergent-boids-sub002/config"
	"github.com/RegiByte/emergent-boids-sub002/engine"
	"github.com/RegiByte/emergent-boids-sub002/telemetry"
)

// View owns the window-side state: camera, HUD, control panel and the
// event-reconstructed feature layer. One Frame call per render frame.
type View struct {
	cfg      *config.Config
	cam      *camera.Camera
	theme    Theme
	hud      *HUD
	panel    *ControlPanel
	features *FeatureLayer

	// Mirrors of loop state, updated when we send the command.
	paused    bool
	timeScale float64

	speciesCounts []int

	// Per-slot position history sampled from snapshots. The shared
	// buffer carries no trails; the consumer keeps its own.
	trails []trailRing
}

const trailPoints = 16

type trailRing struct {
	xs, ys [trailPoints]float32
	head   uint8
	count  uint8
}

func (t *trailRing) push(x, y float32) {
	t.xs[t.head] = x
	t.ys[t.head] = y
	t.head = (t.head + 1) % trailPoints
	if t.count < trailPoints {
		t.count++
	}
}

// NewView creates the view. The raylib window must already exist.
func NewView(cfg *config.Config) *View {
	return &View{
		cfg: cfg,
		cam: camera.New(
			float32(cfg.Screen.Width), float32(cfg.Screen.Height),
			cfg.Derived.WorldW32, cfg.Derived.WorldH32),
		theme:         DefaultTheme(),
		hud:           NewHUD(),
		panel:         NewControlPanel(cfg),
		features:      NewFeatureLayer(),
		timeScale:     1,
		speciesCounts: make([]int, len(cfg.Species)),
		trails:        make([]trailRing, cfg.Buffer.Capacity),
	}
}

// Frame processes input, folds in this frame's events, and draws one
// full frame from the snapshot.
func (v *View) Frame(snap engine.Snapshot, events []telemetry.Event, fps int32, dropped uint64, enqueue func(engine.Command) bool) {
	for _, ev := range events {
		v.features.Observe(ev)
	}
	stats := snap.Stats()
	v.features.Advance(stats.Frame)

	rl.BeginDrawing()
	rl.ClearBackground(v.theme.Background)

	v.drawFeatures()
	v.drawAgents(snap)

	v.hud.Draw(HUDData{
		Title:     "Emergent Boids",
		Stats:     stats,
		Species:   v.speciesHUD(),
		FPS:       fps,
		Paused:    v.paused,
		TimeScale: v.timeScale,
		Dropped:   dropped,
	})
	v.hud.DrawControls(int32(v.cfg.Screen.Height))

	overPanel := v.panel.Draw(int32(v.cfg.Screen.Width), enqueue)
	v.handleInput(overPanel, enqueue)

	rl.EndDrawing()
}

func (v *View) handleInput(overPanel bool, enqueue func(engine.Command) bool) {
	// Camera: pan speed scales inversely with zoom for natural feel
	panSpeed := float32(8) / v.cam.Zoom
	if rl.IsKeyDown(rl.KeyRight) {
		v.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.cam.Pan(0, -panSpeed)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.cam.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
	}

	// Loop control
	if rl.IsKeyPressed(rl.KeySpace) {
		if v.paused {
			if enqueue(engine.ResumeCommand{}) {
				v.paused = false
			}
		} else if enqueue(engine.PauseCommand{}) {
			v.paused = true
		}
	}
	if rl.IsKeyPressed(rl.KeyN) && v.paused {
		enqueue(engine.StepCommand{Ticks: 1})
	}
	if rl.IsKeyPressed(rl.KeyComma) {
		v.setTimeScale(v.timeScale/2, enqueue)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		v.setTimeScale(v.timeScale*2, enqueue)
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.panel.Toggle()
	}

	// Spawn species N at the cursor
	if !overPanel {
		for i := 0; i < len(v.cfg.Species) && i < 9; i++ {
			if rl.IsKeyPressed(int32(rl.KeyOne) + int32(i)) {
				m := rl.GetMousePosition()
				wx, wy := v.cam.ScreenToWorld(m.X, m.Y)
				enqueue(engine.AddAgentCommand{
					Species: v.cfg.Species[i].Name,
					X:       float64(wx), Y: float64(wy),
				})
			}
		}
	}
}

func (v *View) setTimeScale(scale float64, enqueue func(engine.Command) bool) {
	if scale < 0.125 {
		scale = 0.125
	}
	if scale > 16 {
		scale = 16
	}
	if enqueue(engine.SetTimeScaleCommand{Scale: scale}) {
		v.timeScale = scale
	}
}

func (v *View) drawFeatures() {
	for _, o := range v.features.obstacles {
		if !v.cam.IsVisible(o.X, o.Y, o.Radius) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(o.X, o.Y)
		r := o.Radius * v.cam.Zoom
		rl.DrawCircle(int32(sx), int32(sy), r, v.theme.ObstacleColor)
		rl.DrawCircleLines(int32(sx), int32(sy), r, v.theme.PanelBorder)
	}

	for _, f := range v.features.food {
		if !v.cam.IsVisible(f.X, f.Y, 4) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(f.X, f.Y)
		color := v.theme.FoodColor
		if f.Carcass {
			color = v.theme.CarcassColor
		}
		rl.DrawCircle(int32(sx), int32(sy), 3*v.cam.Zoom, color)
	}
}

func (v *View) drawAgents(snap engine.Snapshot) {
	for i := range v.speciesCounts {
		v.speciesCounts[i] = 0
	}

	sampleTrail := snap.Stats().Frame%uint32(v.cfg.Stagger.TrailPeriod) == 0

	for slot := 0; slot < v.cfg.Buffer.Capacity; slot++ {
		stance, species, seeking, alive := snap.Flags(slot)
		if !alive {
			// Reset so a reused slot never inherits the old trail.
			v.trails[slot].count = 0
			continue
		}
		if species < len(v.speciesCounts) {
			v.speciesCounts[species]++
		}

		x, y := snap.Position(slot)
		if sampleTrail {
			v.trails[slot].push(x, y)
		}
		if !v.cam.IsVisible(x, y, 12) {
			continue
		}
		vx, vy := snap.Velocity(slot)

		sp := v.speciesFor(species)
		v.drawTrail(slot)
		v.drawBoid(slot, snap, x, y, vx, vy, stance, seeking, species, sp)
	}
}

// drawTrail draws the slot's recent path as fading segments. Segments
// that jump more than half the world are wrap artifacts and skipped.
func (v *View) drawTrail(slot int) {
	t := &v.trails[slot]
	if t.count < 2 {
		return
	}

	halfW := v.cfg.Derived.WorldW32 / 2
	halfH := v.cfg.Derived.WorldH32 / 2

	start := int(t.head) - int(t.count)
	if start < 0 {
		start += trailPoints
	}
	for i := 1; i < int(t.count); i++ {
		a := (start + i - 1) % trailPoints
		b := (start + i) % trailPoints

		dx := t.xs[b] - t.xs[a]
		dy := t.ys[b] - t.ys[a]
		if dx > halfW || dx < -halfW || dy > halfH || dy < -halfH {
			continue
		}

		x1, y1 := v.cam.WorldToScreen(t.xs[a], t.ys[a])
		x2, y2 := v.cam.WorldToScreen(t.xs[b], t.ys[b])
		c := v.theme.TrailColor
		c.A = uint8(40 + 180*i/int(t.count))
		rl.DrawLineV(rl.Vector2{X: x1, Y: y1}, rl.Vector2{X: x2, Y: y2}, c)
	}
}

func (v *View) speciesFor(id int) *config.SpeciesConfig {
	if id < 0 || id >= len(v.cfg.Species) {
		return nil
	}
	return &v.cfg.Species[id]
}

func (v *View) drawBoid(slot int, snap engine.Snapshot, x, y, vx, vy float32, stance components.Stance, seeking bool, species int, sp *config.SpeciesConfig) {
	sx, sy := v.cam.WorldToScreen(x, y)

	size := float32(5)
	color := paletteColor(preyPalette, species)
	if sp != nil && sp.IsPredator() {
		size = 8
		color = paletteColor(predatorPalette, species)
	}
	size *= v.cam.Zoom

	color = stanceTint(color, stance)

	angle := float32(math.Atan2(float64(vy), float64(vx)))
	v.drawHeadingTriangle(sx, sy, angle, size, color)

	if seeking {
		rl.DrawCircle(int32(sx), int32(sy)-int32(size)-3, 2, rl.Pink)
	}

	// Energy bar only when zoomed in enough to read it.
	if v.cam.Zoom >= 1.5 && sp != nil {
		ratio := snap.Energy(slot) / float32(sp.MaxEnergy)
		v.drawEnergyBar(sx, sy+size+3, size*2, ratio)
	}
}

// drawHeadingTriangle draws an isoceles triangle pointing along angle.
func (v *View) drawHeadingTriangle(sx, sy, angle, size float32, color rl.Color) {
	cos := float32(math.Cos(float64(angle)))
	sin := float32(math.Sin(float64(angle)))

	// Nose, left tail, right tail in local space, rotated to heading.
	nose := rl.Vector2{X: sx + cos*size, Y: sy + sin*size}
	left := rl.Vector2{X: sx - cos*size*0.6 - sin*size*0.5, Y: sy - sin*size*0.6 + cos*size*0.5}
	right := rl.Vector2{X: sx - cos*size*0.6 + sin*size*0.5, Y: sy - sin*size*0.6 - cos*size*0.5}

	rl.DrawTriangle(nose, left, right, color)
}

func (v *View) drawEnergyBar(sx, sy, width, ratio float32) {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	fill := v.theme.BarFillHigh
	if ratio < 0.3 {
		fill = v.theme.BarFillLow
	} else if ratio < 0.6 {
		fill = v.theme.BarFillMedium
	}
	x := int32(sx - width/2)
	rl.DrawRectangle(x, int32(sy), int32(width), 3, v.theme.BarBg)
	rl.DrawRectangle(x, int32(sy), int32(width*ratio), 3, fill)
}

func stanceTint(base rl.Color, stance components.Stance) rl.Color {
	switch stance {
	case components.StanceFleeing:
		return lighten(base, 60)
	case components.StanceHunting:
		return lighten(base, 40)
	case components.StanceEating:
		base.G = sat(int(base.G) + 50)
		return base
	case components.StanceMating:
		base.R = sat(int(base.R) + 40)
		base.B = sat(int(base.B) + 40)
		return base
	}
	return base
}

func lighten(c rl.Color, by int) rl.Color {
	c.R = sat(int(c.R) + by)
	c.G = sat(int(c.G) + by)
	c.B = sat(int(c.B) + by)
	return c
}

func sat(v int) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func (v *View) speciesHUD() []SpeciesCount {
	out := make([]SpeciesCount, len(v.cfg.Species))
	for i := range v.cfg.Species {
		out[i] = SpeciesCount{
			Name:     v.cfg.Species[i].Name,
			Predator: v.cfg.Species[i].IsPredator(),
			Count:    v.speciesCounts[i],
		}
	}
	return out
}
