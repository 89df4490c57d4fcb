package render

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/RegiByte/emergent-boids-sub002/config"
	"github.com/RegiByte/emergent-boids-sub002/engine"
)

// ControlPanel is the raygui side panel for live tuning. Slider edits
// are batched into one SetForceWeightsCommand per frame so the command
// queue never floods while dragging.
type ControlPanel struct {
	theme   Theme
	visible bool

	weights config.ForceConfig
}

// NewControlPanel seeds the panel from the loaded weights.
func NewControlPanel(cfg *config.Config) *ControlPanel {
	return &ControlPanel{
		theme:   DefaultTheme(),
		weights: cfg.Forces,
	}
}

// Toggle flips panel visibility.
func (p *ControlPanel) Toggle() {
	p.visible = !p.visible
}

// Visible reports whether the panel is shown.
func (p *ControlPanel) Visible() bool {
	return p.visible
}

type sliderRow struct {
	label string
	value *float64
	max   float32
}

// Draw renders the panel and enqueues commands for any edits. Returns
// true when the mouse is over the panel, so the view can suppress
// world-click handling underneath it.
func (p *ControlPanel) Draw(screenW int32, enqueue func(engine.Command) bool) bool {
	if !p.visible {
		return false
	}

	const panelW = 260
	x := float32(screenW - panelW - 10)
	y := float32(10)

	rows := []sliderRow{
		{"Separation", &p.weights.Separation, 5},
		{"Alignment", &p.weights.Alignment, 5},
		{"Cohesion", &p.weights.Cohesion, 5},
		{"Fear", &p.weights.Fear, 8},
		{"Hunting", &p.weights.Hunting, 8},
		{"Avoidance", &p.weights.Avoidance, 8},
		{"Food seek", &p.weights.FoodSeek, 5},
		{"Mate seek", &p.weights.MateSeek, 5},
		{"Wander", &p.weights.Wander, 3},
	}

	panelH := float32(len(rows))*38 + 60
	rl.DrawRectangle(int32(x)-10, int32(y)-10, panelW+20, int32(panelH), p.theme.PanelBg)
	rl.DrawRectangleLines(int32(x)-10, int32(y)-10, panelW+20, int32(panelH), p.theme.PanelBorder)

	rl.DrawText("Steering Weights", int32(x), int32(y), 16, rl.White)
	y += 26

	changed := false
	for _, row := range rows {
		rl.DrawText(row.label, int32(x), int32(y), 12, p.theme.LabelColor)
		y += 14
		next := gui.SliderBar(
			rl.Rectangle{X: x, Y: y, Width: panelW - 60, Height: 16},
			"", "",
			float32(*row.value), 0, row.max,
		)
		rl.DrawText(fmt.Sprintf("%.2f", *row.value), int32(x+panelW-52), int32(y), 14, p.theme.ValueColor)
		if next != float32(*row.value) {
			*row.value = float64(next)
			changed = true
		}
		y += 24
	}

	if changed {
		enqueue(engine.SetForceWeightsCommand{
			Separation: p.weights.Separation,
			Alignment:  p.weights.Alignment,
			Cohesion:   p.weights.Cohesion,
			Fear:       p.weights.Fear,
			Hunting:    p.weights.Hunting,
			Avoidance:  p.weights.Avoidance,
			FoodSeek:   p.weights.FoodSeek,
			MateSeek:   p.weights.MateSeek,
			Wander:     p.weights.Wander,
		})
	}

	mouse := rl.GetMousePosition()
	return mouse.X >= x-10 && mouse.X <= x+panelW+10 && mouse.Y >= 0 && mouse.Y <= panelH
}
