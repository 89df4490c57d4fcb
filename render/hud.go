package render

import (
	"fmt"

	"github.com/dustin/go-humanize"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/RegiByte/emergent-boids-sub002/engine"
)

// HUDData holds everything the heads-up display shows per frame.
type HUDData struct {
	Title     string
	Stats     engine.Stats
	Species   []SpeciesCount
	FPS       int32
	Paused    bool
	TimeScale float64
	Dropped   uint64 // events lost to bus overflow
}

// SpeciesCount is one species' live population for the HUD.
type SpeciesCount struct {
	Name     string
	Predator bool
	Count    int
}

// HUD renders the heads-up display.
type HUD struct {
	theme Theme
}

// NewHUD creates a HUD with the default theme.
func NewHUD() *HUD {
	return &HUD{theme: DefaultTheme()}
}

// Draw renders the HUD in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	pop := fmt.Sprintf("Alive: %s | Born: %s | Dead: %s",
		humanize.Comma(int64(data.Stats.Alive)),
		humanize.Comma(int64(data.Stats.Born)),
		humanize.Comma(int64(data.Stats.Dead)))
	rl.DrawText(pop, 10, 35, 16, rl.LightGray)

	sim := fmt.Sprintf("Frame: %s | Sim: %.1fs | Speed: %.1fx | FPS: %d",
		humanize.Comma(int64(data.Stats.Frame)),
		data.Stats.SimTime, data.TimeScale, data.FPS)
	rl.DrawText(sim, 10, 55, 16, rl.LightGray)

	y := int32(75)
	for i, sc := range data.Species {
		color := paletteColor(preyPalette, i)
		if sc.Predator {
			color = paletteColor(predatorPalette, i)
		}
		rl.DrawText(fmt.Sprintf("%s: %d", sc.Name, sc.Count), 10, y, 14, color)
		y += 16
	}

	status := "Running"
	statusColor := rl.Green
	if data.Paused {
		status = "PAUSED"
		statusColor = rl.Yellow
	}
	rl.DrawText(status, 10, y+4, 16, statusColor)

	if data.Dropped > 0 {
		rl.DrawText(fmt.Sprintf("events dropped: %s", humanize.Comma(int64(data.Dropped))),
			10, y+24, 12, rl.Orange)
	}
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32) {
	const legend = "SPACE pause | N step | < > speed | +/- zoom | arrows/RMB pan | HOME reset | TAB panel | 1..9 spawn at cursor"
	rl.DrawText(legend, 10, screenHeight-25, 14, rl.Gray)
}
