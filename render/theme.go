// Package render draws the simulation from shared state snapshots.
// The draw path never reaches into the engine: agents come from the
// double-buffered state channel and world features from the lifecycle
// event stream, so it works the same whether the producer runs on its
// own goroutine or synchronously.
package render

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme holds UI styling constants.
type Theme struct {
	Background  rl.Color
	PanelBg     rl.Color
	PanelBorder rl.Color
	LabelColor  rl.Color
	ValueColor  rl.Color

	BarBg         rl.Color
	BarFillLow    rl.Color
	BarFillMedium rl.Color
	BarFillHigh   rl.Color

	FoodColor     rl.Color
	CarcassColor  rl.Color
	ObstacleColor rl.Color
	TrailColor    rl.Color

	Padding        int32
	LineHeight     int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default dark theme.
func DefaultTheme() Theme {
	return Theme{
		Background:  rl.Color{R: 12, G: 16, B: 22, A: 255},
		PanelBg:     rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder: rl.Color{R: 60, G: 70, B: 80, A: 255},
		LabelColor:  rl.LightGray,
		ValueColor:  rl.White,

		BarBg:         rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFillLow:    rl.Color{R: 200, G: 100, B: 100, A: 255},
		BarFillMedium: rl.Color{R: 200, G: 180, B: 100, A: 255},
		BarFillHigh:   rl.Color{R: 100, G: 200, B: 100, A: 255},

		FoodColor:     rl.Color{R: 90, G: 180, B: 90, A: 255},
		CarcassColor:  rl.Color{R: 170, G: 90, B: 60, A: 255},
		ObstacleColor: rl.Color{R: 90, G: 100, B: 115, A: 255},
		TrailColor:    rl.Color{R: 130, G: 150, B: 180, A: 120},

		Padding:        10,
		LineHeight:     16,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}

// speciesPalette colors agents by species index; prey cool, predators
// warm. Wraps for configs with more species than entries.
var preyPalette = []rl.Color{
	{R: 120, G: 180, B: 255, A: 255},
	{R: 140, G: 230, B: 200, A: 255},
	{R: 190, G: 170, B: 255, A: 255},
}

var predatorPalette = []rl.Color{
	{R: 255, G: 110, B: 90, A: 255},
	{R: 255, G: 170, B: 70, A: 255},
	{R: 230, G: 90, B: 150, A: 255},
}

func paletteColor(palette []rl.Color, i int) rl.Color {
	return palette[i%len(palette)]
}
