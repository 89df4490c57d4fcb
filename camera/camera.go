// Package camera provides the pan/zoom viewport over the toroidal world.
package camera

import "github.com/RegiByte/emergent-boids-sub002/systems"

// Camera maps world coordinates to screen coordinates. Because the
// world wraps, every conversion goes through the shortest toroidal
// delta from the camera center, so agents crossing an edge stay on
// screen instead of teleporting.
type Camera struct {
	// Center in world coordinates
	X, Y float32

	// Zoom level (1.0 = one world unit per pixel)
	Zoom float32

	ViewportW, ViewportH float32
	WorldW, WorldH       float32

	MinZoom, MaxZoom float32
}

// New creates a camera centered on the world. MinZoom is chosen so the
// viewport can never show more than one copy of the world.
func New(viewportW, viewportH, worldW, worldH float32) *Camera {
	c := &Camera{
		X:         worldW / 2,
		Y:         worldH / 2,
		Zoom:      1,
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
		MaxZoom:   4,
	}
	c.fitMinZoom()
	return c
}

func (c *Camera) fitMinZoom() {
	c.MinZoom = c.ViewportW / c.WorldW
	if z := c.ViewportH / c.WorldH; z > c.MinZoom {
		c.MinZoom = z
	}
	if c.Zoom < c.MinZoom {
		c.Zoom = c.MinZoom
	}
}

// WorldToScreen converts world coordinates to screen coordinates via
// the shortest toroidal path to the camera center.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	dx, dy := systems.ToroidalDelta(c.X, c.Y, wx, wy, c.WorldW, c.WorldH)
	return c.ViewportW/2 + dx*c.Zoom, c.ViewportH/2 + dy*c.Zoom
}

// ScreenToWorld converts screen coordinates to wrapped world
// coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	dx := (sx - c.ViewportW/2) / c.Zoom
	dy := (sy - c.ViewportH/2) / c.Zoom
	return systems.Wrap(c.X+dx, c.WorldW), systems.Wrap(c.Y+dy, c.WorldH)
}

// IsVisible reports whether a circle at (wx, wy) could intersect the
// viewport. Conservative, used for draw culling.
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	dx, dy := systems.ToroidalDelta(c.X, c.Y, wx, wy, c.WorldW, c.WorldH)
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(dx) <= halfW && absf(dy) <= halfH
}

// Pan moves the camera by a screen-pixel delta, wrapping at the world
// edges.
func (c *Camera) Pan(dx, dy float32) {
	c.X = systems.Wrap(c.X+dx/c.Zoom, c.WorldW)
	c.Y = systems.Wrap(c.Y+dy/c.Zoom, c.WorldH)
}

// SetZoom sets the zoom level, clamped to the allowed range.
func (c *Camera) SetZoom(zoom float32) {
	if zoom < c.MinZoom {
		zoom = c.MinZoom
	}
	if zoom > c.MaxZoom {
		zoom = c.MaxZoom
	}
	c.Zoom = zoom
}

// ZoomBy multiplies the current zoom by factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Resize updates the viewport dimensions and re-fits the zoom bounds.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.fitMinZoom()
}

// Reset recenters the camera at default zoom.
func (c *Camera) Reset() {
	c.X = c.WorldW / 2
	c.Y = c.WorldH / 2
	c.SetZoom(1)
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
