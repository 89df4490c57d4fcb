// Package systems provides the spatial index and steering rules for the
// simulation engine.
package systems

import "math"

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// Wrap maps x onto [0, w) on a toroidal axis.
func Wrap(x, w float32) float32 {
	if x >= 0 && x < w {
		return x
	}
	x = float32(math.Mod(float64(x), float64(w)))
	if x < 0 {
		x += w
	}
	// Rounding on the float32 conversion or the negative-side add can
	// land exactly on w; the contract is half-open.
	if x >= w {
		x = 0
	}
	return x
}

// ToroidalDelta returns the shortest path delta from (x1,y1) to (x2,y2).
func ToroidalDelta(x1, y1, x2, y2, w, h float32) (dx, dy float32) {
	dx = x2 - x1
	dy = y2 - y1

	if dx > w/2 {
		dx -= w
	} else if dx < -w/2 {
		dx += w
	}
	if dy > h/2 {
		dy -= h
	} else if dy < -h/2 {
		dy += h
	}

	return dx, dy
}

// ToroidalDistSq returns the squared toroidal distance between two points.
func ToroidalDistSq(x1, y1, x2, y2, w, h float32) float32 {
	dx, dy := ToroidalDelta(x1, y1, x2, y2, w, h)
	return dx*dx + dy*dy
}

// Length returns the magnitude of (x, y).
func Length(x, y float32) float32 {
	return float32(math.Sqrt(float64(x*x + y*y)))
}

// Normalize scales (x, y) to unit length. The zero vector stays zero.
func Normalize(x, y float32) (float32, float32) {
	l := Length(x, y)
	if l == 0 {
		return 0, 0
	}
	return x / l, y / l
}

// Limit clamps the magnitude of (x, y) to max.
func Limit(x, y, max float32) (float32, float32) {
	l := Length(x, y)
	if l <= max || l == 0 {
		return x, y
	}
	s := max / l
	return x * s, y * s
}

// SetMagnitude scales (x, y) to the given length.
func SetMagnitude(x, y, mag float32) (float32, float32) {
	nx, ny := Normalize(x, y)
	return nx * mag, ny * mag
}
