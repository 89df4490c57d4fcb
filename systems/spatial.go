package systems

import "sort"

// Neighbor holds a nearby item with precomputed spatial data.
// This avoids recomputing toroidal delta and distance in the rules.
type Neighbor[T any] struct {
	Value  T
	DX, DY float32 // Toroidal delta from query origin
	DistSq float32 // Squared distance (avoid sqrt in hot path)
	order  int32   // Insertion sequence, breaks distance ties
}

type gridItem[T any] struct {
	value T
	x, y  float32
}

// SpatialGrid provides bounded nearest-neighbor lookups over a toroidal
// world using a cell-based grid. The grid is rebuilt from scratch every
// tick; with a cell size close to the common query radius the expected
// occupancy per cell stays small regardless of total item count.
type SpatialGrid[T any] struct {
	cellSize float32
	cols     int
	rows     int
	width    float32
	height   float32
	cells    [][]int32 // per-cell indices into items
	items    []gridItem[T]
	scratch  []Neighbor[T]
}

// NewSpatialGrid creates a spatial grid covering the given world size.
// Cells tile the world exactly; when a dimension is not a multiple of
// cellSize the last row/column is narrower than the rest.
func NewSpatialGrid[T any](width, height, cellSize float32) *SpatialGrid[T] {
	cols := int(width / cellSize)
	if float32(cols)*cellSize < width {
		cols++
	}
	if cols < 1 {
		cols = 1
	}
	rows := int(height / cellSize)
	if float32(rows)*cellSize < height {
		rows++
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]int32, cols*rows)
	for i := range cells {
		cells[i] = make([]int32, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid[T]{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
		items:    make([]gridItem[T], 0, 512),
	}
}

// Clear removes all items from the grid.
func (g *SpatialGrid[T]) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.items = g.items[:0]
}

// Len returns the number of items currently inserted.
func (g *SpatialGrid[T]) Len() int {
	return len(g.items)
}

// Insert adds an item to the grid at the given position. The position
// is wrapped onto the torus before bucket placement.
func (g *SpatialGrid[T]) Insert(v T, x, y float32) {
	x = Wrap(x, g.width)
	y = Wrap(y, g.height)
	idx := int32(len(g.items))
	g.items = append(g.items, gridItem[T]{value: v, x: x, y: y})
	cell := g.cellIndex(x, y)
	g.cells[cell] = append(g.cells[cell], idx)
}

// QueryNearby returns up to maxCount items ordered by ascending
// toroidal distance from (x, y), ties broken by insertion order.
// A positive radius restricts results to items within it; radius <= 0
// means unbounded. Results are appended to dst; reuse dst across calls
// to avoid allocations.
func (g *SpatialGrid[T]) QueryNearby(dst []Neighbor[T], x, y float32, maxCount int, radius float32) []Neighbor[T] {
	if maxCount <= 0 || len(g.items) == 0 {
		return dst
	}

	g.scratch = g.scratch[:0]
	if radius > 0 {
		g.collectWithin(x, y, radius)
	} else {
		// Unbounded queries are rare (mate search falls back here when
		// no radius applies); a full scan keeps them simple and exact.
		for i := range g.items {
			it := &g.items[i]
			dx, dy := ToroidalDelta(x, y, it.x, it.y, g.width, g.height)
			g.scratch = append(g.scratch, Neighbor[T]{
				Value: it.value, DX: dx, DY: dy,
				DistSq: dx*dx + dy*dy, order: int32(i),
			})
		}
	}

	c := g.scratch
	sort.Slice(c, func(i, j int) bool {
		if c[i].DistSq != c[j].DistSq {
			return c[i].DistSq < c[j].DistSq
		}
		return c[i].order < c[j].order
	})

	if len(c) > maxCount {
		c = c[:maxCount]
	}
	return append(dst, c...)
}

// collectWithin gathers every item within radius into scratch. The cell
// window is clamped so a radius wider than the world visits each cell
// exactly once. Cell indices and world positions wrap with the same
// modulus, so the window walk never strays off the real cells; a
// narrow edge cell costs one extra cell of window on its axis.
func (g *SpatialGrid[T]) collectWithin(x, y, radius float32) {
	cellRadius := int(radius/g.cellSize) + 1
	cellRadiusC, cellRadiusR := cellRadius, cellRadius
	if float32(g.cols)*g.cellSize != g.width {
		cellRadiusC++
	}
	if float32(g.rows)*g.cellSize != g.height {
		cellRadiusR++
	}

	spanC := 2*cellRadiusC + 1
	if spanC > g.cols {
		spanC = g.cols
	}
	spanR := 2*cellRadiusR + 1
	if spanR > g.rows {
		spanR = g.rows
	}

	centerCol := int(Wrap(x, g.width) / g.cellSize)
	if centerCol >= g.cols {
		centerCol = g.cols - 1
	}
	centerRow := int(Wrap(y, g.height) / g.cellSize)
	if centerRow >= g.rows {
		centerRow = g.rows - 1
	}
	startC := centerCol - spanC/2
	startR := centerRow - spanR/2

	radiusSq := radius * radius

	for ri := 0; ri < spanR; ri++ {
		row := ((startR+ri)%g.rows + g.rows) % g.rows
		for ci := 0; ci < spanC; ci++ {
			col := ((startC+ci)%g.cols + g.cols) % g.cols

			for _, idx := range g.cells[row*g.cols+col] {
				it := &g.items[idx]
				dx, dy := ToroidalDelta(x, y, it.x, it.y, g.width, g.height)
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					g.scratch = append(g.scratch, Neighbor[T]{
						Value: it.value, DX: dx, DY: dy,
						DistSq: distSq, order: idx,
					})
				}
			}
		}
	}
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid[T]) cellIndex(x, y float32) int {
	col := int(x / g.cellSize)
	row := int(y / g.cellSize)

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}

	return row*g.cols + col
}
