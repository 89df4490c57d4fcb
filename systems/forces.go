package systems

// Steering rules. Each rule is a pure function of an agent view and its
// neighborhood and returns a single force vector; no rule touches shared
// state. The accumulator sums weighted contributions and clamps the net
// force to the species limit before integration.

// AgentView is the read-only kinematic view a rule steers from.
type AgentView struct {
	X, Y     float32
	VX, VY   float32
	MaxSpeed float32
	MaxForce float32
}

// PeerNeighbor describes a nearby agent for the flocking rules.
type PeerNeighbor struct {
	DX, DY float32 // Toroidal delta from the agent
	DistSq float32
	VX, VY float32
}

// PointNeighbor describes a nearby point feature: food, an obstacle, or
// a death marker. Radius is the obstacle radius; Weight is the marker's
// effective strength. Unused fields stay zero.
type PointNeighbor struct {
	DX, DY float32
	DistSq float32
	Radius float32
	Weight float32
}

// ForceAccumulator sums weighted rule contributions for one agent.
type ForceAccumulator struct {
	fx, fy   float32
	maxForce float32
}

// NewForceAccumulator returns an accumulator clamped to maxForce.
func NewForceAccumulator(maxForce float32) ForceAccumulator {
	return ForceAccumulator{maxForce: maxForce}
}

// Add applies a weighted contribution.
func (a *ForceAccumulator) Add(fx, fy, weight float32) {
	a.fx += fx * weight
	a.fy += fy * weight
}

// Resolve returns the net force, clamped to the configured maximum.
func (a *ForceAccumulator) Resolve() (float32, float32) {
	return Limit(a.fx, a.fy, a.maxForce)
}

// steerToward converts a desired direction into a steering force:
// desired velocity at max speed minus current velocity, force-limited.
func steerToward(agent AgentView, dx, dy float32) (float32, float32) {
	dx, dy = SetMagnitude(dx, dy, agent.MaxSpeed)
	return Limit(dx-agent.VX, dy-agent.VY, agent.MaxForce)
}

// Separation steers away from peers closer than sepRange, weighted by
// inverse distance so near collisions dominate.
func Separation(agent AgentView, peers []PeerNeighbor, sepRange float32) (float32, float32) {
	var sx, sy float32
	var n int
	rangeSq := sepRange * sepRange
	for i := range peers {
		p := &peers[i]
		if p.DistSq > rangeSq || p.DistSq == 0 {
			continue
		}
		// Away from the peer, scaled by 1/dist
		inv := 1 / p.DistSq
		sx -= p.DX * inv
		sy -= p.DY * inv
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return steerToward(agent, sx, sy)
}

// Alignment steers toward the mean velocity of visible peers.
func Alignment(agent AgentView, peers []PeerNeighbor) (float32, float32) {
	var vx, vy float32
	for i := range peers {
		vx += peers[i].VX
		vy += peers[i].VY
	}
	if len(peers) == 0 || (vx == 0 && vy == 0) {
		return 0, 0
	}
	return steerToward(agent, vx, vy)
}

// Cohesion steers toward the centroid of visible peers.
func Cohesion(agent AgentView, peers []PeerNeighbor) (float32, float32) {
	var cx, cy float32
	for i := range peers {
		cx += peers[i].DX
		cy += peers[i].DY
	}
	if len(peers) == 0 || (cx == 0 && cy == 0) {
		return 0, 0
	}
	return steerToward(agent, cx, cy)
}

// Flee steers away from threats, each weighted by inverse distance and
// its own weight (death markers decay, predators carry weight 1).
func Flee(agent AgentView, threats []PointNeighbor) (float32, float32) {
	var fx, fy float32
	for i := range threats {
		t := &threats[i]
		if t.DistSq == 0 {
			continue
		}
		w := t.Weight
		if w == 0 {
			w = 1
		}
		inv := w / t.DistSq
		fx -= t.DX * inv
		fy -= t.DY * inv
	}
	if fx == 0 && fy == 0 {
		return 0, 0
	}
	return steerToward(agent, fx, fy)
}

// Hunt steers toward the nearest target.
func Hunt(agent AgentView, targets []PointNeighbor) (float32, float32) {
	best := -1
	for i := range targets {
		if best < 0 || targets[i].DistSq < targets[best].DistSq {
			best = i
		}
	}
	if best < 0 {
		return 0, 0
	}
	return steerToward(agent, targets[best].DX, targets[best].DY)
}

// Seek steers directly toward a single point.
func Seek(agent AgentView, dx, dy float32) (float32, float32) {
	if dx == 0 && dy == 0 {
		return 0, 0
	}
	return steerToward(agent, dx, dy)
}

// Avoid steers around obstacles. Only obstacles whose surface is within
// lookahead of the agent contribute; the push is along the line from
// obstacle center to agent, scaled by penetration depth.
func Avoid(agent AgentView, obstacles []PointNeighbor, lookahead float32) (float32, float32) {
	var ax, ay float32
	for i := range obstacles {
		o := &obstacles[i]
		dist := Length(o.DX, o.DY)
		gap := dist - o.Radius
		if gap > lookahead {
			continue
		}
		if gap < 1 {
			gap = 1
		}
		// Stronger push the closer the surface
		s := (lookahead - gap) / (lookahead * gap)
		nx, ny := Normalize(-o.DX, -o.DY)
		ax += nx * s
		ay += ny * s
	}
	if ax == 0 && ay == 0 {
		return 0, 0
	}
	return steerToward(agent, ax, ay)
}

// Wander nudges the agent along a caller-supplied random unit jitter,
// keeping motion alive when no other rule fires.
func Wander(agent AgentView, jx, jy float32) (float32, float32) {
	if jx == 0 && jy == 0 {
		return 0, 0
	}
	dx := agent.VX + jx*agent.MaxSpeed*0.25
	dy := agent.VY + jy*agent.MaxSpeed*0.25
	if dx == 0 && dy == 0 {
		dx, dy = jx, jy
	}
	return steerToward(agent, dx, dy)
}
