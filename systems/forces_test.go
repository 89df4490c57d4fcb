package systems

import (
	"math"
	"testing"
)

func approxf(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestAccumulatorClampsToMaxForce(t *testing.T) {
	acc := NewForceAccumulator(1)
	acc.Add(10, 0, 1)
	acc.Add(0, 10, 1)

	fx, fy := acc.Resolve()
	if mag := Length(fx, fy); !approxf(mag, 1) {
		t.Fatalf("expected clamped magnitude 1, got %v", mag)
	}
	// Direction preserved under the clamp.
	if fx <= 0 || fy <= 0 || !approxf(fx, fy) {
		t.Fatalf("clamp changed direction: (%v, %v)", fx, fy)
	}
}

func TestAccumulatorWeightsContributions(t *testing.T) {
	acc := NewForceAccumulator(100)
	acc.Add(1, 0, 2)
	acc.Add(0, 1, 0.5)

	fx, fy := acc.Resolve()
	if !approxf(fx, 2) || !approxf(fy, 0.5) {
		t.Fatalf("expected (2, 0.5), got (%v, %v)", fx, fy)
	}
}

func TestSeparationPushesAwayFromNearPeer(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 5}
	peers := []PeerNeighbor{{DX: 3, DY: 0, DistSq: 9}}

	fx, fy := Separation(agent, peers, 10)
	if fx >= 0 {
		t.Fatalf("expected push away from peer at +x, got fx=%v", fx)
	}
	if !approxf(fy, 0) {
		t.Fatalf("expected no y component, got %v", fy)
	}
}

func TestSeparationIgnoresPeersOutsideRange(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 5}
	peers := []PeerNeighbor{{DX: 20, DY: 0, DistSq: 400}}

	if fx, fy := Separation(agent, peers, 10); fx != 0 || fy != 0 {
		t.Fatalf("out-of-range peer produced force (%v, %v)", fx, fy)
	}
}

func TestSeparationNearerPeerDominates(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 5}
	peers := []PeerNeighbor{
		{DX: 1, DY: 0, DistSq: 1},   // very close, at +x
		{DX: 0, DY: -5, DistSq: 25}, // farther, at -y
	}

	fx, fy := Separation(agent, peers, 10)
	if fx >= 0 {
		t.Fatalf("expected net push toward -x, got fx=%v", fx)
	}
	if math.Abs(float64(fx)) <= math.Abs(float64(fy)) {
		t.Fatalf("near peer should dominate: (%v, %v)", fx, fy)
	}
}

func TestAlignmentMatchesMeanHeading(t *testing.T) {
	agent := AgentView{VX: 0, VY: 0, MaxSpeed: 10, MaxForce: 100}
	peers := []PeerNeighbor{
		{VX: 1, VY: 0},
		{VX: 1, VY: 0},
	}

	fx, fy := Alignment(agent, peers)
	if fx <= 0 || !approxf(fy, 0) {
		t.Fatalf("expected steer toward +x, got (%v, %v)", fx, fy)
	}
}

func TestAlignmentNoPeersNoForce(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 5}
	if fx, fy := Alignment(agent, nil); fx != 0 || fy != 0 {
		t.Fatalf("expected zero force, got (%v, %v)", fx, fy)
	}
}

func TestCohesionSteersTowardCentroid(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 100}
	peers := []PeerNeighbor{
		{DX: 10, DY: 0},
		{DX: 10, DY: 4},
	}

	fx, fy := Cohesion(agent, peers)
	if fx <= 0 || fy <= 0 {
		t.Fatalf("expected steer toward (+x, +y) centroid, got (%v, %v)", fx, fy)
	}
}

func TestFleeSteersAwayFromThreat(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 5}
	threats := []PointNeighbor{{DX: 4, DY: 3, DistSq: 25, Weight: 1}}

	fx, fy := Flee(agent, threats)
	if fx >= 0 || fy >= 0 {
		t.Fatalf("expected force away from threat, got (%v, %v)", fx, fy)
	}
}

func TestFleeWeightScalesContribution(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 100}
	// Equal distance, opposite sides; the heavier threat wins.
	threats := []PointNeighbor{
		{DX: 5, DY: 0, DistSq: 25, Weight: 1},
		{DX: -5, DY: 0, DistSq: 25, Weight: 0.1},
	}

	fx, _ := Flee(agent, threats)
	if fx >= 0 {
		t.Fatalf("expected net flee from the heavier threat, got fx=%v", fx)
	}
}

func TestHuntTargetsNearest(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 100}
	targets := []PointNeighbor{
		{DX: 0, DY: 20, DistSq: 400},
		{DX: 5, DY: 0, DistSq: 25},
	}

	fx, fy := Hunt(agent, targets)
	if fx <= 0 || !approxf(fy, 0) {
		t.Fatalf("expected steer toward nearest target at +x, got (%v, %v)", fx, fy)
	}
}

func TestHuntNoTargetsNoForce(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 5}
	if fx, fy := Hunt(agent, nil); fx != 0 || fy != 0 {
		t.Fatalf("expected zero force, got (%v, %v)", fx, fy)
	}
}

func TestSeekPointsAtTarget(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 100}
	fx, fy := Seek(agent, 0, -8)
	if !approxf(fx, 0) || fy >= 0 {
		t.Fatalf("expected steer toward -y, got (%v, %v)", fx, fy)
	}

	if fx, fy := Seek(agent, 0, 0); fx != 0 || fy != 0 {
		t.Fatalf("zero target should give zero force, got (%v, %v)", fx, fy)
	}
}

func TestAvoidPushesAwayFromObstacleSurface(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 5}
	// Obstacle center 10 ahead, radius 5: surface 5 away, inside lookahead.
	obstacles := []PointNeighbor{{DX: 10, DY: 0, DistSq: 100, Radius: 5}}

	fx, fy := Avoid(agent, obstacles, 20)
	if fx >= 0 {
		t.Fatalf("expected push back from obstacle, got fx=%v", fx)
	}
	if !approxf(fy, 0) {
		t.Fatalf("expected no y component, got %v", fy)
	}
}

func TestAvoidIgnoresFarObstacles(t *testing.T) {
	agent := AgentView{MaxSpeed: 10, MaxForce: 5}
	obstacles := []PointNeighbor{{DX: 100, DY: 0, DistSq: 10000, Radius: 5}}

	if fx, fy := Avoid(agent, obstacles, 20); fx != 0 || fy != 0 {
		t.Fatalf("far obstacle produced force (%v, %v)", fx, fy)
	}
}

func TestWanderZeroJitterNoForce(t *testing.T) {
	agent := AgentView{VX: 1, VY: 0, MaxSpeed: 10, MaxForce: 5}
	if fx, fy := Wander(agent, 0, 0); fx != 0 || fy != 0 {
		t.Fatalf("zero jitter produced force (%v, %v)", fx, fy)
	}
}

func TestWanderBiasesCurrentHeading(t *testing.T) {
	agent := AgentView{VX: 10, VY: 0, MaxSpeed: 10, MaxForce: 5}
	// Jitter orthogonal to travel: force should mostly bend, not brake.
	fx, fy := Wander(agent, 0, 1)
	if fy <= 0 {
		t.Fatalf("expected jitter to bend heading toward +y, got fy=%v", fy)
	}
	if math.Abs(float64(fx)) > math.Abs(float64(fy)) {
		t.Fatalf("wander should perturb, not reverse: (%v, %v)", fx, fy)
	}
}

func TestLimitPreservesShortVectors(t *testing.T) {
	x, y := Limit(3, 4, 10)
	if x != 3 || y != 4 {
		t.Fatalf("short vector modified: (%v, %v)", x, y)
	}
	x, y = Limit(30, 40, 10)
	if !approxf(Length(x, y), 10) {
		t.Fatalf("expected magnitude 10, got %v", Length(x, y))
	}
	if !approxf(x/y, 0.75) {
		t.Fatalf("direction not preserved: (%v, %v)", x, y)
	}
}
