package engine

import "testing"

func TestBuildOpsLayoutRanges(t *testing.T) {
	counts := [NumOpKinds]int{2, 0, 3, 4, 4}
	layout := BuildOpsLayout(counts)

	if layout.Total() != 13 {
		t.Fatalf("expected total 13, got %d", layout.Total())
	}

	expect := map[OpKind]OpRange{
		OpDeathMarkers:  {0, 2},
		OpObstacles:     {2, 2},
		OpFood:          {2, 5},
		OpSpatialInsert: {5, 9},
		OpAgentUpdate:   {9, 13},
	}
	for k, want := range expect {
		if got := layout.Range(k); got != want {
			t.Errorf("%v: expected range %+v, got %+v", k, want, got)
		}
	}
}

func TestLookupBoundaryBelongsToNextRange(t *testing.T) {
	layout := BuildOpsLayout([NumOpKinds]int{2, 0, 3, 4, 4})

	cases := []struct {
		i     int
		kind  OpKind
		local int
		ok    bool
	}{
		{0, OpDeathMarkers, 0, true},
		{1, OpDeathMarkers, 1, true},
		// Index 2 is the marker range's End; the empty obstacle range
		// is skipped and it resolves to the first food entry.
		{2, OpFood, 0, true},
		{4, OpFood, 2, true},
		{5, OpSpatialInsert, 0, true},
		{8, OpSpatialInsert, 3, true},
		{9, OpAgentUpdate, 0, true},
		{12, OpAgentUpdate, 3, true},
		{13, 0, 0, false},
		{-1, 0, 0, false},
	}

	for _, tc := range cases {
		kind, local, ok := layout.Lookup(tc.i)
		if ok != tc.ok {
			t.Errorf("Lookup(%d): expected ok=%v, got %v", tc.i, tc.ok, ok)
			continue
		}
		if !ok {
			continue
		}
		if kind != tc.kind || local != tc.local {
			t.Errorf("Lookup(%d): expected (%v, %d), got (%v, %d)",
				tc.i, tc.kind, tc.local, kind, local)
		}
	}
}

func TestLookupCoversEveryIndexExactlyOnce(t *testing.T) {
	layout := BuildOpsLayout([NumOpKinds]int{3, 1, 0, 7, 5})

	var seen [NumOpKinds][]bool
	for k := OpKind(0); k < NumOpKinds; k++ {
		seen[k] = make([]bool, layout.Range(k).Len())
	}

	for i := 0; i < layout.Total(); i++ {
		kind, local, ok := layout.Lookup(i)
		if !ok {
			t.Fatalf("Lookup(%d) unexpectedly out of range", i)
		}
		if seen[kind][local] {
			t.Fatalf("index %d resolved to (%v, %d) twice", i, kind, local)
		}
		seen[kind][local] = true
	}

	for k := OpKind(0); k < NumOpKinds; k++ {
		for local, s := range seen[k] {
			if !s {
				t.Errorf("(%v, %d) never visited", k, local)
			}
		}
	}
}

func TestNegativeCountsTreatedAsZero(t *testing.T) {
	layout := BuildOpsLayout([NumOpKinds]int{-5, 2, 0, 0, 0})
	if layout.Total() != 2 {
		t.Fatalf("expected total 2, got %d", layout.Total())
	}
	if kind, _, ok := layout.Lookup(0); !ok || kind != OpObstacles {
		t.Errorf("expected index 0 to be obstacles, got %v ok=%v", kind, ok)
	}
}

func TestDueSpreadsSlotsAcrossPeriod(t *testing.T) {
	const period = 3

	// Every slot fires exactly once per period.
	for slot := 0; slot < 9; slot++ {
		fired := 0
		for frame := uint32(0); frame < period; frame++ {
			if Due(slot, period, frame) {
				fired++
			}
		}
		if fired != 1 {
			t.Errorf("slot %d fired %d times in one period", slot, fired)
		}
	}

	// On any given frame only slots in one congruence class fire.
	for frame := uint32(0); frame < 6; frame++ {
		for slot := 0; slot < 9; slot++ {
			want := uint32(slot)%period == frame%period
			if got := Due(slot, period, frame); got != want {
				t.Errorf("Due(%d, %d, %d) = %v, want %v", slot, period, frame, got, want)
			}
		}
	}
}

func TestDuePeriodOneAlwaysFires(t *testing.T) {
	for frame := uint32(0); frame < 5; frame++ {
		if !Due(7, 1, frame) || !Due(7, 0, frame) {
			t.Errorf("period <= 1 must fire every frame")
		}
	}
}

func TestScaledDT(t *testing.T) {
	cases := []struct {
		dt     float32
		period int
		want   float32
	}{
		{0.1, 1, 0.1},
		{0.1, 0, 0.1},
		{0.1, 10, 1.0},
		// The product must round through float32 like ScaledDT does;
		// exact constant folding would drift by one ulp.
		{0.0333, 45, float32(0.0333) * 45},
	}
	for _, tc := range cases {
		if got := ScaledDT(tc.dt, tc.period); got != tc.want {
			t.Errorf("ScaledDT(%v, %d) = %v, want %v", tc.dt, tc.period, got, tc.want)
		}
	}
}
