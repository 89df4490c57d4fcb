package engine

import (
	"testing"
	"time"

	"github.com/RegiByte/emergent-boids-sub002/telemetry"
)

// Runner tests drive pump and dispatch directly instead of spinning up
// the producer goroutine, so timing is fully under test control.

func newTestRunner(t *testing.T) (*Runner, *Engine) {
	t.Helper()
	eng := newTestEngine(t, testConfig(t))
	r := NewRunner(eng, 0)
	r.last = time.Now()
	return r, eng
}

func TestPumpRunsElapsedTicks(t *testing.T) {
	r, eng := newTestRunner(t)

	// Two ticks worth of backlog earns exactly two ticks.
	r.last = time.Now().Add(-time.Duration(2 * eng.cfg.Physics.DT * 1.001 * float64(time.Second)))
	r.pump()
	if r.ticksRun != 2 {
		t.Fatalf("expected 2 ticks, got %d", r.ticksRun)
	}
}

func TestCatchupClamped(t *testing.T) {
	r, eng := newTestRunner(t)
	limit := eng.cfg.Physics.MaxCatchupTicks
	if limit <= 0 {
		t.Fatal("default config must bound catch-up")
	}

	// A long stall earns the bounded batch, and the excess backlog is
	// forfeited rather than carried over.
	r.last = time.Now().Add(-10 * time.Second)
	r.pump()
	if int(r.ticksRun) != limit {
		t.Fatalf("expected %d clamped ticks, got %d", limit, r.ticksRun)
	}
	if r.acc != 0 {
		t.Fatalf("backlog not forfeited after clamp: acc=%v", r.acc)
	}
}

func TestPausedRunsNoTicks(t *testing.T) {
	r, _ := newTestRunner(t)
	r.dispatch(PauseCommand{})

	r.last = time.Now().Add(-time.Second)
	r.pump()
	if r.ticksRun != 0 {
		t.Fatalf("paused runner ticked %d times", r.ticksRun)
	}
	if r.acc != 0 {
		t.Fatalf("paused runner accumulated time: %v", r.acc)
	}
}

func TestStepWhilePaused(t *testing.T) {
	r, eng := newTestRunner(t)
	r.dispatch(PauseCommand{})
	r.dispatch(StepCommand{Ticks: 3})
	r.pump()

	if r.ticksRun != 3 {
		t.Fatalf("expected 3 stepped ticks, got %d", r.ticksRun)
	}
	if eng.Frame() != 3 {
		t.Fatalf("engine frame %d after 3 steps", eng.Frame())
	}

	// Zero means one.
	r.dispatch(StepCommand{})
	r.pump()
	if r.ticksRun != 4 {
		t.Fatalf("expected 4 ticks after default step, got %d", r.ticksRun)
	}
}

func TestStepWhileRunningIsAnError(t *testing.T) {
	r, eng := newTestRunner(t)
	r.dispatch(StepCommand{Ticks: 1})

	errs := drainByType(eng, telemetry.EventCommandError)
	if len(errs) != 1 {
		t.Fatalf("expected 1 command error, got %d", len(errs))
	}
	if r.stepBudget != 0 {
		t.Fatalf("step budget granted while running: %d", r.stepBudget)
	}
}

func TestSetTimeScaleValidated(t *testing.T) {
	r, eng := newTestRunner(t)

	r.dispatch(SetTimeScaleCommand{Scale: -2})
	if errs := drainByType(eng, telemetry.EventCommandError); len(errs) != 1 {
		t.Fatalf("expected 1 command error, got %d", len(errs))
	}
	if r.timeScale != 1 {
		t.Fatalf("rejected scale applied: %v", r.timeScale)
	}

	r.dispatch(SetTimeScaleCommand{Scale: 4})
	if r.timeScale != 4 {
		t.Fatalf("valid scale not applied: %v", r.timeScale)
	}
}

func TestTimeScaleMultipliesBacklog(t *testing.T) {
	r, eng := newTestRunner(t)
	r.timeScale = 2

	// One tick of wall time at 2x earns two ticks, under the clamp.
	dt := eng.cfg.Physics.DT
	r.last = time.Now().Add(-time.Duration(dt * 1.001 * float64(time.Second)))
	r.pump()
	if r.ticksRun != 2 {
		t.Fatalf("expected 2 ticks at 2x, got %d", r.ticksRun)
	}
}

func TestCommandsQueuedBeforeStartApplyOnFirstPump(t *testing.T) {
	r, eng := newTestRunner(t)

	cfg := eng.cfg
	if !r.Enqueue(AddAgentCommand{Species: cfg.Species[0].Name, X: 10, Y: 10, Count: 1}) {
		t.Fatal("enqueue failed on empty queue")
	}
	if eng.AliveCount() != 0 {
		t.Fatal("command applied before the loop pumped")
	}

	r.pump()
	if eng.AliveCount() != 1 {
		t.Fatalf("queued command not applied: alive=%d", eng.AliveCount())
	}
}

func TestEnqueueFullQueueReturnsFalse(t *testing.T) {
	r, _ := newTestRunner(t)
	for i := 0; i < cap(r.cmds); i++ {
		if !r.Enqueue(PauseCommand{}) {
			t.Fatalf("enqueue %d failed below capacity", i)
		}
	}
	if r.Enqueue(PauseCommand{}) {
		t.Fatal("enqueue succeeded on a full queue")
	}
}

func TestSynchronousAdvanceStopsAtMaxTicks(t *testing.T) {
	eng := newTestEngine(t, testConfig(t))
	r := NewRunner(eng, 2)
	r.synchronous = true
	r.last = time.Now().Add(-time.Second)

	r.Advance()

	if r.ticksRun != 2 {
		t.Fatalf("expected exactly 2 ticks, got %d", r.ticksRun)
	}
	select {
	case <-r.Done():
	default:
		t.Fatal("runner not stopped after max ticks")
	}

	// Advance after stop is a no-op.
	r.Advance()
	if r.ticksRun != 2 {
		t.Fatalf("stopped runner kept ticking: %d", r.ticksRun)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	eng := newTestEngine(t, testConfig(t))
	r := NewRunner(eng, 0)
	r.synchronous = true
	r.Stop()
	r.Stop()
	select {
	case <-r.Done():
	default:
		t.Fatal("done not closed after stop")
	}
}
