package engine

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// CanRunConcurrent reports whether the host can give the simulation its
// own goroutine alongside a render loop. On a single-CPU host the
// producer would starve the consumer, so the runner falls back to
// synchronous ticking driven by the caller.
func CanRunConcurrent() bool {
	return runtime.NumCPU() > 1
}

// Runner drives the engine at a fixed timestep. Commands enqueued
// before Start are held and applied once the loop is ready; ticks,
// command application and engine access all happen on one goroutine.
type Runner struct {
	eng *Engine

	cmds   chan Command
	frames chan uint32
	stop   chan struct{}
	done   chan struct{}

	stopOnce sync.Once

	// Loop-goroutine state, never touched from outside the loop.
	paused     bool
	stepBudget int
	timeScale  float64
	acc        float64
	last       time.Time

	maxTicks    uint64
	ticksRun    uint64
	synchronous bool
}

// NewRunner wraps an engine. maxTicks of 0 means run until stopped.
func NewRunner(eng *Engine, maxTicks uint64) *Runner {
	return &Runner{
		eng:       eng,
		cmds:      make(chan Command, 64),
		frames:    make(chan uint32, 8),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		timeScale: 1,
		maxTicks:  maxTicks,
	}
}

// Enqueue queues a command for the next tick boundary. Returns false
// when the queue is full; the caller decides whether to retry.
func (r *Runner) Enqueue(cmd Command) bool {
	select {
	case r.cmds <- cmd:
		return true
	default:
		return false
	}
}

// Frames returns the frame-completion channel. Notifications are
// best-effort; a slow consumer misses frames rather than stalling the
// producer.
func (r *Runner) Frames() <-chan uint32 {
	return r.frames
}

// Synchronous reports whether Start fell back to caller-driven ticking.
func (r *Runner) Synchronous() bool {
	return r.synchronous
}

// ForceSynchronous disables the producer goroutine regardless of host
// capability. Must be called before Start.
func (r *Runner) ForceSynchronous() {
	r.synchronous = true
}

// Start launches the producer goroutine, or arms synchronous mode when
// the host cannot support a second busy goroutine. In synchronous mode
// the caller must invoke Advance from its own loop.
func (r *Runner) Start() {
	r.last = time.Now()
	if r.synchronous {
		return
	}
	if !CanRunConcurrent() {
		r.synchronous = true
		slog.Info("single cpu detected, running simulation synchronously")
		return
	}
	go r.run()
}

// Stop requests a cooperative shutdown and waits for the loop to drain.
// Safe to call more than once. In synchronous mode it only marks the
// runner stopped.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		if r.synchronous {
			close(r.done)
			return
		}
		<-r.done
	})
}

// Done is closed when the producer goroutine has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Advance runs due ticks in synchronous mode. Call once per render
// frame; it is a no-op when a producer goroutine owns the engine.
func (r *Runner) Advance() {
	if !r.synchronous {
		return
	}
	select {
	case <-r.stop:
		return
	default:
	}
	r.pump()
	if r.maxTicks > 0 && r.ticksRun >= r.maxTicks {
		r.Stop()
	}
}

func (r *Runner) run() {
	defer close(r.done)

	dt := r.eng.cfg.Physics.DT
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		r.pump()

		if r.maxTicks > 0 && r.ticksRun >= r.maxTicks {
			return
		}

		// Sleep toward the next due tick rather than spinning.
		sleep := time.Duration(dt / 4 * float64(time.Second))
		if r.paused {
			sleep = 10 * time.Millisecond
		}
		time.Sleep(sleep)
	}
}

// pump applies queued commands and runs every tick the accumulated
// wall-clock time has earned, bounded by the catch-up limit.
func (r *Runner) pump() {
drain:
	for {
		select {
		case cmd := <-r.cmds:
			r.dispatch(cmd)
		default:
			break drain
		}
	}

	now := time.Now()
	elapsed := now.Sub(r.last).Seconds()
	r.last = now

	dt := r.eng.cfg.Physics.DT

	if r.paused {
		r.acc = 0
		for r.stepBudget > 0 {
			r.stepBudget--
			r.tick()
		}
		return
	}

	r.acc += elapsed * r.timeScale

	due := int(r.acc / dt)
	if limit := r.eng.cfg.Physics.MaxCatchupTicks; limit > 0 && due > limit {
		// Too far behind: run the bounded batch and forfeit the rest so
		// a long stall cannot snowball.
		due = limit
		r.acc = 0
	} else {
		r.acc -= float64(due) * dt
	}

	for i := 0; i < due; i++ {
		r.tick()
		if r.maxTicks > 0 && r.ticksRun >= r.maxTicks {
			return
		}
	}
}

func (r *Runner) tick() {
	r.eng.Step()
	r.ticksRun++
	select {
	case r.frames <- r.eng.Frame():
	default:
	}
}

// dispatch routes control commands to the loop and everything else to
// the engine.
func (r *Runner) dispatch(cmd Command) {
	switch c := cmd.(type) {
	case PauseCommand:
		r.paused = true
	case ResumeCommand:
		r.paused = false
		r.acc = 0
	case StepCommand:
		n := c.Ticks
		if n <= 0 {
			n = 1
		}
		if r.paused {
			r.stepBudget += n
		} else {
			r.engineCommandError("step: simulation is not paused")
		}
	case SetTimeScaleCommand:
		if c.Scale <= 0 {
			r.engineCommandError("set_time_scale: scale must be positive, got %v", c.Scale)
			return
		}
		r.timeScale = c.Scale
	default:
		r.eng.Apply(cmd)
	}
}

func (r *Runner) engineCommandError(format string, args ...any) {
	r.eng.commandError(format, args...)
}
