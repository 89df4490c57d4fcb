package telemetry

import "sync/atomic"

// Bus is a bounded, non-blocking event channel between the simulation
// producer and analytics consumers. Publishing never blocks the tick:
// when consumers fall behind, the oldest events are dropped and
// counted. Staleness beats backpressure in the hot path.
type Bus struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewBus creates a bus with the given capacity.
func NewBus(capacity int) *Bus {
	if capacity < 1 {
		capacity = 1
	}
	return &Bus{ch: make(chan Event, capacity)}
}

// Publish enqueues an event, evicting the oldest on a full buffer.
// Only the simulation goroutine calls Publish.
func (b *Bus) Publish(ev Event) {
	for {
		select {
		case b.ch <- ev:
			return
		default:
		}
		// Full: drop the oldest and retry.
		select {
		case <-b.ch:
			b.dropped.Add(1)
		default:
		}
	}
}

// Events returns the receive side for consumers.
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Drain receives all currently buffered events without blocking.
func (b *Bus) Drain(dst []Event) []Event {
	for {
		select {
		case ev := <-b.ch:
			dst = append(dst, ev)
		default:
			return dst
		}
	}
}

// Dropped returns how many events were evicted unread.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
