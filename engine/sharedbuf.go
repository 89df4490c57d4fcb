// Package engine implements the simulation core: the per-tick scheduler,
// the agent lifecycle, and the shared state buffer that publishes world
// state to render/analytics consumers.
package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/RegiByte/emergent-boids-sub002/components"
)

// Packed per-slot flag bits. Species lives in bits 8-15 so consumers
// can color agents without a side channel.
const (
	flagStanceMask   uint32 = 0x07
	flagSeeking      uint32 = 1 << 3
	flagAlive        uint32 = 1 << 4
	flagSpeciesShift        = 8
	flagSpeciesMask  uint32 = 0xFF
)

// PackFlags packs stance, species, mate-seeking and alive into one word.
func PackFlags(stance components.Stance, species int, seeking, alive bool) uint32 {
	w := uint32(stance) & flagStanceMask
	w |= (uint32(species) & flagSpeciesMask) << flagSpeciesShift
	if seeking {
		w |= flagSeeking
	}
	if alive {
		w |= flagAlive
	}
	return w
}

// UnpackFlags is the inverse of PackFlags.
func UnpackFlags(w uint32) (stance components.Stance, species int, seeking, alive bool) {
	return components.Stance(w & flagStanceMask),
		int((w >> flagSpeciesShift) & flagSpeciesMask),
		w&flagSeeking != 0,
		w&flagAlive != 0
}

// FieldLayout locates one per-slot field inside a mirror's slab.
// Offsets and strides are in elements, not bytes; consumers multiply by
// the element size of the slab they index.
type FieldLayout struct {
	Offset int // element offset from the start of a mirror
	Stride int // elements per slot
	Count  int // slots
}

// Layout describes the full buffer so a consumer can build its own
// read views without depending on engine internals.
type Layout struct {
	Capacity        int
	MirrorFloatSize int // float32 elements per mirror
	MirrorWordSize  int // uint32 elements per mirror

	// Float-slab fields
	Positions  FieldLayout // x, y interleaved
	Velocities FieldLayout // x, y interleaved
	Energy     FieldLayout
	Health     FieldLayout
	SimTime    FieldLayout // single element, stats block

	// Word-slab fields
	Flags       FieldLayout // packed stance+seeking+alive
	StanceFrame FieldLayout // frame the stance was entered
	StatAlive   FieldLayout // single element each
	StatDead    FieldLayout
	StatBorn    FieldLayout
	StatFrame   FieldLayout
}

// SharedStateChannel is a double-buffered region shared between the
// single simulation producer and any number of read-only consumers.
// The producer writes the mirror not marked active and flips the flag
// atomically after a full tick, so every consumer snapshot is wholly
// one tick's data, never a mixture. No locks anywhere.
type SharedStateChannel struct {
	layout  Layout
	active  atomic.Uint32 // index of the consumer-readable mirror
	claimed atomic.Bool   // a Producer has been handed out

	floats [2][]float32
	words  [2][]uint32
}

// NewSharedStateChannel allocates a channel for up to capacity agent
// slots. Allocation failure panics like any Go allocation; a zero or
// negative capacity is a configuration error.
func NewSharedStateChannel(capacity int) (*SharedStateChannel, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("sharedbuf: capacity must be positive, got %d", capacity)
	}

	l := Layout{Capacity: capacity}
	off := 0
	l.Positions = FieldLayout{Offset: off, Stride: 2, Count: capacity}
	off += capacity * 2
	l.Velocities = FieldLayout{Offset: off, Stride: 2, Count: capacity}
	off += capacity * 2
	l.Energy = FieldLayout{Offset: off, Stride: 1, Count: capacity}
	off += capacity
	l.Health = FieldLayout{Offset: off, Stride: 1, Count: capacity}
	off += capacity
	l.SimTime = FieldLayout{Offset: off, Stride: 1, Count: 1}
	off++
	l.MirrorFloatSize = off

	woff := 0
	l.Flags = FieldLayout{Offset: woff, Stride: 1, Count: capacity}
	woff += capacity
	l.StanceFrame = FieldLayout{Offset: woff, Stride: 1, Count: capacity}
	woff += capacity
	l.StatAlive = FieldLayout{Offset: woff, Stride: 1, Count: 1}
	woff++
	l.StatDead = FieldLayout{Offset: woff, Stride: 1, Count: 1}
	woff++
	l.StatBorn = FieldLayout{Offset: woff, Stride: 1, Count: 1}
	woff++
	l.StatFrame = FieldLayout{Offset: woff, Stride: 1, Count: 1}
	woff++
	l.MirrorWordSize = woff

	ch := &SharedStateChannel{layout: l}
	for m := 0; m < 2; m++ {
		ch.floats[m] = make([]float32, l.MirrorFloatSize)
		ch.words[m] = make([]uint32, l.MirrorWordSize)
	}
	return ch, nil
}

// Layout returns the buffer's field layout descriptor.
func (ch *SharedStateChannel) Layout() Layout {
	return ch.layout
}

// Capacity returns the number of agent slots.
func (ch *SharedStateChannel) Capacity() int {
	return ch.layout.Capacity
}

// FloatMirror exposes a mirror's raw float slab for consumers that
// build their own views from the layout descriptor. Read-only.
func (ch *SharedStateChannel) FloatMirror(m int) []float32 {
	return ch.floats[m&1]
}

// WordMirror exposes a mirror's raw word slab. Read-only.
func (ch *SharedStateChannel) WordMirror(m int) []uint32 {
	return ch.words[m&1]
}

// Snapshot pins the currently active mirror for one read pass. All
// accessors on the returned value read the same mirror, so the data is
// torn-read free even if the producer flips mid-pass.
func (ch *SharedStateChannel) Snapshot() Snapshot {
	return Snapshot{ch: ch, mirror: int(ch.active.Load() & 1)}
}

// Snapshot is a consistent read view over one mirror.
type Snapshot struct {
	ch     *SharedStateChannel
	mirror int
}

// Mirror returns which mirror this snapshot reads.
func (s Snapshot) Mirror() int { return s.mirror }

// Position returns slot's position.
func (s Snapshot) Position(slot int) (x, y float32) {
	f := s.ch.floats[s.mirror]
	o := s.ch.layout.Positions.Offset + slot*2
	return f[o], f[o+1]
}

// Velocity returns slot's velocity.
func (s Snapshot) Velocity(slot int) (x, y float32) {
	f := s.ch.floats[s.mirror]
	o := s.ch.layout.Velocities.Offset + slot*2
	return f[o], f[o+1]
}

// Energy returns slot's energy.
func (s Snapshot) Energy(slot int) float32 {
	return s.ch.floats[s.mirror][s.ch.layout.Energy.Offset+slot]
}

// Health returns slot's health.
func (s Snapshot) Health(slot int) float32 {
	return s.ch.floats[s.mirror][s.ch.layout.Health.Offset+slot]
}

// Flags returns slot's unpacked stance flags.
func (s Snapshot) Flags(slot int) (stance components.Stance, species int, seeking, alive bool) {
	return UnpackFlags(s.ch.words[s.mirror][s.ch.layout.Flags.Offset+slot])
}

// StanceFrame returns the frame slot's current stance was entered.
func (s Snapshot) StanceFrame(slot int) uint32 {
	return s.ch.words[s.mirror][s.ch.layout.StanceFrame.Offset+slot]
}

// Stats is the aggregate block published once per tick.
type Stats struct {
	Alive   uint32
	Dead    uint32
	Born    uint32
	Frame   uint32
	SimTime float32
}

// Stats returns the aggregate stats block.
func (s Snapshot) Stats() Stats {
	w := s.ch.words[s.mirror]
	l := s.ch.layout
	return Stats{
		Alive:   w[l.StatAlive.Offset],
		Dead:    w[l.StatDead.Offset],
		Born:    w[l.StatBorn.Offset],
		Frame:   w[l.StatFrame.Offset],
		SimTime: s.ch.floats[s.mirror][l.SimTime.Offset],
	}
}

// Producer is the single-writer handle. Exactly one exists per channel;
// ownership of this value is what enforces the single-writer invariant,
// there are no runtime checks in the write path.
type Producer struct {
	ch   *SharedStateChannel
	back int // mirror being written this tick

	// Slots cleared this tick; the clear must also land in the other
	// mirror on the next Begin before the slot may be reused.
	pendingClear []int
}

// NewProducer hands out the channel's single writer handle. A second
// call fails: the write side is owned by exactly one goroutine.
func (ch *SharedStateChannel) NewProducer() (*Producer, error) {
	if ch.claimed.Swap(true) {
		return nil, fmt.Errorf("sharedbuf: producer already claimed")
	}
	return &Producer{ch: ch, back: 1 - int(ch.active.Load()&1)}, nil
}

// Begin starts a tick's writes into the inactive mirror and replays any
// slot clears from the previous tick so both mirrors agree.
func (p *Producer) Begin() {
	p.back = 1 - int(p.ch.active.Load()&1)
	w := p.ch.words[p.back]
	off := p.ch.layout.Flags.Offset
	for _, slot := range p.pendingClear {
		w[off+slot] &^= flagAlive
	}
	p.pendingClear = p.pendingClear[:0]
}

// SetPosition writes slot's position into the back mirror.
func (p *Producer) SetPosition(slot int, x, y float32) {
	f := p.ch.floats[p.back]
	o := p.ch.layout.Positions.Offset + slot*2
	f[o], f[o+1] = x, y
}

// SetVelocity writes slot's velocity into the back mirror.
func (p *Producer) SetVelocity(slot int, x, y float32) {
	f := p.ch.floats[p.back]
	o := p.ch.layout.Velocities.Offset + slot*2
	f[o], f[o+1] = x, y
}

// SetScalars writes slot's observer scalars into the back mirror.
func (p *Producer) SetScalars(slot int, energy, health float32) {
	l := p.ch.layout
	f := p.ch.floats[p.back]
	f[l.Energy.Offset+slot] = energy
	f[l.Health.Offset+slot] = health
}

// SetFlags writes slot's packed flags and stance-entry frame.
func (p *Producer) SetFlags(slot int, stance components.Stance, species int, seeking, alive bool, stanceFrame uint32) {
	l := p.ch.layout
	w := p.ch.words[p.back]
	w[l.Flags.Offset+slot] = PackFlags(stance, species, seeking, alive)
	w[l.StanceFrame.Offset+slot] = stanceFrame
}

// ClearSlot marks a slot dead in the back mirror. The clear is replayed
// into the other mirror on the next Begin; callers must not reuse the
// slot until both mirrors have seen it (see Engine slot recycling).
func (p *Producer) ClearSlot(slot int) {
	w := p.ch.words[p.back]
	w[p.ch.layout.Flags.Offset+slot] &^= flagAlive
	p.pendingClear = append(p.pendingClear, slot)
}

// SetStats writes the aggregate stats block.
func (p *Producer) SetStats(alive, dead, born, frame uint32, simTime float32) {
	l := p.ch.layout
	w := p.ch.words[p.back]
	w[l.StatAlive.Offset] = alive
	w[l.StatDead.Offset] = dead
	w[l.StatBorn.Offset] = born
	w[l.StatFrame.Offset] = frame
	p.ch.floats[p.back][l.SimTime.Offset] = simTime
}

// Publish atomically makes the back mirror the active one. All writes
// since Begin become visible to consumers as a single unit.
func (p *Producer) Publish() {
	p.ch.active.Store(uint32(p.back))
}
