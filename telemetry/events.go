// Package telemetry provides the lifecycle event stream, windowed
// ecosystem statistics, and CSV/SQLite export.
package telemetry

import "github.com/RegiByte/emergent-boids-sub002/components"

// EventType identifies lifecycle events.
type EventType uint8

const (
	EventBirth EventType = iota
	EventDeath
	EventCatch
	EventFoodConsumed
	EventFoodSpawned
	EventObstacleSpawned
	EventCommandError
)

// String returns the event type's wire name.
func (t EventType) String() string {
	switch t {
	case EventBirth:
		return "birth"
	case EventDeath:
		return "death"
	case EventCatch:
		return "catch"
	case EventFoodConsumed:
		return "food_consumed"
	case EventFoodSpawned:
		return "food_spawned"
	case EventObstacleSpawned:
		return "obstacle_spawned"
	case EventCommandError:
		return "command_error"
	}
	return "unknown"
}

// Event is a single lifecycle event. Death events are emitted before
// the agent record is deleted, so observers can still read the final
// position, species and cause carried here.
type Event struct {
	Type      EventType
	Frame     uint32
	AgentID   string
	SpeciesID int
	X, Y      float32

	// Optional fields depending on event type
	Cause    components.DeathCause // death
	TargetID string                // catch: prey id; birth: parent id
	Amount   float32               // energy transferred (feeding/catch)
	Role     components.SourceRole // food_spawned: which role can eat it
	Message  string                // command_error detail
}

// NewBirthEvent creates a birth event.
func NewBirthEvent(frame uint32, childID, parentID string, speciesID int, x, y float32) Event {
	return Event{
		Type:      EventBirth,
		Frame:     frame,
		AgentID:   childID,
		TargetID:  parentID,
		SpeciesID: speciesID,
		X:         x,
		Y:         y,
	}
}

// NewDeathEvent creates a death event tagged with its cause.
func NewDeathEvent(frame uint32, agentID string, speciesID int, cause components.DeathCause, x, y float32) Event {
	return Event{
		Type:      EventDeath,
		Frame:     frame,
		AgentID:   agentID,
		SpeciesID: speciesID,
		Cause:     cause,
		X:         x,
		Y:         y,
	}
}

// NewCatchEvent creates a catch event (predator killed prey).
func NewCatchEvent(frame uint32, predatorID, preyID string, speciesID int, energy float32, x, y float32) Event {
	return Event{
		Type:      EventCatch,
		Frame:     frame,
		AgentID:   predatorID,
		TargetID:  preyID,
		SpeciesID: speciesID,
		Amount:    energy,
		X:         x,
		Y:         y,
	}
}

// NewFoodConsumedEvent creates a feeding event.
func NewFoodConsumedEvent(frame uint32, agentID string, speciesID int, amount float32, x, y float32) Event {
	return Event{
		Type:      EventFoodConsumed,
		Frame:     frame,
		AgentID:   agentID,
		SpeciesID: speciesID,
		Amount:    amount,
		X:         x,
		Y:         y,
	}
}

// NewFoodSpawnedEvent creates a food creation event.
func NewFoodSpawnedEvent(frame uint32, x, y, energy float32, role components.SourceRole) Event {
	return Event{Type: EventFoodSpawned, Frame: frame, X: x, Y: y, Amount: energy, Role: role}
}

// NewObstacleSpawnedEvent creates an obstacle creation event.
func NewObstacleSpawnedEvent(frame uint32, x, y, radius float32) Event {
	return Event{Type: EventObstacleSpawned, Frame: frame, X: x, Y: y, Amount: radius}
}

// NewCommandErrorEvent reports a rejected command without aborting the
// scheduler loop.
func NewCommandErrorEvent(frame uint32, msg string) Event {
	return Event{Type: EventCommandError, Frame: frame, Message: msg}
}
