package keyloom

import "time"

// EventType classifies key-lifecycle events.
type EventType string

const (
	// EventKeyAvailable fires when a new wrapped key record is created for
	// a device. A delivery collaborator consumes it to push the key out.
	EventKeyAvailable EventType = "key-available"
	// EventKeyRotated fires once per successful conversation rotation.
	EventKeyRotated EventType = "key-rotated"
	// EventKeyRevoked fires when a record is revoked.
	EventKeyRevoked EventType = "key-revoked"
	// EventMigrationStarted fires when algorithm migration begins for a
	// conversation.
	EventMigrationStarted EventType = "migration-started"
	// EventAlgorithmRetired fires when a legacy algorithm family is
	// deactivated for a conversation.
	EventAlgorithmRetired EventType = "algorithm-retired"
)

// Event describes one key-lifecycle occurrence. The engine emits events;
// persisting and displaying them is a collaborator's concern.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	DeviceID       string    `json:"device_id,omitempty"`
	Algorithm      Algorithm `json:"algorithm,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	At             time.Time `json:"at"`
}

// EventSink receives engine events synchronously. Implementations must not
// block for long; hand off to a queue if delivery is slow.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

// Publish implements EventSink.
func (f EventSinkFunc) Publish(ev Event) { f(ev) }

type noopSink struct{}

func (noopSink) Publish(Event) {}
