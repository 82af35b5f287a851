package events

import (
	"context"
	"time"
)

const (
	TypeTurnCompleted     = "TURN_COMPLETED"
	TypeKnowledgeAppended = "KNOWLEDGE_APPENDED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// TurnCompleted is emitted after a chat turn has been answered and persisted.
func TurnCompleted(sessionID, intentTags, source, outcome string, items int, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"intent":     intentTags,
			"source":     source,
			"outcome":    outcome,
			"items":      items,
		},
		OccurredAt: at,
	}
}

// KnowledgeAppended is emitted once the learning gate has processed a turn.
func KnowledgeAppended(sessionID string, appended, rejected int, total int64, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeKnowledgeAppended,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"appended":   appended,
			"rejected":   rejected,
			"total":      total,
		},
		OccurredAt: at,
	}
}

// Publisher is satisfied by the NATS publisher and by test doubles.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
