package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
)

// Event types.
const (
	// TypeGenerationCompleted is emitted after a generation attempt is committed.
	TypeGenerationCompleted = "generation.completed"

	// TypeTaskRequested asks for background work on a video task.
	TypeTaskRequested = "task.requested"
)

// Event is a typed message with a JSON payload.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type identifies the payload; for task requests it is the task type
	Type string `json:"type"`

	// Payload contains the event data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// New creates an Event with the specified type and payload.
func New(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// GenerationCompleted is the payload of TypeGenerationCompleted.
type GenerationCompleted struct {
	EntityID     uuid.UUID             `json:"entity_id"`
	Kind         domain.GenerationKind `json:"kind"`
	AttemptIndex int                   `json:"attempt_index"`
	Temperature  float64               `json:"temperature"`
	Defaulted    bool                  `json:"defaulted"`
}

// NewGenerationCompleted builds the completion event for a committed attempt.
func NewGenerationCompleted(a *domain.GenerationAttempt) (*Event, error) {
	return New(TypeGenerationCompleted, GenerationCompleted{
		EntityID:     a.EntityID,
		Kind:         a.Kind,
		AttemptIndex: a.AttemptIndex,
		Temperature:  a.Temperature,
		Defaulted:    a.Defaulted,
	})
}

// Handler processes events delivered by an Emitter.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Emitter publishes events to whoever subscribed to them.
type Emitter interface {
	// Emit publishes the event. An error means at least one handler failed.
	Emit(ctx context.Context, event *Event) error
}

// TaskRequested is the payload of TypeTaskRequested. Frames is only set for
// frame analysis requests.
type TaskRequested struct {
	TaskType    string         `json:"task_type"`
	VideoTaskID uuid.UUID      `json:"video_task_id"`
	Frames      []domain.Frame `json:"frames,omitempty"`
}
