package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	type payload struct {
		TaskID uuid.UUID `json:"task_id"`
	}
	taskID := uuid.New()

	event, err := New("script_generation", payload{TaskID: taskID})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "script_generation", event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded payload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, taskID, decoded.TaskID)

	_, err = New("bad", make(chan int))
	assert.Error(t, err)
}

func TestNewGenerationCompleted(t *testing.T) {
	attempt := &domain.GenerationAttempt{
		EntityID:     uuid.New(),
		Kind:         domain.KindScript,
		AttemptIndex: 2,
		Temperature:  0.9,
	}

	event, err := NewGenerationCompleted(attempt)
	require.NoError(t, err)
	assert.Equal(t, TypeGenerationCompleted, event.Type)

	var payload GenerationCompleted
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, attempt.EntityID, payload.EntityID)
	assert.Equal(t, domain.KindScript, payload.Kind)
	assert.Equal(t, 2, payload.AttemptIndex)
	assert.Equal(t, 0.9, payload.Temperature)
}
