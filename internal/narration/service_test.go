package narration_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/mocks"
	"github.com/phrazzld/reelgen-api/internal/narration"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/retry"
	"github.com/phrazzld/reelgen-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedScript(script domain.Script) narration.ScriptSource {
	return func(ctx context.Context, taskID uuid.UUID) (*domain.Script, error) {
		return &script, nil
	}
}

func TestService_Narrate(t *testing.T) {
	tts := &mocks.MockSpeechSynthesizer{SynthesizeFn: echoTTS}
	assets := mocks.NewMockNarrationStore()
	dir := t.TempDir()

	svc, err := narration.NewService(
		newSynthesizer(t, tts, 300),
		fixedScript(domain.DefaultScript()),
		narration.DirSink{Dir: dir},
		assets,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NoError(t, err)

	taskID := uuid.New()
	asset, err := svc.Narrate(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, taskID, asset.TaskID)
	assert.Equal(t, "mp3", asset.AudioEncoding)
	assert.Equal(t, 1, asset.SegmentCount)

	audio, err := os.ReadFile(asset.Location)
	require.NoError(t, err)
	script := domain.DefaultScript()
	assert.Equal(t, script.NarrationText(), string(audio))

	stored, err := assets.GetNarration(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, asset.Location, stored.Location)
}

func TestService_NarrateRecordsNothingOnSegmentFailure(t *testing.T) {
	tts := &mocks.MockSpeechSynthesizer{SynthesizeFn: func(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
		return provider.SpeechResponse{}, retry.NewStatusError(500, "tts down", nil)
	}}
	assets := mocks.NewMockNarrationStore()

	svc, err := narration.NewService(
		newSynthesizer(t, tts, 300),
		fixedScript(domain.DefaultScript()),
		narration.DirSink{Dir: t.TempDir()},
		assets,
		nil,
	)
	require.NoError(t, err)

	_, err = svc.Narrate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, narration.ErrSynthesisFailed)
	assert.Equal(t, 0, assets.SaveCalls)
}

func TestService_NarrateScriptMissing(t *testing.T) {
	tts := &mocks.MockSpeechSynthesizer{SynthesizeFn: echoTTS}
	missing := func(ctx context.Context, taskID uuid.UUID) (*domain.Script, error) {
		return nil, store.ErrVideoTaskNotFound
	}

	svc, err := narration.NewService(newSynthesizer(t, tts, 300), missing, narration.DirSink{Dir: t.TempDir()}, mocks.NewMockNarrationStore(), nil)
	require.NoError(t, err)

	_, err = svc.Narrate(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.Equal(t, 0, tts.CallCount())
}

func TestNewService_Validation(t *testing.T) {
	tts := &mocks.MockSpeechSynthesizer{SynthesizeFn: echoTTS}
	synth := newSynthesizer(t, tts, 300)

	_, err := narration.NewService(nil, fixedScript(domain.DefaultScript()), narration.DirSink{}, mocks.NewMockNarrationStore(), nil)
	assert.Error(t, err)
	_, err = narration.NewService(synth, nil, narration.DirSink{}, mocks.NewMockNarrationStore(), nil)
	assert.Error(t, err)
	_, err = narration.NewService(synth, fixedScript(domain.DefaultScript()), nil, mocks.NewMockNarrationStore(), nil)
	assert.Error(t, err)
	_, err = narration.NewService(synth, fixedScript(domain.DefaultScript()), narration.DirSink{}, nil, nil)
	assert.Error(t, err)
}
