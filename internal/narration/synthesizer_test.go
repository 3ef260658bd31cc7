package narration_test

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/mocks"
	"github.com/phrazzld/reelgen-api/internal/narration"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSynthesizer(t *testing.T, tts provider.SpeechSynthesizer, maxLength int) *narration.Synthesizer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	executor := retry.NewExecutor(logger, retry.WithSleep(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}))
	s, err := narration.NewSynthesizer(tts, executor, narration.Config{
		SegmentMaxLength: maxLength,
		Concurrency:      3,
		Voice:            "warm-female",
		AudioEncoding:    "mp3",
		SampleRate:       24000,
		Policy:           retry.Policy{MaxAttempts: 3, InitialDelay: time.Second, BackoffMultiplier: 2},
	}, logger)
	require.NoError(t, err)
	return s
}

// echoTTS returns the request text as audio so ordering is observable.
func echoTTS(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
	return provider.SpeechResponse{
		AudioBase64:     base64.StdEncoding.EncodeToString([]byte(req.Text)),
		DurationSeconds: 1.5,
	}, nil
}

func TestSynthesize_SingleSegment(t *testing.T) {
	tts := &mocks.MockSpeechSynthesizer{SynthesizeFn: echoTTS}
	s := newSynthesizer(t, tts, 100)

	n, err := s.Synthesize(context.Background(), "Fresh noodles every morning.")
	require.NoError(t, err)
	assert.Equal(t, "Fresh noodles every morning.", string(n.Audio))
	assert.Len(t, n.Segments, 1)
	assert.Equal(t, 1.5, n.DurationSeconds)
	assert.Equal(t, "mp3", n.AudioEncoding)

	reqs := tts.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "warm-female", reqs[0].Voice)
	assert.Equal(t, 24000, reqs[0].SampleRate)
}

func TestSynthesize_MultipleSegmentsKeepOrder(t *testing.T) {
	tts := &mocks.MockSpeechSynthesizer{SynthesizeFn: func(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
		// later segments answer first
		if strings.HasPrefix(req.Text, "First") {
			time.Sleep(5 * time.Millisecond)
		}
		return echoTTS(ctx, req)
	}}
	s := newSynthesizer(t, tts, 30)

	text := "First we knead the dough. Then we pull it by hand. Finally it meets the broth."
	n, err := s.Synthesize(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, text, string(n.Audio))
	assert.Greater(t, len(n.Segments), 1)
	for i, seg := range n.Segments {
		assert.Equal(t, i, seg.Index)
		assert.LessOrEqual(t, len([]rune(seg.Text)), 30)
	}
	assert.Equal(t, 1.5*float64(len(n.Segments)), n.DurationSeconds)
}

func TestSynthesize_OneSegmentFailureFailsAll(t *testing.T) {
	tts := &mocks.MockSpeechSynthesizer{SynthesizeFn: func(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
		if strings.Contains(req.Text, "pull") {
			return provider.SpeechResponse{}, retry.NewStatusError(http.StatusInternalServerError, "tts down", nil)
		}
		return echoTTS(ctx, req)
	}}
	s := newSynthesizer(t, tts, 30)

	n, err := s.Synthesize(context.Background(), "First we knead the dough. Then we pull it by hand. Finally it meets the broth.")
	assert.Nil(t, n)
	assert.ErrorIs(t, err, narration.ErrSynthesisFailed)
	assert.ErrorIs(t, err, retry.ErrUpstreamService)
}

func TestSynthesize_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(context.Context, provider.SpeechRequest) (provider.SpeechResponse, error)
		wantErr   error
		wantCalls int
	}{
		{
			name: "unprocessable is skipped after one call",
			fn: func(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
				return provider.SpeechResponse{}, retry.NewStatusError(http.StatusUnprocessableEntity, "", nil)
			},
			wantErr:   retry.ErrUnprocessableInput,
			wantCalls: 1,
		},
		{
			name: "gateway timeout exhausts attempts",
			fn: func(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
				return provider.SpeechResponse{}, retry.NewStatusError(http.StatusGatewayTimeout, "", nil)
			},
			wantErr:   retry.ErrRetriesExhausted,
			wantCalls: 3,
		},
		{
			name: "empty audio is fatal",
			fn: func(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
				return provider.SpeechResponse{}, nil
			},
			wantErr:   retry.ErrEmptyContent,
			wantCalls: 1,
		},
		{
			name: "invalid base64 is a parse failure",
			fn: func(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
				return provider.SpeechResponse{AudioBase64: "not base64!!"}, nil
			},
			wantErr:   retry.ErrResponseParse,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tts := &mocks.MockSpeechSynthesizer{SynthesizeFn: tt.fn}
			s := newSynthesizer(t, tts, 100)

			_, err := s.Synthesize(context.Background(), "Short text.")
			assert.ErrorIs(t, err, narration.ErrSynthesisFailed)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, tts.CallCount())
		})
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	tts := &mocks.MockSpeechSynthesizer{}
	s := newSynthesizer(t, tts, 100)

	_, err := s.Synthesize(context.Background(), "   ")
	assert.ErrorIs(t, err, narration.ErrEmptyText)
	assert.Equal(t, 0, tts.CallCount())
}

func TestSynthesize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	tts := &mocks.MockSpeechSynthesizer{SynthesizeFn: func(callCtx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
		once.Do(cancel)
		return provider.SpeechResponse{}, callCtx.Err()
	}}
	s := newSynthesizer(t, tts, 100)

	_, err := s.Synthesize(ctx, "Short text.")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "narration")
	sink := narration.DirSink{Dir: dir}
	taskID := uuid.New()

	path, err := sink.Save(context.Background(), taskID, &narration.Narration{Audio: []byte("ID3audio"), AudioEncoding: "mp3"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, taskID.String()+".mp3"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3audio", string(data))

	_, err = sink.Save(context.Background(), taskID, &narration.Narration{})
	assert.Error(t, err)
}
