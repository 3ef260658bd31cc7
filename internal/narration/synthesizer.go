// Package narration turns script narration into audio.
//
// Text longer than the speech provider accepts is split with textseg, each
// segment is synthesized independently through the retry executor, and the
// audio is joined in segment order. One failed segment fails the request.
package narration

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/retry"
	"github.com/phrazzld/reelgen-api/internal/textseg"
	"golang.org/x/sync/errgroup"
)

// DefaultSegmentMaxLength is the largest text, in characters, sent in one request.
const DefaultSegmentMaxLength = 300

var (
	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("narration text is empty")

	// ErrSynthesisFailed is returned when any segment could not be synthesized.
	ErrSynthesisFailed = errors.New("narration synthesis failed")
)

// Config tunes a Synthesizer.
type Config struct {
	SegmentMaxLength int
	Concurrency      int
	Voice            string
	AudioEncoding    string
	SampleRate       int
	Policy           retry.Policy
}

// Segment is the audio for one piece of the narration.
type Segment struct {
	Index           int
	Text            string
	Audio           []byte
	DurationSeconds float64
}

// Narration is the synthesized audio of a whole text.
type Narration struct {
	Segments        []Segment
	Audio           []byte
	DurationSeconds float64
	AudioEncoding   string
}

// Synthesizer converts narration text to audio.
type Synthesizer struct {
	tts      provider.SpeechSynthesizer
	executor *retry.Executor
	cfg      Config
	logger   *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(tts provider.SpeechSynthesizer, executor *retry.Executor, cfg Config, logger *slog.Logger) (*Synthesizer, error) {
	if tts == nil {
		return nil, errors.New("speech synthesizer cannot be nil")
	}
	if executor == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.SegmentMaxLength <= 0 {
		cfg.SegmentMaxLength = DefaultSegmentMaxLength
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Synthesizer{
		tts:      tts,
		executor: executor,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "narration_synthesizer")),
	}, nil
}

// Synthesize segments text, synthesizes every segment and concatenates the
// audio in order.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*Narration, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	pieces := textseg.Segment(text, s.cfg.SegmentMaxLength)
	segments := make([]Segment, len(pieces))

	s.logger.DebugContext(ctx, "synthesizing narration",
		slog.Int("characters", len([]rune(text))),
		slog.Int("segments", len(pieces)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, piece := range pieces {
		g.Go(func() error {
			seg, err := s.synthesizeSegment(gctx, i, piece)
			if err != nil {
				return err
			}
			segments[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	n := &Narration{Segments: segments, AudioEncoding: s.cfg.AudioEncoding}
	for _, seg := range segments {
		n.Audio = append(n.Audio, seg.Audio...)
		n.DurationSeconds += seg.DurationSeconds
	}

	s.logger.InfoContext(ctx, "narration synthesized",
		slog.Int("segments", len(segments)),
		slog.Int("audio_bytes", len(n.Audio)),
		slog.Float64("duration_seconds", n.DurationSeconds))
	return n, nil
}

type decoded struct {
	audio    []byte
	duration float64
}

func (s *Synthesizer) synthesizeSegment(ctx context.Context, index int, text string) (Segment, error) {
	req := provider.SpeechRequest{
		Text:          text,
		Voice:         s.cfg.Voice,
		AudioEncoding: s.cfg.AudioEncoding,
		SampleRate:    s.cfg.SampleRate,
	}
	out := retry.Execute(ctx, s.executor, retry.Call[provider.SpeechResponse, decoded]{
		Op: "tts.synthesize",
		Send: func(ctx context.Context) (provider.SpeechResponse, error) {
			return s.tts.Synthesize(ctx, req)
		},
		Parse: func(raw provider.SpeechResponse) (decoded, error) {
			audio, err := base64.StdEncoding.DecodeString(raw.AudioBase64)
			if err != nil {
				return decoded{}, fmt.Errorf("decode audio: %w", err)
			}
			return decoded{audio: audio, duration: raw.DurationSeconds}, nil
		},
		Empty: func(raw provider.SpeechResponse) bool {
			return raw.AudioBase64 == ""
		},
	}, s.cfg.Policy)

	if !out.OK() {
		return Segment{}, fmt.Errorf("%w: segment %d of narration: %w", ErrSynthesisFailed, index, out.Error())
	}
	return Segment{
		Index:           index,
		Text:            text,
		Audio:           out.Payload.audio,
		DurationSeconds: out.Payload.duration,
	}, nil
}
