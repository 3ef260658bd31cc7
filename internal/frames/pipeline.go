// Package frames analyzes the stills of an uploaded video and recommends the
// best shots per category.
//
// Every frame is analyzed independently through the retry executor with a
// bounded number of concurrent provider calls. A frame that fails or is
// rejected by the provider is recorded as such and never fails the batch.
// Recommendations are computed only once every frame has an outcome.
package frames

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/generation/jsonextract"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/redact"
	"github.com/phrazzld/reelgen-api/internal/retry"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the vision calls in flight for one batch.
const DefaultConcurrency = 4

// ErrEmptyBatch is returned when AnalyzeBatch receives no frames.
var ErrEmptyBatch = errors.New("frame batch is empty")

// ProgressFunc is called once per frame as soon as its analysis is final.
// Calls are serialized; done counts the frames finished so far.
type ProgressFunc func(done, total int, analysis domain.FrameAnalysis)

// BatchResult is the outcome of one AnalyzeBatch run. Analyses are in input order.
type BatchResult struct {
	Analyses        []domain.FrameAnalysis   `json:"analyses"`
	Recommendations domain.RecommendationSet `json:"recommendations"`
	Succeeded       int                      `json:"succeeded"`
	Failed          int                      `json:"failed"`
	Skipped         int                      `json:"skipped"`
}

// PipelineConfig tunes a Pipeline.
type PipelineConfig struct {
	Concurrency int
	TopN        int
	Policy      retry.Policy
}

// Pipeline runs frame analysis for a batch.
type Pipeline struct {
	vision      provider.VisionAnalyzer
	executor    *retry.Executor
	policy      retry.Policy
	concurrency int
	selector    Selector
	logger      *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	vision provider.VisionAnalyzer,
	executor *retry.Executor,
	cfg PipelineConfig,
	logger *slog.Logger,
) (*Pipeline, error) {
	if vision == nil {
		return nil, errors.New("vision analyzer cannot be nil")
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
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Pipeline{
		vision:      vision,
		executor:    executor,
		policy:      cfg.Policy,
		concurrency: concurrency,
		selector:    Selector{TopN: cfg.TopN},
		logger:      logger.With(slog.String("component", "frame_pipeline")),
	}, nil
}

// AnalyzeBatch analyzes every frame and selects recommendations. Input is
// validated before any provider call. The only errors returned are
// validation errors and cancellation of ctx; per-frame failures are
// reported in the result.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, frames []domain.Frame, progress ProgressFunc) (*BatchResult, error) {
	if err := validateBatch(frames); err != nil {
		return nil, err
	}

	total := len(frames)
	analyses := make([]domain.FrameAnalysis, total)

	var (
		mu   sync.Mutex
		done int
	)
	report := func(a domain.FrameAnalysis) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if progress != nil {
			progress(done, total, a)
		}
	}

	p.logger.InfoContext(ctx, "analyzing frame batch",
		slog.Int("frame_count", total),
		slog.Int("concurrency", p.concurrency))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, frame := range frames {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			analyses[i] = p.analyzeFrame(ctx, frame)
			report(analyses[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		p.logger.WarnContext(ctx, "frame batch cancelled", slog.Int("finished", done))
		return nil, fmt.Errorf("frame batch cancelled: %w", err)
	}

	result := &BatchResult{
		Analyses:        analyses,
		Recommendations: p.selector.Select(analyses),
	}
	for _, a := range analyses {
		switch {
		case a.Success:
			result.Succeeded++
		case a.Skipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}

	p.logger.InfoContext(ctx, "frame batch analyzed",
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped))

	return result, nil
}

func (p *Pipeline) analyzeFrame(ctx context.Context, frame domain.Frame) domain.FrameAnalysis {
	call := retry.Call[string, domain.FrameAnalysis]{
		Op: "vision.analyze",
		Send: func(ctx context.Context) (string, error) {
			return p.vision.Analyze(ctx, provider.VisionRequest{
				ImageURL: frame.ImageURL,
				Prompt:   visionPrompt,
			})
		},
		Parse: func(raw string) (domain.FrameAnalysis, error) {
			return parseAnalysis(frame.ID, raw)
		},
		Empty: retry.BlankString,
	}

	out := retry.Execute(ctx, p.executor, call, p.policy)
	switch out.Kind {
	case retry.KindSuccess:
		return out.Payload
	case retry.KindSkip:
		return domain.SkippedFrameAnalysis(frame.ID, out.Reason)
	default:
		p.logger.WarnContext(ctx, "frame analysis failed",
			slog.Int64("frame_id", frame.ID),
			slog.String("reason", out.Reason),
			slog.String("error", redact.Error(out.Err)))
		return domain.FailedFrameAnalysis(frame.ID, out.Reason)
	}
}

type visionResponse struct {
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	QualityScore int      `json:"quality_score"`
	Description  string   `json:"description"`
}

func parseAnalysis(frameID int64, raw string) (domain.FrameAnalysis, error) {
	var resp visionResponse
	if err := jsonextract.Decode(raw, &resp); err != nil {
		return domain.FrameAnalysis{}, err
	}
	return domain.NewFrameAnalysis(frameID, resp.Category, resp.Tags, resp.QualityScore, resp.Description)
}

func validateBatch(frames []domain.Frame) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, ErrEmptyBatch)
	}
	seen := make(map[int64]struct{}, len(frames))
	for _, f := range frames {
		if err := f.Validate(); err != nil {
			return err
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("%w: duplicate frame id %d", domain.ErrValidation, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}
