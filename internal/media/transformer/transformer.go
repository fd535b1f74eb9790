package transformer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-appimages/internal/config"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/media/encoder"
	"github.com/feral-file/ff-appimages/internal/media/rasterizer"
	"github.com/feral-file/ff-appimages/internal/media/resizer"
	"github.com/feral-file/ff-appimages/internal/media/source"
)

// ErrSkipped marks renditions that never ran because the batch was cancelled
var ErrSkipped = errors.New("rendition skipped")

// Request describes one batch: a single source rendered for every profile
type Request struct {
	Source     *source.Source
	Profiles   []domain.Profile
	Padding    float64
	Background domain.Background
}

// Result is the outcome of a single rendition
type Result struct {
	Profile domain.Profile
	Spec    domain.RenditionSpec

	// Data is the encoded rendition, nil when Err is set
	Data        []byte
	ContentType string

	Err error
}

// BatchError reports the renditions of a batch that failed
type BatchError struct {
	Total    int
	Failures []*Result
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s (%s): %v", f.Profile.Name, f.Profile.Size(), f.Err))
	}
	return fmt.Sprintf("%d of %d renditions failed: %s", len(e.Failures), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes each rendition error to errors.Is and errors.As
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Config is an alias to config.TransformConfig for convenience
type Config = config.TransformConfig

// Transformer renders a source into renditions
//
//go:generate mockgen -source=transformer.go -destination=../../mocks/transformer.go -package=mocks -mock_names=Transformer=MockTransformer
type Transformer interface {
	// Transform renders one rendition per profile on the bounded worker pool.
	// Results follow the profile order. When any rendition fails the error is a *BatchError
	// and the successful results are still returned.
	// This method is safe for concurrent use and enforces the configured worker concurrency
	Transform(ctx context.Context, req *Request) ([]*Result, error)

	// Render renders and encodes a single rendition on the calling goroutine
	Render(ctx context.Context, src *source.Source, spec domain.RenditionSpec) ([]byte, error)

	// Close gracefully shuts down the transformer and its worker pool
	Close() error
}

type transformer struct {
	config     Config
	pool       pond.ResultPool[*Result]
	rasterizer rasterizer.Rasterizer
	encoder    encoder.Encoder
}

// NewTransformer creates a new transformer with bounded worker pool
func NewTransformer(cfg Config, rasterizer rasterizer.Rasterizer, encoder encoder.Encoder) Transformer {
	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	// Create simple bounded worker pool that returns results
	pool := pond.NewResultPool[*Result](concurrency)

	return &transformer{
		config:     cfg,
		pool:       pool,
		rasterizer: rasterizer,
		encoder:    encoder,
	}
}

// Transform renders one rendition per profile
func (t *transformer) Transform(ctx context.Context, req *Request) ([]*Result, error) {
	if req == nil || req.Source == nil {
		return nil, fmt.Errorf("%w: request and source cannot be nil", domain.ErrInvalidInput)
	}
	if len(req.Profiles) == 0 {
		return nil, fmt.Errorf("%w: no profiles to render", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePadding(req.Padding); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Starting batch transformation",
		zap.String("kind", req.Source.Kind.String()),
		zap.Int("profiles", len(req.Profiles)),
		zap.Float64("padding", req.Padding),
		zap.String("background", req.Background.Mode.String()),
	)

	// Add timeout to context
	if t.config.RenderTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, t.config.RenderTimeout)
		defer cancelTimeout()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Submit to pool, one task per profile
	tasks := make([]pond.Result[*Result], len(req.Profiles))
	for i, profile := range req.Profiles {
		spec := profile.Spec(req.Padding, req.Background)
		tasks[i] = t.pool.SubmitErr(func() (*Result, error) {
			result := &Result{
				Profile:     profile,
				Spec:        spec,
				ContentType: spec.Format.ContentType(),
			}
			if err := ctx.Err(); err != nil {
				result.Err = fmt.Errorf("%w: %w", ErrSkipped, err)
				return result, nil
			}

			result.Data, result.Err = t.Render(ctx, req.Source, spec)
			if result.Err != nil && t.config.FailFast {
				cancel()
			}
			return result, nil
		})
	}

	results := make([]*Result, len(tasks))
	var failures []*Result
	for i, task := range tasks {
		result, err := task.Wait()
		if err != nil {
			// panics inside a task surface here
			spec := req.Profiles[i].Spec(req.Padding, req.Background)
			result = &Result{Profile: req.Profiles[i], Spec: spec, ContentType: spec.Format.ContentType(), Err: err}
		}
		results[i] = result

		if result.Err != nil {
			failures = append(failures, result)
			logger.WarnCtx(ctx, "Rendition failed",
				zap.String("profile", result.Profile.Name),
				zap.String("size", result.Profile.Size()),
				zap.Error(result.Err),
			)
		}
	}

	logger.InfoCtx(ctx, "Batch transformation completed",
		zap.Int("succeeded", len(results)-len(failures)),
		zap.Int("failed", len(failures)),
	)

	if len(failures) > 0 {
		return results, &BatchError{Total: len(results), Failures: failures}
	}
	return results, nil
}

// Render renders and encodes a single rendition
func (t *transformer) Render(ctx context.Context, src *source.Source, spec domain.RenditionSpec) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source cannot be nil", domain.ErrInvalidInput)
	}

	var (
		canvas *image.NRGBA
		err    error
	)
	switch src.Kind {
	case source.KindVector:
		canvas, err = t.rasterizer.Rasterize(ctx, src.Vector, spec)
	default:
		canvas, err = resizer.RenderSpec(src.Raster, spec)
	}
	if err != nil {
		return nil, err
	}

	return t.encoder.EncodeBytes(canvas, spec.Format)
}

// Close gracefully shuts down the transformer
func (t *transformer) Close() error {
	t.pool.StopAndWait()
	return nil
}
