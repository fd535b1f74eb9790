package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/archive"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/media/source"
	"github.com/feral-file/ff-appimages/internal/media/transformer"
	"github.com/feral-file/ff-appimages/internal/registry"
	"github.com/feral-file/ff-appimages/internal/store"
)

// Input is one image generation request
type Input struct {
	// Data is the uploaded source image
	Data []byte
	// ContentType is the client declared content type, may be empty
	ContentType string
	// Padding is the padding fraction; nil uses the configured default
	Padding *float64
	// Background is the background policy; nil uses the per-source default
	// (sample the corner for rasters, transparent for documents)
	Background *domain.Background
	// Platform selects the profile list; empty uses the configured default
	Platform string
}

// Failure describes a profile that could not be rendered
type Failure struct {
	Name  string `json:"name"`
	Size  string `json:"size"`
	Error string `json:"error"`
}

// Report summarizes a generated archive
type Report struct {
	// ID is set once the archive is persisted
	ID       string
	Platform string
	Kind     source.Kind
	Manifest archive.Manifest
	Failures []Failure
}

// Config holds processor defaults
type Config struct {
	DefaultPadding  float64
	DefaultPlatform string
	// FailFast aborts the request when any profile fails
	FailFast bool
}

// Processor defines the interface for generating app image archives
//
//go:generate mockgen -source=processor.go -destination=../../mocks/processor.go -package=mocks -mock_names=Processor=MockProcessor
type Processor interface {
	// Generate renders every profile of the platform and writes the zip archive to w
	Generate(ctx context.Context, input *Input, w io.Writer) (*Report, error)

	// Process generates the archive and persists it, returning a report carrying its id
	Process(ctx context.Context, input *Input) (*Report, error)
}

// processor is the implementation of Processor
type processor struct {
	config      Config
	loader      source.Loader
	registry    registry.ProfileRegistry
	transformer transformer.Transformer
	store       store.ArchiveStore
	json        adapter.JSON
	clock       adapter.Clock
}

// NewProcessor creates a new Processor instance
func NewProcessor(
	cfg Config,
	loader source.Loader,
	registry registry.ProfileRegistry,
	transformer transformer.Transformer,
	st store.ArchiveStore,
	json adapter.JSON,
	clock adapter.Clock,
) Processor {
	return &processor{
		config:      cfg,
		loader:      loader,
		registry:    registry,
		transformer: transformer,
		store:       st,
		json:        json,
		clock:       clock,
	}
}

// Generate renders every profile of the platform and writes the zip archive to w
func (p *processor) Generate(ctx context.Context, input *Input, w io.Writer) (*Report, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", domain.ErrInvalidInput)
	}

	padding := p.config.DefaultPadding
	if input.Padding != nil {
		padding = *input.Padding
	}
	if err := domain.ValidatePadding(padding); err != nil {
		return nil, err
	}

	platform := input.Platform
	if platform == "" {
		platform = p.config.DefaultPlatform
	}

	// Step 1: Resolve the platform profiles
	profiles, err := p.registry.Profiles(platform)
	if err != nil {
		return nil, err
	}

	// Step 2: Decode the source
	src, err := p.loader.Load(ctx, input.Data, input.ContentType)
	if err != nil {
		return nil, err
	}

	background := defaultBackground(src.Kind)
	if input.Background != nil {
		background = *input.Background
	}

	logger.InfoCtx(ctx, "Generating app images",
		zap.String("platform", platform),
		zap.String("kind", src.Kind.String()),
		zap.Int("profiles", len(profiles)),
		zap.Float64("padding", padding),
		zap.String("background", background.Mode.String()),
	)

	// Step 3: Render every profile
	results, err := p.transformer.Transform(ctx, &transformer.Request{
		Source:     src,
		Profiles:   profiles,
		Padding:    padding,
		Background: background,
	})

	report := &Report{
		Platform: platform,
		Kind:     src.Kind,
	}

	if err != nil {
		var batchErr *transformer.BatchError
		if !errors.As(err, &batchErr) {
			return nil, fmt.Errorf("failed to render images: %w", err)
		}
		if p.config.FailFast || len(batchErr.Failures) == batchErr.Total {
			return nil, err
		}
		for _, f := range batchErr.Failures {
			report.Failures = append(report.Failures, Failure{
				Name:  f.Profile.Name,
				Size:  f.Profile.Size(),
				Error: f.Err.Error(),
			})
		}
	}

	// Step 4: Write the archive and manifest
	builder := archive.NewBuilder(w, p.json, p.clock)
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		if err := builder.Add(result.Profile, result.Data); err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", result.Profile.Name, err)
		}
	}
	if err := builder.Close(); err != nil {
		return nil, err
	}
	report.Manifest = builder.Manifest()

	return report, nil
}

// Process generates the archive and persists it
func (p *processor) Process(ctx context.Context, input *Input) (*Report, error) {
	var buf bytes.Buffer
	report, err := p.Generate(ctx, input, &buf)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	if err := p.store.Save(ctx, id, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to store archive: %w", err)
	}
	report.ID = id

	logger.InfoCtx(ctx, "App images generated",
		zap.String("id", id),
		zap.String("platform", report.Platform),
		zap.Int("icons", len(report.Manifest.Icons)),
		zap.Int("failures", len(report.Failures)),
		zap.Int("archiveBytes", buf.Len()),
	)

	return report, nil
}

// defaultBackground keeps the legacy fallbacks when no color was requested
func defaultBackground(kind source.Kind) domain.Background {
	if kind == source.KindVector {
		return domain.TransparentBackground()
	}
	return domain.SampleCornerBackground()
}
