// Package cli implements the imagegen command-line interface.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/config"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/media/encoder"
	"github.com/feral-file/ff-appimages/internal/media/processor"
	"github.com/feral-file/ff-appimages/internal/media/rasterizer"
	"github.com/feral-file/ff-appimages/internal/media/source"
	"github.com/feral-file/ff-appimages/internal/media/transformer"
	"github.com/feral-file/ff-appimages/internal/registry"
)

// CLI holds shared state for all commands.
type CLI struct {
	out        io.Writer
	fs         adapter.FileSystem
	json       adapter.JSON
	clock      adapter.Clock
	configFile string
	envPath    string
	verbose    bool
}

// New creates a new CLI writing command output to out.
func New(out io.Writer) *CLI {
	return &CLI{
		out:   out,
		fs:    adapter.NewFileSystem(),
		json:  adapter.NewJSON(),
		clock: adapter.NewClock(),
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "imagegen",
		Short:         "imagegen renders app icons and splash screens from one source image",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to configuration file")
	root.PersistentFlags().StringVar(&c.envPath, "env", "config/", "path to environment files")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.platformsCommand())

	return root
}

// loadConfig loads the generator configuration and initializes logging
func (c *CLI) loadConfig() (*config.GeneratorConfig, error) {
	cfg, err := config.LoadGeneratorConfig(c.configFile, c.envPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Initialize(logger.Config{
		Debug:     cfg.Debug || c.verbose,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "imagegen",
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// pipeline is the set of components one command run needs
type pipeline struct {
	registry    registry.ProfileRegistry
	transformer transformer.Transformer
	processor   processor.Processor
}

// newPipeline wires the rendition pipeline from configuration
func (c *CLI) newPipeline(cfg *config.GeneratorConfig) (*pipeline, error) {
	profiles, err := registry.LoadProfiles(c.fs, c.json, cfg.ProfilesDir)
	if err != nil {
		return nil, err
	}

	codec := adapter.NewImageCodec()
	loader := source.NewLoader(codec, &source.Config{MaxDecodedPixels: cfg.Media.MaxDecodedPixels})
	svgRasterizer := rasterizer.NewRasterizer(adapter.NewResvgClient(), &rasterizer.Config{Backend: cfg.Media.VectorBackend})
	imageEncoder := encoder.NewEncoder(codec, &encoder.Config{JPEGQuality: cfg.Media.JPEGQuality})
	t := transformer.NewTransformer(cfg.Media, svgRasterizer, imageEncoder)

	// Archives are written straight to the output file, nothing is stored
	p := processor.NewProcessor(
		processor.Config{
			DefaultPadding:  cfg.Media.DefaultPadding,
			DefaultPlatform: cfg.DefaultPlatform,
			FailFast:        cfg.Media.FailFast,
		},
		loader,
		profiles,
		t,
		nil,
		c.json,
		c.clock,
	)

	return &pipeline{
		registry:    profiles,
		transformer: t,
		processor:   p,
	}, nil
}
