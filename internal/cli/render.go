package cli

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/config"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/downloader"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/media/processor"
)

const defaultOutput = "AppImages.zip"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	input    string  // source image path
	output   string  // archive path
	platform string  // profile list name, empty for the configured default
	padding  float64 // padding fraction, only used when the flag is set
	color    string  // background color or "transparent"
}

// renderCommand creates the render command that writes an archive for one source image.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{output: defaultOutput}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render every profile of a platform into a zip archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := &processor.Input{Platform: opts.platform}

			if cmd.Flags().Changed("padding") {
				if err := domain.ValidatePadding(opts.padding); err != nil {
					return err
				}
				input.Padding = &opts.padding
			}

			background, err := domain.ParseBackground(opts.color)
			if err != nil {
				return err
			}
			input.Background = background

			return c.runRender(cmd.Context(), &opts, input)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "source image path or http(s) URL (PNG, JPEG, GIF, BMP, TIFF, WebP or SVG)")
	cmd.Flags().StringVarP(&opts.output, "out", "o", opts.output, "output zip archive")
	cmd.Flags().StringVarP(&opts.platform, "platform", "p", "", "platform profile list (default from config)")
	cmd.Flags().Float64Var(&opts.padding, "padding", 0, "padding fraction between 0 and 1 (default from config)")
	cmd.Flags().StringVar(&opts.color, "color", "", "background color: hex, CSS name or transparent (default samples the image corner)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, opts *renderOpts, input *processor.Input) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	defer logger.Flush(2 * time.Second)

	p, err := c.newPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.transformer.Close() }()

	if err := c.readInput(ctx, cfg, opts.input, input); err != nil {
		return err
	}

	var buf bytes.Buffer
	report, err := p.processor.Generate(ctx, input, &buf)
	if err != nil {
		return err
	}

	// Write next to the target and move into place so a failed run leaves nothing behind
	tmp := opts.output + ".tmp"
	if err := c.fs.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := c.fs.Rename(tmp, opts.output); err != nil {
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}

	logger.InfoCtx(ctx, "Archive written",
		zap.String("output", opts.output),
		zap.String("platform", report.Platform),
		zap.Int("icons", len(report.Manifest.Icons)),
	)

	_, _ = fmt.Fprintf(c.out, "Wrote %d images for %s to %s\n", len(report.Manifest.Icons), report.Platform, opts.output)
	for _, f := range report.Failures {
		_, _ = fmt.Fprintf(c.out, "  failed %s (%s): %s\n", f.Name, f.Size, f.Error)
	}
	return nil
}

// readInput loads the source image from a local path or an http(s) URL
func (c *CLI) readInput(ctx context.Context, cfg *config.GeneratorConfig, path string, input *processor.Input) error {
	if downloader.IsRemote(path) {
		d := downloader.NewDownloader(adapter.NewHTTPClient(cfg.Download.Timeout), cfg.Download.MaxBytes)
		result, err := d.Download(ctx, path)
		if err != nil {
			return err
		}
		input.Data = result.Data
		input.ContentType = result.ContentType
		return nil
	}

	data, err := c.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	input.Data = data
	input.ContentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	return nil
}
