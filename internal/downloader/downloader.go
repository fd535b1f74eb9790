package downloader

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
)

// DownloadResult is a fully read remote source image
type DownloadResult struct {
	Data        []byte
	ContentType string
}

// Downloader defines the interface for fetching remote source images
type Downloader interface {
	// Download fetches a source image from an http(s) URL
	Download(ctx context.Context, rawURL string) (*DownloadResult, error)
}

type downloader struct {
	httpClient adapter.HTTPClient
	maxBytes   int64
}

// NewDownloader creates a downloader rejecting bodies larger than maxBytes (0 = unlimited)
func NewDownloader(httpClient adapter.HTTPClient, maxBytes int64) Downloader {
	return &downloader{
		httpClient: httpClient,
		maxBytes:   maxBytes,
	}
}

// IsRemote reports whether input names an http(s) URL rather than a local path
func IsRemote(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Download fetches a source image from an http(s) URL
func (d *downloader) Download(ctx context.Context, rawURL string) (*DownloadResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not an http(s) URL: %q", domain.ErrInvalidInput, rawURL)
	}

	logger.InfoCtx(ctx, "Downloading source image", zap.String("url", rawURL))

	resp, err := d.httpClient.GetResponse(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.WarnCtx(ctx, "failed to close response body", zap.Error(err), zap.String("url", rawURL))
		}
	}()

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status code: %d", domain.ErrInvalidInput, resp.StatusCode)
	}

	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("%w: source is %d bytes, limit is %d", domain.ErrInvalidInput, resp.ContentLength, d.maxBytes)
	}

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("%w: source exceeds %d bytes", domain.ErrInvalidInput, d.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	logger.DebugCtx(ctx, "Download finished",
		zap.String("url", rawURL),
		zap.String("contentType", contentType),
		zap.Int("bytes", len(data)),
		zap.Int("status", resp.StatusCode),
		zap.String("proto", resp.Proto),
	)

	return &DownloadResult{
		Data:        data,
		ContentType: contentType,
	}, nil
}

