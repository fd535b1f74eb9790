package downloader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/downloader"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/mocks"
)

func init() {
	// Initialize logger for testing
	_ = logger.Initialize(logger.Config{
		Debug: true,
	})
}

func newServer(t *testing.T) *httptest.Server {
	var unavailable atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/logo.svg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
		_, _ = w.Write([]byte(`<svg width="10" height="10"/>`))
	})
	mux.HandleFunc("/big.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	})
	mux.HandleFunc("/stream.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		for range 8 {
			_, _ = w.Write([]byte(strings.Repeat("x", 16)))
			w.(http.Flusher).Flush()
		}
	})
	mux.HandleFunc("/private.png", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/flaky.png", func(w http.ResponseWriter, r *http.Request) {
		if !unavailable.Swap(true) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDownload(t *testing.T) {
	srv := newServer(t)
	d := downloader.NewDownloader(adapter.NewHTTPClient(5*time.Second), 32)

	result, err := d.Download(context.Background(), srv.URL+"/logo.svg")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", result.ContentType)
	assert.Equal(t, []byte(`<svg width="10" height="10"/>`), result.Data)
}

func TestDownload_RetriesUnavailable(t *testing.T) {
	srv := newServer(t)
	d := downloader.NewDownloader(adapter.NewHTTPClient(5*time.Second), 0)

	result, err := d.Download(context.Background(), srv.URL+"/flaky.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), result.Data)
}

func TestDownload_Errors(t *testing.T) {
	srv := newServer(t)
	d := downloader.NewDownloader(adapter.NewHTTPClient(5*time.Second), 32)

	tests := []struct {
		name     string
		url      string
		is       error
		contains string
	}{
		{name: "not a url", url: "logo.png", is: domain.ErrInvalidInput},
		{name: "unsupported scheme", url: "ftp://example.com/logo.png", is: domain.ErrInvalidInput},
		{name: "not found", url: srv.URL + "/missing.png", is: domain.ErrInvalidInput, contains: "unexpected status code: 404"},
		{name: "forbidden", url: srv.URL + "/private.png", is: domain.ErrInvalidInput, contains: "unexpected status code: 403"},
		{name: "declared length over limit", url: srv.URL + "/big.png", is: domain.ErrInvalidInput},
		{name: "streamed body over limit", url: srv.URL + "/stream.png", is: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := d.Download(context.Background(), tt.url)
			require.Error(t, err)
			assert.Nil(t, result)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, downloader.IsRemote("https://example.com/logo.png"))
	assert.True(t, downloader.IsRemote("HTTP://example.com/logo.png"))
	assert.False(t, downloader.IsRemote("logo.png"))
	assert.False(t, downloader.IsRemote("/tmp/http/logo.png"))
}

func TestDownload_TransportError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHTTP := mocks.NewMockHTTPClient(ctrl)
	mockHTTP.EXPECT().
		GetResponse(gomock.Any(), "https://example.com/logo.png").
		Return(nil, errors.New("connection refused"))

	d := downloader.NewDownloader(mockHTTP, 0)
	_, err := d.Download(context.Background(), "https://example.com/logo.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download")
	assert.Contains(t, err.Error(), "connection refused")
}
