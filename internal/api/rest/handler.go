package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/media/processor"
	"github.com/feral-file/ff-appimages/internal/media/transformer"
	"github.com/feral-file/ff-appimages/internal/store"
)

const (
	// form fields of the upload request
	fieldFile     = "fileName"
	fieldPadding  = "padding"
	fieldColor    = "color"
	fieldPlatform = "platform"

	archiveFileName = "AppImages.zip"

	msgInvalidPadding = "Padding value invalid. Please input a number between 0 and 1"
	msgInvalidColor   = "Background Color value invalid. Please input a valid hex color."
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// GenerateImages renders the uploaded image for every profile of a platform and stores the archive
	// POST /api/image (multipart: fileName, padding, color, platform)
	GenerateImages(c *gin.Context)

	// DownloadImages streams a stored archive
	// GET /api/image/:id
	DownloadImages(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// Config holds handler limits
type Config struct {
	MaxUploadBytes int64
}

// handler implements the Handler interface
type handler struct {
	config    Config
	processor processor.Processor
	store     store.ArchiveStore
}

// NewHandler creates a new REST API handler
func NewHandler(cfg Config, proc processor.Processor, st store.ArchiveStore) Handler {
	return &handler{
		config:    cfg,
		processor: proc,
		store:     st,
	}
}

// generateResponse is the body of a successful upload
type generateResponse struct {
	Uri      string              `json:"Uri"`
	Failures []processor.Failure `json:"Failures,omitempty"`
}

// GenerateImages renders the uploaded image and stores the archive
func (h *handler) GenerateImages(c *gin.Context) {
	if h.config.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadBytes)
	}

	file, err := c.FormFile(fieldFile)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondPayloadTooLarge(c, "Image is too large", fmt.Sprintf("limit is %d bytes", maxErr.Limit))
			return
		}
		respondBadRequest(c, "Image file is required", err.Error())
		return
	}

	padding, err := parsePadding(c.PostForm(fieldPadding))
	if err != nil {
		respondBadRequest(c, msgInvalidPadding)
		return
	}

	background, err := domain.ParseBackground(c.PostForm(fieldColor))
	if err != nil {
		respondBadRequest(c, msgInvalidColor)
		return
	}

	f, err := file.Open()
	if err != nil {
		respondInternalError(c, err, "Failed to read uploaded image")
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		respondInternalError(c, err, "Failed to read uploaded image")
		return
	}

	report, err := h.processor.Process(c.Request.Context(), &processor.Input{
		Data:        data,
		ContentType: file.Header.Get("Content-Type"),
		Padding:     padding,
		Background:  background,
		Platform:    strings.TrimSpace(c.PostForm(fieldPlatform)),
	})
	if err != nil {
		h.respondProcessError(c, err, file.Filename)
		return
	}

	uri := "/api/image/" + report.ID
	c.Header("Location", uri)
	c.JSON(http.StatusCreated, generateResponse{
		Uri:      uri,
		Failures: report.Failures,
	})
}

// respondProcessError maps processing errors to HTTP responses
func (h *handler) respondProcessError(c *gin.Context, err error, fileName string) {
	ctx := c.Request.Context()

	var batchErr *transformer.BatchError
	switch {
	case errors.Is(err, domain.ErrUnknownPlatform):
		respondBadRequest(c, "Platform is not supported", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		respondBadRequest(c, "Image is invalid", err.Error())
	case errors.Is(err, domain.ErrDecode):
		respondUnsupportedMediaType(c, "Image format is not supported", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnCtx(ctx, "Image generation timed out", zap.String("file", fileName))
		respondTimeout(c, "Image generation timed out")
	case errors.As(err, &batchErr),
		errors.Is(err, domain.ErrCanvasTooSmall),
		errors.Is(err, domain.ErrNoIntrinsicSize),
		errors.Is(err, domain.ErrEncode):
		logger.WarnCtx(ctx, "Image generation failed", zap.String("file", fileName), zap.Error(err))
		respondRenditionError(c, "Failed to generate images", err.Error())
	default:
		logger.ErrorCtx(ctx, err, zap.String("file", fileName))
		respondInternalError(c, err, "Failed to generate images")
	}
}

// DownloadImages streams a stored archive
func (h *handler) DownloadImages(c *gin.Context) {
	id := c.Param("id")

	f, err := h.store.Open(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrArchiveNotFound) {
			respondNotFound(c, "Archive not found")
			return
		}
		logger.ErrorCtx(c.Request.Context(), err, zap.String("id", id))
		respondInternalError(c, err, "Failed to open archive")
		return
	}
	defer func() { _ = f.Close() }()

	size, err := f.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		respondInternalError(c, err, "Failed to read archive")
		return
	}

	c.DataFromReader(http.StatusOK, size, "application/octet-stream", f, map[string]string{
		"Content-Disposition": "attachment; filename=" + archiveFileName,
	})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// parsePadding parses the padding form value; an empty value keeps the default
func parsePadding(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	padding, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePadding(padding); err != nil {
		return nil, err
	}
	return &padding, nil
}
