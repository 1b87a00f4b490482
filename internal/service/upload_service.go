package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/edudash-api/internal/observability"
	cloud "github.com/noah-isme/edudash-api/pkg/cloudinary"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, folder, name string, reader io.Reader) (cloud.Asset, error)
}

// UploadService validates files and hands them to the file store.
type UploadService interface {
	UploadImage(ctx context.Context, folder string, file *multipart.FileHeader) (cloud.Asset, error)
	UploadDocument(ctx context.Context, folder, name string, payload []byte) (cloud.Asset, error)
}

type uploadService struct {
	storage FileStorage
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service. A nil storage makes every upload fail with ErrStorageUnavailable.
func NewUploadService(storage FileStorage, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &uploadService{
		storage: storage,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/edudash-api/internal/service/upload"),
	}
}

func (s *uploadService) UploadImage(ctx context.Context, folder string, file *multipart.FileHeader) (cloud.Asset, error) {
	ctx, span := s.tracer.Start(ctx, "upload.image")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return cloud.Asset{}, err
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		observability.UploadsTotal().WithLabelValues("image", "too_large").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return cloud.Asset{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return cloud.Asset{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return cloud.Asset{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadsTotal().WithLabelValues("image", "too_large").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return cloud.Asset{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("upload.detected_mime", detected.String()))
	if !mimetype.EqualsAny(detected.String(), allowedImageTypes...) {
		observability.UploadsTotal().WithLabelValues("image", "rejected_type").Inc()
		span.SetStatus(codes.Error, "type not allowed")
		return cloud.Asset{}, ErrUploadTypeNotAllowed
	}

	name := sanitizeFileName(file.Filename, detected.Extension())
	return s.store(ctx, span, "image", folder, name, buf.Bytes())
}

func (s *uploadService) UploadDocument(ctx context.Context, folder, name string, payload []byte) (cloud.Asset, error) {
	ctx, span := s.tracer.Start(ctx, "upload.document")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if int64(len(payload)) > s.maxSize*4 {
		observability.UploadsTotal().WithLabelValues("document", "too_large").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return cloud.Asset{}, ErrUploadTooLarge
	}

	return s.store(ctx, span, "document", folder, name, payload)
}

func (s *uploadService) store(ctx context.Context, span trace.Span, kind, folder, name string, payload []byte) (cloud.Asset, error) {
	if s.storage == nil {
		observability.UploadsTotal().WithLabelValues(kind, "unavailable").Inc()
		span.SetStatus(codes.Error, "storage unavailable")
		return cloud.Asset{}, ErrStorageUnavailable
	}

	span.SetAttributes(
		attribute.String("upload.folder", folder),
		attribute.String("upload.name", name),
		attribute.Int("upload.size_bytes", len(payload)),
	)

	asset, err := s.storage.Upload(ctx, folder, name, bytes.NewReader(payload))
	if err != nil {
		observability.UploadsTotal().WithLabelValues(kind, "failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		s.logger.Error().Err(err).Str("folder", folder).Str("name", name).Msg("upload failed")
		return cloud.Asset{}, err
	}

	observability.UploadsTotal().WithLabelValues(kind, "stored").Inc()
	span.SetStatus(codes.Ok, "stored")
	return asset, nil
}

func sanitizeFileName(name, fallbackExt string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = fallbackExt
	}
	return base + ext
}
