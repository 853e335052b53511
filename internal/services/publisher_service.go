package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/osvaldoandrade/quotegen/internal/providers"
	"github.com/osvaldoandrade/quotegen/internal/tracing"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	ArtifactContentType = "image/jpeg"
	timestampLayout     = "20060102_150405"
)

// ArtifactKey names the stored image: {character}_quote_{YYYYMMDD_HHMMSS}.jpg.
func ArtifactKey(character string, at time.Time) string {
	return fmt.Sprintf("%s_quote_%s.jpg", character, at.Format(timestampLayout))
}

type PublisherService interface {
	// Publish uploads image unchanged and returns the object key.
	Publish(ctx context.Context, bucket, character string, image []byte, at time.Time) (string, error)
}

type publisherService struct {
	store  providers.ObjectStore
	logger *slog.Logger
}

func NewPublisherService(store providers.ObjectStore, logger *slog.Logger) PublisherService {
	if logger == nil {
		logger = slog.Default()
	}
	return &publisherService{store: store, logger: logger}
}

func (s *publisherService) Publish(ctx context.Context, bucket, character string, image []byte, at time.Time) (string, error) {
	key := ArtifactKey(character, at)
	ctx, span := tracing.Start(ctx, "quotegen.publish",
		trace.WithAttributes(
			attribute.String("quotegen.bucket", bucket),
			attribute.String("quotegen.key", key),
			attribute.Int("quotegen.image.bytes", len(image)),
		),
	)
	defer span.End()

	if mt := mimetype.Detect(image); !mt.Is(ArtifactContentType) {
		s.logger.Warn("image payload is not JPEG; uploading bytes unchanged", "detected", mt.String(), "key", key)
	}

	url, err := s.store.PutObject(ctx, bucket, key, ArtifactContentType, image)
	if err != nil {
		tracing.Fail(span, err)
		return "", err
	}
	s.logger.Info("image uploaded", "url", url, "bytes", len(image))
	return key, nil
}
