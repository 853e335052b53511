package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/osvaldoandrade/quotegen/internal/providers"
	"github.com/osvaldoandrade/quotegen/internal/tracing"
	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const jsonContentType = "application/json"

// ModelInvoker is the subset of *bedrockruntime.Client used for generation.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type GenerationService interface {
	// Generate invokes modelID once and returns the first image's raw bytes.
	Generate(ctx context.Context, modelID string, req domain.GenerationRequest) ([]byte, error)
}

type generationService struct {
	client  ModelInvoker
	timeout time.Duration
	logger  *slog.Logger
}

func NewGenerationService(client ModelInvoker, timeout time.Duration, logger *slog.Logger) GenerationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &generationService{client: client, timeout: timeout, logger: logger}
}

func (s *generationService) Generate(ctx context.Context, modelID string, req domain.GenerationRequest) ([]byte, error) {
	ctx, span := tracing.Start(ctx, "quotegen.generate",
		trace.WithAttributes(
			attribute.String("quotegen.model_id", modelID),
			attribute.Int("quotegen.image.width", req.ImageGenerationConfig.Width),
			attribute.Int("quotegen.image.height", req.ImageGenerationConfig.Height),
		),
	)
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		tracing.Fail(span, err)
		return nil, fmt.Errorf("marshal generation request: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Info("generating image", "model_id", modelID)
	out, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String(jsonContentType),
		Accept:      aws.String(jsonContentType),
	})
	if err != nil {
		err = fmt.Errorf("%w: invoke %s: %s", domain.ErrImageGeneration, modelID, providers.APIErrorMessage(err))
		tracing.Fail(span, err)
		return nil, err
	}

	image, err := DecodeGenerationResponse(out.Body)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("quotegen.image.bytes", len(image)))
	s.logger.Info("generated image", "model_id", modelID, "bytes", len(image))
	return image, nil
}

// DecodeGenerationResponse extracts the first image from a model response
// body. A non-empty error field wins over any images and nothing is decoded.
func DecodeGenerationResponse(body []byte) ([]byte, error) {
	var resp domain.GenerationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrMalformedResponse, err)
	}
	if resp.HasError() {
		return nil, fmt.Errorf("%w: %s", domain.ErrImageGeneration, *resp.Error)
	}
	if len(resp.Images) == 0 {
		return nil, fmt.Errorf("%w: neither images nor error present", domain.ErrMalformedResponse)
	}
	image, err := base64.StdEncoding.DecodeString(resp.Images[0])
	if err != nil {
		return nil, fmt.Errorf("%w: image base64: %v", domain.ErrMalformedResponse, err)
	}
	return image, nil
}
