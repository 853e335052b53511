package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/osvaldoandrade/quotegen/internal/metrics"
	"github.com/osvaldoandrade/quotegen/internal/repository"
	"github.com/osvaldoandrade/quotegen/internal/tracing"
	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// JobConfig names where a run reads from and writes to.
type JobConfig struct {
	Bucket       string
	OutputBucket string
	FileName     string
	ModelID      string
	Image        domain.ImageGenerationConfig
}

// PromptPreview is the outcome of the first three stages of a run.
type PromptPreview struct {
	Row      domain.Row `json:"row"`
	Index    int        `json:"index"`
	RowCount int        `json:"rowCount"`
	Prompt   string     `json:"prompt"`
}

type JobService interface {
	// Run executes the whole pipeline once. The result is always non-nil; on
	// failure it is the failure variant and the error is returned as well.
	Run(ctx context.Context) (*domain.RunResult, error)
	// Preview loads the dataset, selects a row and builds its prompt without
	// invoking the model.
	Preview(ctx context.Context) (*PromptPreview, error)
}

type JobOption func(*jobService)

// WithRunRepository records every finished run in repo.
func WithRunRepository(repo repository.RunRepository) JobOption {
	return func(s *jobService) { s.runs = repo }
}

// WithNotifier publishes every finished run through n.
func WithNotifier(n NotifierService) JobOption {
	return func(s *jobService) { s.notifier = n }
}

// WithIDGenerator overrides the run ID source.
func WithIDGenerator(newID func() string) JobOption {
	return func(s *jobService) { s.newID = newID }
}

type jobService struct {
	cfg       JobConfig
	dataset   repository.DatasetRepository
	selector  RowSelector
	generator GenerationService
	publisher PublisherService
	runs      repository.RunRepository
	notifier  NotifierService
	logger    *slog.Logger
	now       func() time.Time
	loc       *time.Location
	newID     func() string
}

func NewJobService(cfg JobConfig, dataset repository.DatasetRepository, selector RowSelector, generator GenerationService, publisher PublisherService, logger *slog.Logger, now func() time.Time, loc *time.Location, opts ...JobOption) JobService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	if cfg.OutputBucket == "" {
		cfg.OutputBucket = cfg.Bucket
	}
	s := &jobService{
		cfg:       cfg,
		dataset:   dataset,
		selector:  selector,
		generator: generator,
		publisher: publisher,
		logger:    logger,
		now:       now,
		loc:       loc,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *jobService) Run(ctx context.Context) (*domain.RunResult, error) {
	rec := &domain.RunResult{
		RunID:     s.newID(),
		StartedAt: s.now().In(s.loc),
	}
	logger := s.logger.With("run_id", rec.RunID)

	ctx, span := tracing.Start(ctx, "quotegen.run",
		trace.WithAttributes(
			attribute.String("quotegen.run_id", rec.RunID),
			attribute.String("quotegen.model_id", s.cfg.ModelID),
			attribute.String("quotegen.dataset", s.cfg.Bucket+"/"+s.cfg.FileName),
		),
	)
	defer span.End()

	err := s.run(ctx, logger, rec)
	if err != nil {
		rec.Fail(err, s.now().In(s.loc))
		tracing.Fail(span, err)
		logger.Error("run failed", "error_kind", rec.ErrorKind, "err", err)
	} else {
		metrics.LastSuccessTimestamp.Set(float64(rec.CompletedAt.Unix()))
		logger.Info("run succeeded", "bucket", rec.Bucket, "key", rec.ArtifactKey, "character", rec.Character)
	}
	metrics.RunsTotal.WithLabelValues(string(rec.Status), string(rec.ErrorKind)).Inc()

	s.record(ctx, logger, *rec)
	return rec, err
}

func (s *jobService) run(ctx context.Context, logger *slog.Logger, rec *domain.RunResult) error {
	preview, err := s.preview(ctx, logger)
	if err != nil {
		return err
	}
	row := preview.Row
	rec.Character = row.Character
	rec.Quote = row.Quote
	rec.Prompt = preview.Prompt

	start := time.Now()
	image, err := s.generator.Generate(ctx, s.cfg.ModelID, domain.NewGenerationRequest(preview.Prompt, s.cfg.Image))
	metrics.ObserveStage("generate", start)
	if err != nil {
		return err
	}
	metrics.ImageSizeBytes.Observe(float64(len(image)))

	start = time.Now()
	key, err := s.publisher.Publish(ctx, s.cfg.OutputBucket, row.Character, image, s.now().In(s.loc))
	metrics.ObserveStage("publish", start)
	if err != nil {
		return err
	}

	rec.Succeed(s.cfg.OutputBucket, key, len(image), s.now().In(s.loc))
	return nil
}

func (s *jobService) Preview(ctx context.Context) (*PromptPreview, error) {
	return s.preview(ctx, s.logger)
}

func (s *jobService) preview(ctx context.Context, logger *slog.Logger) (*PromptPreview, error) {
	ctx, span := tracing.Start(ctx, "quotegen.load_dataset",
		trace.WithAttributes(
			attribute.String("quotegen.bucket", s.cfg.Bucket),
			attribute.String("quotegen.key", s.cfg.FileName),
		),
	)
	defer span.End()

	start := time.Now()
	rows, err := s.dataset.Load(ctx, s.cfg.Bucket, s.cfg.FileName)
	metrics.ObserveStage("load", start)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	metrics.DatasetRows.Set(float64(len(rows)))
	span.SetAttributes(attribute.Int("quotegen.dataset.rows", len(rows)))

	row, idx, err := s.selector.Select(rows)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	logger.Info("row selected", "index", idx, "rows", len(rows), "character", row.Character)

	return &PromptPreview{
		Row:      row,
		Index:    idx,
		RowCount: len(rows),
		Prompt:   BuildPrompt(row),
	}, nil
}

// record hands the finished run to the ledger and notifier. Both are best
// effort: their failures are logged and never change the run's outcome.
func (s *jobService) record(ctx context.Context, logger *slog.Logger, rec domain.RunResult) {
	ctx = context.WithoutCancel(ctx)
	if s.runs != nil {
		if err := s.runs.Save(ctx, rec); err != nil {
			logger.Warn("run ledger save failed", "err", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, rec); err != nil {
			logger.Warn("result notification failed", "err", err)
		}
	}
}
