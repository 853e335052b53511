package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/osvaldoandrade/quotegen/internal/metrics"
	"github.com/osvaldoandrade/quotegen/internal/providers"
	"github.com/osvaldoandrade/quotegen/internal/repository"
	"github.com/osvaldoandrade/quotegen/internal/services"
	"github.com/osvaldoandrade/quotegen/internal/tracing"
	"github.com/osvaldoandrade/quotegen/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-redis/redis/v8"
)

type Application struct {
	Config *config.Config
	Logger *slog.Logger
	TZ     *time.Location
	Job    services.JobService
	Runs   repository.RunRepository

	TracingShutdown func(context.Context) error

	logWriter io.Writer
	store     providers.ObjectStore
	invoker   services.ModelInvoker
	notifier  services.NotifierService
	rng       *rand.Rand
	now       func() time.Time
	redis     *redis.Client
}

// ApplicationOption configures the Application
type ApplicationOption func(*Application) error

// WithObjectStore replaces the configured object store.
func WithObjectStore(store providers.ObjectStore) ApplicationOption {
	return func(app *Application) error {
		app.store = store
		return nil
	}
}

// WithModelInvoker replaces the Bedrock Runtime client.
func WithModelInvoker(invoker services.ModelInvoker) ApplicationOption {
	return func(app *Application) error {
		app.invoker = invoker
		return nil
	}
}

// WithNotifier replaces the SQS notifier.
func WithNotifier(n services.NotifierService) ApplicationOption {
	return func(app *Application) error {
		app.notifier = n
		return nil
	}
}

// WithRandom sets the row selection source.
func WithRandom(rng *rand.Rand) ApplicationOption {
	return func(app *Application) error {
		app.rng = rng
		return nil
	}
}

// WithClock sets the clock used for timestamps and artifact keys.
func WithClock(now func() time.Time) ApplicationOption {
	return func(app *Application) error {
		app.now = now
		return nil
	}
}

// WithLogWriter sends logs to w instead of stdout.
func WithLogWriter(w io.Writer) ApplicationOption {
	return func(app *Application) error {
		app.logWriter = w
		return nil
	}
}

func NewApplication(ctx context.Context, cfg *config.Config, opts ...ApplicationOption) (*Application, error) {
	app := &Application{
		Config:    cfg,
		logWriter: os.Stdout,
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.FixedZone("UTC", 0)
	}
	app.TZ = loc
	app.Logger = newLogger(cfg, app.logWriter)
	slog.SetDefault(app.Logger)

	shutdown, err := tracing.Setup(ctx, cfg.Tracing, app.Logger)
	if err != nil {
		return nil, err
	}
	app.TracingShutdown = shutdown

	var awsCfg aws.Config
	needAWS := (app.store == nil && cfg.StorageBackend == config.StorageBackendS3) ||
		app.invoker == nil ||
		(app.notifier == nil && cfg.ResultQueueURL != "")
	if needAWS {
		awsCfg, err = providers.NewAWSConfig(ctx, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
	}

	timeout := time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	if app.store == nil {
		app.store, err = providers.NewObjectStore(cfg.StorageBackend, providers.StoreConfig{
			AWS:      awsCfg,
			LocalDir: cfg.LocalStorageDir,
		})
		if err != nil {
			return nil, err
		}
	}
	if app.invoker == nil {
		app.invoker = providers.NewBedrockRuntimeClient(awsCfg, timeout)
	}
	if app.notifier == nil && cfg.ResultQueueURL != "" {
		app.notifier = services.NewSQSNotifier(providers.NewSQSClient(awsCfg), cfg.ResultQueueURL)
	}
	if app.rng == nil {
		app.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	jobOpts := []services.JobOption{}
	if cfg.RedisAddr != "" {
		app.redis = providers.NewRedisProvider(cfg.RedisAddr, cfg.RedisPassword)
		app.Runs = repository.NewRunRepository(app.redis)
		jobOpts = append(jobOpts, services.WithRunRepository(app.Runs))
	}
	if app.notifier != nil {
		jobOpts = append(jobOpts, services.WithNotifier(app.notifier))
	}

	app.Job = services.NewJobService(
		services.JobConfig{
			Bucket:       cfg.Bucket,
			OutputBucket: cfg.OutputBucket,
			FileName:     cfg.FileName,
			ModelID:      cfg.ModelID,
			Image:        cfg.Image,
		},
		repository.NewDatasetRepository(app.store),
		services.NewRowSelector(app.rng),
		services.NewGenerationService(app.invoker, timeout, app.Logger),
		services.NewPublisherService(app.store, app.Logger),
		app.Logger,
		app.now,
		loc,
		jobOpts...,
	)

	return app, nil
}

// Flush pushes metrics to the Pushgateway, when configured, and exports
// buffered spans. Clients stay open.
func (a *Application) Flush(ctx context.Context) {
	if a.Config.PushgatewayURL != "" {
		host, _ := os.Hostname()
		if err := metrics.Push(ctx, a.Config.PushgatewayURL, "quotegen", host); err != nil {
			a.Logger.Warn("metrics push failed", "err", err)
		}
	}
	if err := tracing.Flush(ctx); err != nil {
		a.Logger.Warn("trace flush failed", "err", err)
	}
}

// Close flushes traces and metrics and releases clients. It is safe to call
// more than once.
func (a *Application) Close(ctx context.Context) {
	a.Flush(ctx)
	if a.TracingShutdown != nil {
		_ = a.TracingShutdown(ctx)
		a.TracingShutdown = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler).With("service", "quotegen", "env", cfg.Env)
}
