package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/osvaldoandrade/quotegen/pkg/config"
	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type stubInvoker struct {
	body []byte
}

func (s *stubInvoker) InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	return &bedrockruntime.InvokeModelOutput{Body: s.body}, nil
}

type captureNotifier struct {
	recs []domain.RunResult
}

func (c *captureNotifier) Notify(ctx context.Context, rec domain.RunResult) error {
	c.recs = append(c.recs, rec)
	return nil
}

func localConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfigOptional("")
	if err != nil {
		t.Fatalf("LoadConfigOptional: %v", err)
	}
	cfg.StorageBackend = config.StorageBackendLocal
	cfg.LocalStorageDir = root
	cfg.Bucket = "anime"
	cfg.OutputBucket = "anime"
	cfg.FileName = "anime-quotes.csv"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func writeDataset(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, "anime")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "anime-quotes.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestApplicationRunLocal(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, "Character,Quote\nLuffy,I'm gonna be King of the Pirates!\n")

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()

	cfg := localConfig(t, root)
	cfg.RedisAddr = mr.Addr()

	image := bytes.Repeat([]byte{0xAB}, 100)
	notifier := &captureNotifier{}
	var logs bytes.Buffer
	ctx := context.Background()

	application, err := NewApplication(ctx, cfg,
		WithModelInvoker(&stubInvoker{body: []byte(`{"images":["` + base64.StdEncoding.EncodeToString(image) + `"]}`)}),
		WithNotifier(notifier),
		WithRandom(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC) }),
		WithLogWriter(&logs),
	)
	if err != nil {
		t.Fatalf("NewApplication() error = %v", err)
	}
	defer application.Close(ctx)

	rec, err := application.Job.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rec.ArtifactKey != "Luffy_quote_20240501_123045.jpg" {
		t.Errorf("ArtifactKey = %q", rec.ArtifactKey)
	}

	written, err := os.ReadFile(filepath.Join(root, "anime", rec.ArtifactKey))
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if !bytes.Equal(written, image) {
		t.Error("artifact bytes differ from generated image")
	}

	if application.Runs == nil {
		t.Fatal("expected run ledger to be configured")
	}
	recent, err := application.Runs.Recent(ctx, 5)
	if err != nil || len(recent) != 1 || recent[0].RunID != rec.RunID {
		t.Errorf("ledger Recent() = %+v, %v", recent, err)
	}
	if len(notifier.recs) != 1 {
		t.Errorf("notifier received %d results", len(notifier.recs))
	}
	if !strings.Contains(logs.String(), `"service":"quotegen"`) || !strings.Contains(logs.String(), `"run_id":"`+rec.RunID+`"`) {
		t.Errorf("expected structured logs with service and run_id, got:\n%s", logs.String())
	}
}

func TestApplicationRunLocalMissingDataset(t *testing.T) {
	root := t.TempDir()
	cfg := localConfig(t, root)
	ctx := context.Background()

	application, err := NewApplication(ctx, cfg,
		WithModelInvoker(&stubInvoker{body: []byte(`{}`)}),
		WithLogWriter(&bytes.Buffer{}),
	)
	if err != nil {
		t.Fatalf("NewApplication() error = %v", err)
	}
	defer application.Close(ctx)

	rec, err := application.Job.Run(ctx)
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("Run() error = %v, want ErrStorage", err)
	}
	if rec.ErrorKind != domain.KindStorage || rec.StatusCode != 500 {
		t.Errorf("Run() = %+v", rec)
	}
	if application.Runs != nil {
		t.Error("ledger must be off without redisAddr")
	}
}
