package providers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

func TestLocalObjectStorePutObject(t *testing.T) {
	tmpDir := t.TempDir()

	store := NewLocalObjectStore(tmpDir)
	ctx := context.Background()

	url, err := store.PutObject(ctx, "anime", "Luffy_quote_20240101_000000.jpg", "image/jpeg", []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Fatalf("Expected file:// URL, got %q", url)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "anime", "Luffy_quote_20240101_000000.jpg"))
	if err != nil {
		t.Fatalf("Failed to read uploaded file: %v", err)
	}
	if string(content) != "jpeg bytes" {
		t.Errorf("Expected content 'jpeg bytes', got %s", string(content))
	}
}

func TestLocalObjectStoreRoundTripNested(t *testing.T) {
	store := NewLocalObjectStore(t.TempDir())
	ctx := context.Background()

	if _, err := store.PutObject(ctx, "anime", "deep/nested/quotes.csv", "text/csv", []byte("Character,Quote\n")); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	got, err := store.GetObject(ctx, "anime", "deep/nested/quotes.csv")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if string(got) != "Character,Quote\n" {
		t.Errorf("GetObject = %q", got)
	}
}

func TestLocalObjectStoreKeyStaysInsideBucket(t *testing.T) {
	root := t.TempDir()
	store := NewLocalObjectStore(root)

	if _, err := store.PutObject(context.Background(), "anime", "../../escape.txt", "text/plain", []byte("x")); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "anime", "escape.txt")); err != nil {
		t.Fatalf("expected object to be written inside the bucket dir: %v", err)
	}
}

func TestLocalObjectStoreMissingObject(t *testing.T) {
	store := NewLocalObjectStore(t.TempDir())

	_, err := store.GetObject(context.Background(), "anime", "missing.csv")
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("Expected ErrStorage, got %v", err)
	}
}

type fakeS3 struct {
	getBody []byte
	getErr  error
	putErr  error

	putInput *s3.PutObjectInput
	putBody  []byte
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.getBody))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.putInput = in
	f.putBody, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3ObjectStoreGetObject(t *testing.T) {
	store := NewS3ObjectStore(&fakeS3{getBody: []byte("Character,Quote\n")})

	got, err := store.GetObject(context.Background(), "anime", "quotes.csv")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if string(got) != "Character,Quote\n" {
		t.Errorf("GetObject = %q", got)
	}
}

func TestS3ObjectStoreTranslatesAPIErrors(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist."}
	store := NewS3ObjectStore(&fakeS3{getErr: apiErr, putErr: apiErr})
	ctx := context.Background()

	_, err := store.GetObject(ctx, "anime", "quotes.csv")
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("Expected ErrStorage, got %v", err)
	}
	if !strings.Contains(err.Error(), "NoSuchKey: The specified key does not exist.") {
		t.Errorf("Expected remote message in error, got %v", err)
	}

	_, err = store.PutObject(ctx, "anime", "a.jpg", "image/jpeg", []byte{1})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("Expected ErrStorage, got %v", err)
	}
}

func TestS3ObjectStorePutObject(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3ObjectStore(fake)

	url, err := store.PutObject(context.Background(), "anime", "a.jpg", "image/jpeg", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if url != "s3://anime/a.jpg" {
		t.Errorf("url = %q", url)
	}
	if *fake.putInput.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q", *fake.putInput.ContentType)
	}
	if *fake.putInput.ContentLength != 3 {
		t.Errorf("ContentLength = %d", *fake.putInput.ContentLength)
	}
	if !bytes.Equal(fake.putBody, []byte{1, 2, 3}) {
		t.Errorf("body = %v", fake.putBody)
	}
}

func TestAPIErrorMessagePlainError(t *testing.T) {
	if got := APIErrorMessage(errors.New("dial tcp: timeout")); got != "dial tcp: timeout" {
		t.Errorf("APIErrorMessage() = %q", got)
	}
}

func TestNewRedisProvider(t *testing.T) {
	client := NewRedisProvider("localhost:6379", "password")

	if client == nil {
		t.Fatal("Expected redis client to be non-nil")
	}

	defer client.Close()
}
