package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ObjectStore reads and writes whole objects. Every error it returns wraps
// domain.ErrStorage.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) (string, error)
}

// S3API is the subset of *s3.Client used by the S3 object store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3ObjectStore struct {
	client S3API
}

func NewS3ObjectStore(client S3API) ObjectStore {
	return &s3ObjectStore{client: client}
}

func (s *s3ObjectStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get s3://%s/%s: %s", domain.ErrStorage, bucket, key, APIErrorMessage(err))
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read s3://%s/%s: %v", domain.ErrStorage, bucket, key, err)
	}
	return data, nil
}

func (s *s3ObjectStore) PutObject(ctx context.Context, bucket, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put s3://%s/%s: %s", domain.ErrStorage, bucket, key, APIErrorMessage(err))
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

// APIErrorMessage returns the remote error code and message when err carries
// an AWS API error, and err.Error() otherwise.
func APIErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return apiErr.ErrorCode() + ": " + msg
		}
		return apiErr.ErrorCode()
	}
	return err.Error()
}

// localObjectStore keeps objects under rootDir/<bucket>/<key>.
type localObjectStore struct {
	rootDir string
}

func NewLocalObjectStore(rootDir string) ObjectStore {
	return &localObjectStore{rootDir: rootDir}
}

func (u *localObjectStore) path(bucket, key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(bucket, "/") || bucket == "" || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: invalid object location %q/%q", domain.ErrStorage, bucket, key)
	}
	return filepath.Join(u.rootDir, bucket, clean), nil
}

func (u *localObjectStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	src, err := u.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %v", domain.ErrStorage, bucket, key, err)
	}
	return data, nil
}

func (u *localObjectStore) PutObject(ctx context.Context, bucket, key, contentType string, data []byte) (string, error) {
	dst, err := u.path(bucket, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	abs, _ := filepath.Abs(dst)
	return "file://" + abs, nil
}
