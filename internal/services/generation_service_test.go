package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
)

type fakeInvoker struct {
	body []byte
	err  error

	calls       int
	input       *bedrockruntime.InvokeModelInput
	hadDeadline bool
	deadline    time.Time
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.calls++
	f.input = in
	f.deadline, f.hadDeadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestGenerationServiceReturnsDecodedImage(t *testing.T) {
	inv := &fakeInvoker{body: []byte(`{"images":["AQID"]}`)}
	svc := NewGenerationService(inv, 300*time.Second, nil)

	req := domain.NewGenerationRequest("Please generate colorful picture of Naruto saying Believe it!", domain.DefaultImageGenerationConfig())
	got, err := svc.Generate(context.Background(), "amazon.nova-canvas-v1:0", req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("Generate() = %v, want [1 2 3]", got)
	}

	if inv.calls != 1 {
		t.Errorf("InvokeModel called %d times, want 1", inv.calls)
	}
	if *inv.input.ModelId != "amazon.nova-canvas-v1:0" {
		t.Errorf("ModelId = %q", *inv.input.ModelId)
	}
	if *inv.input.ContentType != "application/json" || *inv.input.Accept != "application/json" {
		t.Errorf("ContentType=%q Accept=%q", *inv.input.ContentType, *inv.input.Accept)
	}
	var sent domain.GenerationRequest
	if err := json.Unmarshal(inv.input.Body, &sent); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if sent != req {
		t.Errorf("request body = %+v, want %+v", sent, req)
	}
	if !inv.hadDeadline {
		t.Fatal("expected the invocation to carry a deadline")
	}
	if remaining := time.Until(inv.deadline); remaining < 290*time.Second || remaining > 300*time.Second {
		t.Errorf("deadline in %v, want ~300s", remaining)
	}
}

func TestGenerationServiceSurfacesAPIErrors(t *testing.T) {
	inv := &fakeInvoker{err: &smithy.GenericAPIError{Code: "ValidationException", Message: "blocked by content filters"}}
	svc := NewGenerationService(inv, time.Minute, nil)

	_, err := svc.Generate(context.Background(), "m", domain.NewGenerationRequest("p", domain.DefaultImageGenerationConfig()))
	if !errors.Is(err, domain.ErrImageGeneration) {
		t.Fatalf("Generate() error = %v, want ErrImageGeneration", err)
	}
	if !strings.Contains(err.Error(), "blocked by content filters") {
		t.Errorf("expected remote message in %v", err)
	}
	if inv.calls != 1 {
		t.Errorf("InvokeModel called %d times, want exactly 1 (no retries)", inv.calls)
	}
}

func TestDecodeGenerationResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []byte
		wantErr error
	}{
		{"single image", `{"images":["AQID"]}`, []byte{1, 2, 3}, nil},
		{"first of many", `{"images":["AQID","BAUG"]}`, []byte{1, 2, 3}, nil},
		{"null error with image", `{"images":["AQID"],"error":null}`, []byte{1, 2, 3}, nil},
		{"empty error with image", `{"images":["AQID"],"error":""}`, []byte{1, 2, 3}, nil},
		{"error only", `{"error":"content policy violation"}`, nil, domain.ErrImageGeneration},
		{"error wins over undecodable image", `{"images":["%%%not-base64"],"error":"content policy violation"}`, nil, domain.ErrImageGeneration},
		{"neither field", `{}`, nil, domain.ErrMalformedResponse},
		{"empty images", `{"images":[]}`, nil, domain.ErrMalformedResponse},
		{"bad base64", `{"images":["%%%"]}`, nil, domain.ErrMalformedResponse},
		{"not json", `<html>`, nil, domain.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeGenerationResponse([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if got != nil {
					t.Errorf("expected no image bytes, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeGenerationResponseCarriesRemoteDetail(t *testing.T) {
	_, err := DecodeGenerationResponse([]byte(`{"error":"content policy violation"}`))
	if err == nil || !strings.Contains(err.Error(), "content policy violation") {
		t.Fatalf("error = %v, want remote detail", err)
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		t.Error("error response must not be reported as malformed")
	}
}
