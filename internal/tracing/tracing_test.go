package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/osvaldoandrade/quotegen/pkg/config"
)

func TestSanitizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"collector:4317", "collector:4317"},
		{"collector:4317/", "collector:4317"},
		{"http://collector:4317", "collector:4317"},
		{"https://otel.example.com:443/v1/traces", "otel.example.com:443"},
	}
	for _, tt := range tests {
		if got := sanitizeEndpoint(tt.in); got != tt.want {
			t.Errorf("sanitizeEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}

	if err := Flush(context.Background()); err != nil {
		t.Errorf("Flush() error = %v", err)
	}

	ctx, span := Start(context.Background(), "test")
	Fail(span, errors.New("boom"))
	span.End()
	if ctx == nil {
		t.Fatal("Start returned nil context")
	}
}
