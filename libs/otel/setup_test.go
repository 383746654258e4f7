package otelx

import "testing"

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "")

	cfg := ConfigFromEnv("task-service")
	if !cfg.Enabled {
		t.Fatal("expected tracing enabled by default")
	}
	if cfg.ServiceName != "task-service" {
		t.Fatalf("service name: got %q", cfg.ServiceName)
	}
	if cfg.OTLPEndpoint != "otel-collector:4317" {
		t.Fatalf("endpoint default: got %q", cfg.OTLPEndpoint)
	}
	if cfg.SampleRatio != 1.0 {
		t.Fatalf("sample ratio default: got %v", cfg.SampleRatio)
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " collector.internal:4317 ")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")

	cfg := ConfigFromEnv("user-service")
	if cfg.Enabled {
		t.Fatal("expected tracing disabled")
	}
	if cfg.OTLPEndpoint != "collector.internal:4317" {
		t.Fatalf("endpoint: got %q", cfg.OTLPEndpoint)
	}
	if cfg.SampleRatio != 0.25 {
		t.Fatalf("sample ratio: got %v", cfg.SampleRatio)
	}
}

func TestConfigFromEnv_BadRatioFallsBack(t *testing.T) {
	t.Setenv("OTEL_SAMPLING_RATIO", "nope")
	if cfg := ConfigFromEnv("svc"); cfg.SampleRatio != 1.0 {
		t.Fatalf("expected fallback ratio, got %v", cfg.SampleRatio)
	}
	t.Setenv("OTEL_SAMPLING_RATIO", "1.5")
	if cfg := ConfigFromEnv("svc"); cfg.SampleRatio != 1.0 {
		t.Fatalf("out-of-range ratio must fall back, got %v", cfg.SampleRatio)
	}
}
