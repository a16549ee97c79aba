package observability

import (
	"context"
	"testing"
)

func TestHeadersParsing(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "api-key=abc, bad, x=, team = editor")
	h := headers()
	if len(h) != 2 || h["api-key"] != "abc" || h["team"] != "editor" {
		t.Fatalf("headers: %v", h)
	}
}

func TestSampleRatioClamps(t *testing.T) {
	cases := map[string]float64{"": 1, "0.25": 0.25, "7": 1, "-1": 0, "nope": 1}
	for in, want := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", in)
		if got := sampleRatio(); got != want {
			t.Fatalf("sampleRatio(%q): want=%v got=%v", in, want, got)
		}
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	shutdown := InitOTel(context.Background(), nil, OtelConfig{ServiceName: "test"})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
