package tracer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"content-crew/internal/infra/config"
)

func TestSetupInstallsNoopWhenOff(t *testing.T) {
	for _, cfg := range []config.TracerConfig{
		{Enabled: false, Exporter: "stdout"},
		{Enabled: true, Exporter: "noop"},
		{Enabled: true},
	} {
		shutdown, err := Setup(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Setup(%+v): %v", cfg, err)
		}
		if _, ok := otel.GetTracerProvider().(noop.TracerProvider); !ok {
			t.Errorf("Setup(%+v) installed %T", cfg, otel.GetTracerProvider())
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	}
}

func TestStdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := setup(config.TracerConfig{Enabled: true, Exporter: "stdout"}, &buf)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	_, span := StartSpan(context.Background(), "crew.run")
	span.SetAttributes(StringAttr("crew.agent", "Researcher Agent"), IntAttr("crew.turns", 3))
	RecordError(span, errors.New("max turns exceeded"))
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"crew.run", "Researcher Agent", "max turns exceeded", serviceName} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestSetupUnsupportedExporter(t *testing.T) {
	if _, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "jaeger"}); err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestMapAttrsSorted(t *testing.T) {
	attrs := MapAttrs("crew.trace.", map[string]string{
		"workflow_id":      "wf_1",
		"__trace_source__": "agent-builder",
	})
	if len(attrs) != 2 {
		t.Fatalf("len = %d, want 2", len(attrs))
	}
	if string(attrs[0].Key) != "crew.trace.__trace_source__" || attrs[0].Value.AsString() != "agent-builder" {
		t.Errorf("attrs[0] = %v", attrs[0])
	}
	if string(attrs[1].Key) != "crew.trace.workflow_id" {
		t.Errorf("attrs[1] = %v", attrs[1])
	}
}
