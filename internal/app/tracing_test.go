package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestConfigureTracingDisabled(t *testing.T) {
	shutdown, err := ConfigureTracing(context.Background(), TracingConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestConfigureTracingStdoutExportsSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var out bytes.Buffer
	shutdown, err := ConfigureTracing(context.Background(), TracingConfig{
		Enabled:     true,
		Exporter:    "stdout",
		ServiceName: "catalog-test",
		SampleRatio: 1,
	}, &out)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "list-categories")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	require.Contains(t, out.String(), "list-categories")
	require.Contains(t, out.String(), "catalog-test")
}

func TestConfigureTracingRejectsUnknownExporter(t *testing.T) {
	_, err := ConfigureTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	require.ErrorContains(t, err, "unsupported exporter")
}

func TestSampleRatio(t *testing.T) {
	require.Equal(t, 1.0, sampleRatio(0))
	require.Equal(t, 1.0, sampleRatio(3))
	require.Equal(t, 0.25, sampleRatio(0.25))
}
