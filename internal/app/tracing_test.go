package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examgen/internal/config"
)

func TestStdoutTracerProviderExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := newTracerProvider(config.TraceStdout, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "generation.Generate")
	span.AddEvent("fetching_source")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "generation.Generate")
	assert.Contains(t, buf.String(), "fetching_source")
}

func TestNoneTracerProviderExportsNothing(t *testing.T) {
	var buf bytes.Buffer
	tp, err := newTracerProvider(config.TraceNone, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "generation.Generate")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Empty(t, buf.String())
}

func TestUnknownTraceExporter(t *testing.T) {
	_, err := newTracerProvider("jaeger", &bytes.Buffer{})
	require.Error(t, err)
}
