package app

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/abhisek/examgen/internal/config"
)

const serviceName = "examgen"

// newTracerProvider builds the SDK tracer provider for the configured
// exporter. With config.TraceNone spans are sampled and ended but not
// exported.
func newTracerProvider(exporter string, w io.Writer) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	}

	switch exporter {
	case config.TraceNone, "":
	case config.TraceStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", exporter)
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// shutdownFunc adapts a context-taking shutdown to io.Closer.
type shutdownFunc func(context.Context) error

func (f shutdownFunc) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return f(ctx)
}
