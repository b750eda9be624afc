package tracing

import (
	"context"
	"fmt"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/noah-isme/admin-api/pkg/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init installs a jaeger tracer as the global tracer when tracing is enabled.
// The returned closer flushes buffered spans.
func Init(cfg config.TracingConfig) (io.Closer, error) {
	if !cfg.Enabled {
		return nopCloser{}, nil
	}
	jcfg := jaegercfg.Configuration{
		ServiceName: cfg.ServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: cfg.AgentHost,
		},
	}
	tracer, closer, err := jcfg.NewTracer()
	if err != nil {
		return nil, fmt.Errorf("init jaeger tracer: %w", err)
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// StartSpan opens a child span tagged with the request payload.
func StartSpan(ctx context.Context, name string, req interface{}) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, name)
	if req != nil {
		span.SetTag("request", fmt.Sprint(req))
	}
	return span, ctx
}

// Finish records err on the span before closing it.
func Finish(span opentracing.Span, err error) {
	if err != nil {
		span.SetTag("error", true)
		span.LogKV("event", "error", "message", err.Error())
	}
	span.Finish()
}
