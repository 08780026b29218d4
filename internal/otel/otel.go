package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/fieldgraph/internal/eventbus"
	events "github.com/hanpama/fieldgraph/internal/events"
	reqid "github.com/hanpama/fieldgraph/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches bus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Register(bus, tp.Tracer("fieldgraph"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Register opens and closes spans from bus events using tracer. Spans are
// correlated by the request id carried in the event context.
func Register(bus *eventbus.Bus, tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register(bus)
}

type subscriber struct {
	tracer        trace.Tracer
	httpSpans     sync.Map // rid -> trace.Span
	analysisSpans sync.Map // rid -> trace.Span
}

func (s *subscriber) register(bus *eventbus.Bus) func() {
	unsubs := []func(){
		eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("http.request_id", rid),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "")
			}
			span.End()
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.AnalysisStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := ctx
			if v, ok := s.httpSpans.Load(rid); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "graphql.analysis")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
			)
			s.analysisSpans.Store(rid, span)
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.AnalysisFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.analysisSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.Int("fieldgraph.vertices", e.Vertices),
				attribute.Bool("fieldgraph.cached", e.Cached),
			)
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
