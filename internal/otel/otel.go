package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/gqlink/internal/eventbus"
	events "github.com/hanpama/gqlink/internal/events"
	opid "github.com/hanpama/gqlink/internal/opid"

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

// Setup configures OpenTelemetry and attaches subscribers to bus.
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

	unsubscribe := Register(bus, tp.Tracer("gqlink"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Register turns pipeline events on bus into spans. Spans are keyed by
// operation id, so events without one are ignored.
func Register(bus *eventbus.Bus, tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register(bus)
}

type subscriber struct {
	tracer    trace.Tracer
	opSpans   sync.Map // opid -> trace.Span
	httpSpans sync.Map // opid -> trace.Span
}

func (s *subscriber) register(bus *eventbus.Bus) func() {
	unsubs := []func(){
		eventbus.Subscribe(bus, func(ctx context.Context, e events.OperationStart) {
			id, ok := opid.FromContext(ctx)
			if !ok {
				return
			}
			_, span := s.tracer.Start(ctx, "graphql.operation", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.Name),
				attribute.String("graphql.operation.type", e.Kind),
			)
			s.opSpans.Store(id, span)
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.OperationFinish) {
			id, _ := opid.FromContext(ctx)
			v, ok := s.opSpans.LoadAndDelete(id)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.error_count", e.GraphQLErrors))
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End()
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPClientStart) {
			id, ok := opid.FromContext(ctx)
			if !ok {
				return
			}
			parent := ctx
			if v, ok := s.opSpans.Load(id); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "http.request", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				semconv.HTTPURLKey.String(e.Request.URL.String()),
				attribute.Bool("graphql.multipart", e.Multipart),
			)
			s.httpSpans.Store(id, span)
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPClientFinish) {
			id, _ := opid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(id)
			if !ok {
				return
			}
			span := v.(trace.Span)
			if e.Status != 0 {
				span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			}
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
