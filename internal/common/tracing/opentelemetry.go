// Package tracing 提供 OpenTelemetry 链路追踪
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "bnb-booking-backend"

// Config 追踪配置
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // OTLP gRPC 地址，为空时输出到 stdout
	SampleRate     float64
	Enabled        bool
}

// Tracer 服务级追踪器
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

var defaultTracer *Tracer

// Init 按配置创建追踪器并注册为全局 TracerProvider
// 未启用时返回不记录的追踪器，调用方无需判空
func Init(cfg *Config) (*Tracer, error) {
	if cfg == nil {
		cfg = &Config{ServiceName: defaultServiceName, SampleRate: 1.0, Enabled: true}
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	if !cfg.Enabled {
		defaultTracer = &Tracer{tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName)}
		return defaultTracer, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	exporter, err := newExporter(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(Sampler(cfg.SampleRate))),
	)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	defaultTracer = NewTracer(provider, cfg.ServiceName)
	otel.SetTracerProvider(provider)
	return defaultTracer, nil
}

// NewTracer 用已有的 TracerProvider 创建追踪器
func NewTracer(provider *sdktrace.TracerProvider, name string) *Tracer {
	return &Tracer{provider: provider, tracer: provider.Tracer(name)}
}

func newExporter(endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		return exporter, nil
	}

	client := otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	exporter, err := otlptrace.New(context.Background(), client)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	return exporter, nil
}

// Sampler 按采样率选择采样器，超出 (0, 1) 的值取全采或不采
func Sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown 刷新并关闭导出器
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// StartSpan 开始一个带属性的 span
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartSpan 使用默认追踪器开始 span，未初始化时退回全局 TracerProvider
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if defaultTracer != nil {
		return defaultTracer.StartSpan(ctx, name, attrs...)
	}
	return otel.Tracer(defaultServiceName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// Fail 记录错误并把 span 标记为失败
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// 业务属性键
var (
	AttrRoomID        = attribute.Key("room.id")
	AttrBookingNumber = attribute.Key("booking.number")
	AttrAgent         = attribute.Key("agent.name")
	AttrAgentAction   = attribute.Key("agent.action")
	AttrWindowStart   = attribute.Key("window.start")
	AttrWindowEnd     = attribute.Key("window.end")
)

// WithRoomID 房间 ID
func WithRoomID(id int64) attribute.KeyValue {
	return AttrRoomID.Int64(id)
}

// WithBookingNumber 预订编号
func WithBookingNumber(number string) attribute.KeyValue {
	return AttrBookingNumber.String(number)
}

// WithAgent 分析代理和动作
func WithAgent(agent, action string) []attribute.KeyValue {
	return []attribute.KeyValue{AttrAgent.String(agent), AttrAgentAction.String(action)}
}

// WithWindow 分析窗口（闭区间）
func WithWindow(start, last string) []attribute.KeyValue {
	return []attribute.KeyValue{AttrWindowStart.String(start), AttrWindowEnd.String(last)}
}
