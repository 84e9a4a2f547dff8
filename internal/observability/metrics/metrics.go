package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	rewardsIssued   metric.Int64Counter
	rewardsRejected metric.Int64Counter
	pointsIssued    metric.Int64Counter
	pointsUsed      metric.Int64Counter
	budgetCharged   metric.Int64Counter
	settlements     metric.Int64Counter
	rateLimitDenied metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.StopHook(provider.Shutdown))
	}
	if log != nil {
		log.Info("otlp metrics exporter ready",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New registers the reward, ledger and settlement counters.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "flyerpoint"
	}
	meter := provider.Meter(name)

	var errs []error
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return c
	}

	m := &Metrics{
		rewardsIssued:   counter("flyerpoint_rewards_issued_total", "Rewards committed to the ledger", "{reward}"),
		rewardsRejected: counter("flyerpoint_rewards_rejected_total", "Reward attempts refused", "{reward}"),
		pointsIssued:    counter("flyerpoint_points_issued_total", "Points credited by rewards", "{point}"),
		pointsUsed:      counter("flyerpoint_points_used_total", "Points debited from user balances", "{point}"),
		budgetCharged:   counter("flyerpoint_budget_charged_points_total", "Points added to business budgets", "{point}"),
		settlements:     counter("flyerpoint_settlements_total", "Processed withdrawal decisions", "{withdrawal}"),
		rateLimitDenied: counter("flyerpoint_rate_limit_denied_total", "Requests refused by the reward rate limiter", "{request}"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRewardIssued counts a committed reward and the points it paid.
func (m *Metrics) RecordRewardIssued(ctx context.Context, eventType, fundingSource string, points int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("funding_source", strings.TrimSpace(fundingSource)),
	)
	m.rewardsIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
	if points > 0 {
		m.pointsIssued.Add(ctx, points, metric.WithAttributes(attrs...))
	}
}

// RecordRewardRejected counts reward attempts refused by a rule or guard.
func (m *Metrics) RecordRewardRejected(ctx context.Context, eventType, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rewardsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPointsUsed counts points leaving user balances.
func (m *Metrics) RecordPointsUsed(ctx context.Context, sourceType string, points int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", strings.TrimSpace(sourceType)))
	m.pointsUsed.Add(ctx, points, metric.WithAttributes(attrs...))
}

// RecordBudgetCharge counts points added to business budgets.
func (m *Metrics) RecordBudgetCharge(ctx context.Context, method string, points int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("method", strings.TrimSpace(method)))
	m.budgetCharged.Add(ctx, points, metric.WithAttributes(attrs...))
}

// RecordSettlement counts processed withdrawal decisions.
func (m *Metrics) RecordSettlement(ctx context.Context, decision string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("decision", strings.TrimSpace(decision)))
	m.settlements.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":       {},
	"status_code":    {},
	"event_type":     {},
	"funding_source": {},
	"source_type":    {},
	"method":         {},
	"decision":       {},
	"reason":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
