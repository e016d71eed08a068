package metrics

import (
	"context"
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
	recoveryEntries metric.Int64Counter
	importRows      metric.Int64Counter
	reconciliations metric.Int64Counter
	sweepRuns       metric.Int64Counter
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
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "wagedesk"
	}
	meter := provider.Meter(name)

	recoveryEntries, err := meter.Int64Counter("wagedesk_recovery_entries_total")
	if err != nil {
		return nil, err
	}
	importRows, err := meter.Int64Counter("wagedesk_import_rows_total")
	if err != nil {
		return nil, err
	}
	reconciliations, err := meter.Int64Counter("wagedesk_reconciliations_total")
	if err != nil {
		return nil, err
	}
	sweepRuns, err := meter.Int64Counter("wagedesk_reconcile_sweep_runs_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		recoveryEntries: recoveryEntries,
		importRows:      importRows,
		reconciliations: reconciliations,
		sweepRuns:       sweepRuns,
	}, nil
}

// RecordRecoveryEntry increments entry counts per mutating operation.
func (m *Metrics) RecordRecoveryEntry(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.recoveryEntries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
	))
}

// RecordImportRows increments bulk-import row counts by result.
func (m *Metrics) RecordImportRows(ctx context.Context, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importRows.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("result", strings.TrimSpace(result)),
	))
}

// RecordReconciliation increments certificate reconciliation counts.
func (m *Metrics) RecordReconciliation(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconciliations.Add(ctx, 1)
}

// RecordSweepRun increments reconciliation sweep counts.
func (m *Metrics) RecordSweepRun(ctx context.Context) {
	if m == nil {
		return
	}
	m.sweepRuns.Add(ctx, 1)
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
