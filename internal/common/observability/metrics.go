// Package observability exposes OpenTelemetry meters through the Prometheus
// exporter so worker and wizard instruments share the /metrics endpoint.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	submissions   otelmetric.Int64Counter
}

// Option configures New.
type Option func(*options)

type options struct {
	exporterOpts []prometheus.Option
	global       bool
}

// WithExporterOptions passes options to the Prometheus exporter, e.g. a
// dedicated registerer in tests.
func WithExporterOptions(opts ...prometheus.Option) Option {
	return func(o *options) { o.exporterOpts = append(o.exporterOpts, opts...) }
}

// WithoutGlobal keeps the provider out of otel.SetMeterProvider.
func WithoutGlobal() Option {
	return func(o *options) { o.global = false }
}

// New builds a meter provider for serviceName. On exporter failure it returns
// an Observability whose recorders are no-ops.
func New(serviceName string, opts ...Option) (*Observability, error) {
	o := options{global: true}
	for _, opt := range opts {
		opt(&o)
	}

	exporter, err := prometheus.New(o.exporterOpts...)
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	if o.global {
		otel.SetMeterProvider(provider)
	}
	meter := provider.Meter(serviceName)

	jobCounter, err := meter.Int64Counter(
		"jobs_processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	if err != nil {
		return &Observability{}, err
	}

	jobDuration, err := meter.Float64Histogram(
		"jobs_duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return &Observability{}, err
	}

	submissions, err := meter.Int64Counter(
		"applications_submitted",
		otelmetric.WithDescription("Applications handed to the CRM and workflow engine"),
	)
	if err != nil {
		return &Observability{}, err
	}

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		jobCounter:    jobCounter,
		jobDuration:   jobDuration,
		submissions:   submissions,
	}, nil
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

// RecordSubmission counts one submitted application for programID.
func (o *Observability) RecordSubmission(ctx context.Context, programID, applicantType string) {
	if o.submissions != nil {
		o.submissions.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("program_id", programID),
			attribute.String("applicant_type", applicantType),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
