package app

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// metrics holds the instruments updated on the reservation hot paths. The
// instruments come from the global meter provider, so they are no-ops until
// InitTelemetry installs a real one.
type metrics struct {
	holdsGranted      otelmetric.Int64Counter
	holdsRejected     otelmetric.Int64Counter
	holdsReleased     otelmetric.Int64Counter
	bookingsConfirmed otelmetric.Int64Counter
	bookingsFailed    otelmetric.Int64Counter
	eventSubscribers  otelmetric.Int64UpDownCounter
}

func newMetrics() *metrics {
	meter := otel.Meter("cinetix-api")

	holdsGranted, _ := meter.Int64Counter("reservation.holds.granted",
		otelmetric.WithDescription("Seat holds granted"))
	holdsRejected, _ := meter.Int64Counter("reservation.holds.rejected",
		otelmetric.WithDescription("Seat hold requests rejected due to contention"))
	holdsReleased, _ := meter.Int64Counter("reservation.holds.released",
		otelmetric.WithDescription("Seat holds released by their holder"))
	bookingsConfirmed, _ := meter.Int64Counter("reservation.bookings.confirmed",
		otelmetric.WithDescription("Bookings confirmed after payment"))
	bookingsFailed, _ := meter.Int64Counter("reservation.bookings.failed",
		otelmetric.WithDescription("Bookings failed or abandoned"))
	eventSubscribers, _ := meter.Int64UpDownCounter("reservation.event_subscribers",
		otelmetric.WithDescription("Open seat event streams"))

	return &metrics{
		holdsGranted:      holdsGranted,
		holdsRejected:     holdsRejected,
		holdsReleased:     holdsReleased,
		bookingsConfirmed: bookingsConfirmed,
		bookingsFailed:    bookingsFailed,
		eventSubscribers:  eventSubscribers,
	}
}

// InitTelemetry initializes the OpenTelemetry providers and returns a shutdown function.
func (app *Application) InitTelemetry() (func(context.Context), error) {
	if app.config.OtelCollectorUrl == "" {
		app.logger.Info("OpenTelemetry collector URL not set, skipping initialization")

		return func(context.Context) {}, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("cinetix-api"),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(app.config.Env),
		),
	)
	if err != nil {
		return nil, errors.New("failed to create otel resource")
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(app.config.OtelCollectorUrl),
	)
	if err != nil {
		return nil, errors.New("failed to create otel trace exporter")
	}

	bsp := trace.NewBatchSpanProcessor(traceExporter)
	tracerProvider := trace.NewTracerProvider(
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithResource(res),
		trace.WithSpanProcessor(bsp),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(app.config.OtelCollectorUrl),
	)
	if err != nil {
		return nil, errors.New("failed to create otel metric exporter")
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(15*time.Second))),
	)

	otel.SetMeterProvider(meterProvider)

	logExporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithInsecure(),
		otlploggrpc.WithEndpoint(app.config.OtelCollectorUrl),
	)
	if err != nil {
		return nil, errors.New("failed to create otel log exporter")
	}

	loggerProvider := log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(log.NewBatchProcessor(logExporter)),
	)

	global.SetLoggerProvider(loggerProvider)

	// Re-create the instruments now that the real meter provider is in
	// place.
	app.metrics = newMetrics()

	shutdown := func(ctx context.Context) {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := errors.Join(
			tracerProvider.Shutdown(shutdownCtx),
			meterProvider.Shutdown(shutdownCtx),
			loggerProvider.Shutdown(shutdownCtx),
		)
		if err != nil {
			app.logger.Error("failed to shutdown telemetry providers", "error", err)
		}
	}

	return shutdown, nil
}
