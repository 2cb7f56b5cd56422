// Package telemetry sets up OpenTelemetry tracing and metrics for guild.
//
// Compression spans and module size metrics are exported over OTLP, gRPC by
// default or HTTP with Protocol set to "http/protobuf":
//
//	tel, err := telemetry.New(ctx, telemetry.NewDefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	engine, err := compression.NewEngine(
//	    compression.WithTracerProvider(tel.TracerProvider()),
//	    compression.WithMeterProvider(tel.MeterProvider()),
//	)
//
// A provider whose exporter cannot be created is skipped and the instance
// reports Degraded in Health; guild keeps running on the global no-op
// providers.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "compression.compress")
//	span.End()
//	tt.AssertSpanExists(t, "compression.compress")
package telemetry
