// Package observability wires OpenTelemetry tracing and metrics for the
// RPC client.
//
// Exporters are optional. Without InitTracer or InitMeter the global
// providers are no-ops and every instrument below is free to call.
//
//	shutdown, err := observability.Setup(ctx, observability.Config{
//		ServiceName: "rpcclient",
//		Endpoint:    "localhost:4318",
//	})
//	defer shutdown(ctx)
//
//	m, err := observability.NewClientMetrics(observability.Meter(observability.InstrumentationName))
//	m.RecordRequest(ctx, "GET", 200, elapsed)
package observability
