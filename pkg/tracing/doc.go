// Package tracing provides OpenTelemetry-compatible tracing for the
// credd admin server.
//
// It implements W3C Trace Context propagation and span creation with
// the standard library only, exporting in the OTLP (OpenTelemetry
// Protocol) JSON encoding, so spans land in any OTLP-capable collector
// without pulling the full OpenTelemetry SDK into the binary.
//
// The admin server starts a server span per request via Middleware, and
// the pool client injects the active trace context into every call to
// the pool daemon, so one trace covers an admin action end to end:
//
//	tracer := tracing.NewTracer("credd-admin",
//	    tracing.WithExporter(tracing.NewOTLPExporter("http://collector:4318/v1/traces")),
//	    tracing.WithSampler(tracing.NewRatioSampler(0.25)),
//	)
//	handler = tracing.Middleware(tracer, handler)
//
// Manual spans follow the usual pattern:
//
//	ctx, span := tracer.Start(ctx, "pool.rotate", tracing.WithKind(tracing.SpanKindClient))
//	defer span.End()
//
//	index, err := manager.SwitchToNext(ctx)
//	if err != nil {
//	    span.RecordError(err)
//	}
//
// Context propagation across process boundaries uses the traceparent
// header per the W3C Trace Context specification
// (https://www.w3.org/TR/trace-context/):
//
//	ctx := tracing.Extract(ctx, req.Header)  // incoming
//	tracing.Inject(ctx, outReq.Header)       // outgoing
//
// Trace IDs are 32 hex characters (16 bytes), span IDs 16 hex
// characters (8 bytes). Traceparent format:
// {version}-{trace-id}-{parent-id}-{flags}, for example
// 00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01.
package tracing
