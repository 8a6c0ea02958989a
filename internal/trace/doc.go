// Package trace records spans and point events from the scan pipeline.
//
// Levels map onto scopes: phase shows driver operations and passes
// (scan_dir, apply), detail adds per-file parse and scan spans, debug adds
// assist steps on individual unsafe blocks.
//
//	rustsafe diag --trace=- --trace-level=detail ./src
//
// Events go to a StreamTracer (text or NDJSON), a RingTracer kept for crash
// dumps, or both through a MultiTracer. The tracer and the current span travel
// in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "scan_dir")
//	defer span.End(dir)
package trace
