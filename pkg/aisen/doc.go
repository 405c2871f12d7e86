// Package aisen provides lightweight, pluggable error collection for HTTP
// services.
//
// Each request gets its own reporting context: a Hub cloned from the process
// default, carrying a Scope whose event processors enrich every event
// captured while the request is handled. The hub travels on the request's
// context.Context, so code deep in the call stack reports through it with
// aisen.CaptureError(ctx, err) and picks up the request's transaction name,
// tags and request data automatically.
//
// # Core Components
//
//   - ErrorEvent: The canonical error representation with severity, request data, and metadata
//   - Hub and Scope: Per-request reporting context and its event processors
//   - Collector: Applies scrubbing and fingerprinting before persistence
//   - Sink: Destination for error events (cxdb, sqlite, stderr, async, multi, noop)
//   - Scrubber: Redacts sensitive data with fail-closed behavior
//
// # Quick Start
//
//	aisen.Init(
//	    aisen.WithSink(stderr.NewStderrSink()),
//	    aisen.WithDefaultScrubbing(),
//	)
//	mw := aisenhttp.New(aisenhttp.WithEmitHeader(true))
//	http.ListenAndServe(":8080", mw.Handler(handler))
//
// Outside of HTTP:
//
//	defer aisen.RecoverHub(ctx)
//	if err := work(ctx); err != nil {
//	    aisen.CaptureError(ctx, err)
//	}
//
// # Design Principles
//
//   - Reporting never fails the caller: collector errors are swallowed
//   - Fail-closed scrubbing: on any error, fields are fully redacted (never persist raw data)
//   - Small core: transport and storage dependencies live in adapter and sink packages
package aisen
