// Package engine supervises the ELK layout server subprocess and runs the
// line-framed JSON conversation with it.
//
// # Overview
//
// The engine is a long-lived external process started as "<script> --stdio".
// Requests are single JSON lines written to its stdin; each request yields
// exactly one JSON line on stdout, optionally followed by a diagnostic line on
// stderr. The package has two halves:
//
//   - [Supervisor] owns at most one engine [Process]. It starts one on demand,
//     notices when it has exited, replaces it after I/O failures, and shuts it
//     down on request.
//   - [Channel] performs one strict request/response exchange against a live
//     process and classifies what went wrong when it fails.
//
// # Usage
//
//	sup := engine.New(resolver, engine.WithLogger(logger))
//	defer sup.Shutdown()
//
//	resp, err := sup.Exchange(ctx, graph)
//	switch {
//	case errors.Is(err, errors.ErrCodeEngineError):
//	    // the engine rejected the request; the process is still usable
//	case errors.Retryable(err):
//	    // the process was discarded; the next call starts a fresh one
//	}
//
// # Concurrency
//
// A Supervisor is safe for concurrent use. Exchanges are serialized: the next
// request is not written until the previous response and its diagnostic line
// have been consumed. [Supervisor.Shutdown] does not wait for an exchange in
// flight; it terminates the process, which aborts the exchange.
//
// # Timeouts
//
// By default reads block until the engine answers or its stdout closes, so a
// hung engine hangs the caller. Set [WithReadTimeout] or pass a context with a
// deadline to bound the wait; an abandoned exchange leaves the conversation
// out of sync, so the process is discarded.
package engine
