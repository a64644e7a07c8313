// Package resolver ties the override chain, the content indexes, the module
// loader and the precompiled cache into one engine. A Service owns all
// mutable state; there is no package-level state, so independent engines can
// coexist in one process.
//
// The engine is synchronous and single-consumer: no internal locking
// protects the tier maps, the module cache or the modification tracker.
// Callers that share a Service across goroutines must serialize access
// themselves. Only archive batch indexing parallelizes internally, and its
// observable result is identical to sequential execution.
package resolver
