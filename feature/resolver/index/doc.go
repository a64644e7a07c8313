// Package index builds name-to-location maps over archives and directories
// without parsing any payload bytes. Scans are the only startup cost that
// scales with installed content, so the archive batch API fans out one
// goroutine per archive; merge order is fixed by the input list, never by
// completion order. The package also tracks modification times of indexed
// files so callers can invalidate stale entries instead of rescanning whole
// tiers.
package index
