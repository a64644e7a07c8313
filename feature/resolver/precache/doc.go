// Package precache manages the on-disk snapshot of precompiled tables. The
// snapshot is keyed by a hash of the installed mod set (ModState): a
// matching key lets startup skip archive scanning and table parsing
// entirely, while any mismatch, including a pure precedence change where no
// file content changed, forces a full rebuild. The metadata file alone is
// sufficient to validate the cache; table blobs are only read on demand.
package precache
