package index

import (
	"fmt"
	"os"
	"time"
)

// modTimeTolerance absorbs filesystem timestamp coarseness: a change smaller
// than this is not a change.
const modTimeTolerance = time.Millisecond

// Tracker records modification timestamps for indexed plain files and flags
// files whose cached entries must be invalidated. Not safe for concurrent
// use; the engine is single-consumer by contract.
type Tracker struct {
	recorded map[string]time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{recorded: make(map[string]time.Time)}
}

// Observe records the modification time for a path. Called by the scanner
// for every plain file it indexes; calling it again simply updates the
// record.
func (t *Tracker) Observe(path string, mtime time.Time) {
	t.recorded[path] = mtime
}

// IsModified reports whether the file changed since it was last recorded.
// The first observation of a path is never a modification. On a detected
// change the record is updated, so the change is reported exactly once.
func (t *Tracker) IsModified(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	last, seen := t.recorded[path]
	t.recorded[path] = info.ModTime()
	if !seen {
		return false, nil
	}
	delta := info.ModTime().Sub(last)
	if delta < 0 {
		delta = -delta
	}
	return delta > modTimeTolerance, nil
}

// Paths returns every tracked path, for sweep-style modification checks.
func (t *Tracker) Paths() []string {
	paths := make([]string, 0, len(t.recorded))
	for p := range t.recorded {
		paths = append(paths, p)
	}
	return paths
}

// Forget drops the record for a path, e.g. after the file was deleted.
func (t *Tracker) Forget(path string) {
	delete(t.recorded, path)
}
