package index

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resource-manager/core/codec"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Kind tags the container a resource lives in.
type Kind int

const (
	// KindArchive locates a resource inside an archive file on disk.
	KindArchive Kind = iota
	// KindFile locates a resource as a plain file in a directory.
	KindFile
	// KindPackage locates a resource inside an in-memory package archive.
	KindPackage
)

// String returns a short tag for logging.
func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindFile:
		return "file"
	case KindPackage:
		return "package"
	default:
		return "unknown"
	}
}

// Location identifies where a named resource's bytes live. Values are
// immutable once produced; a rescan that finds the same name produces a new
// Location and supersedes the old one.
type Location struct {
	// Container is the archive path, the plain file path, or the package
	// name the resource lives in.
	Container string
	// Internal is the entry name inside the container. Empty for plain files.
	Internal string
	// Kind tags the container type.
	Kind Kind
	// ModTime is the last-known modification time of the container file.
	// Zero for in-memory packages.
	ModTime time.Time
	// Handle is the open archive for KindPackage locations; nil otherwise.
	Handle codec.Archive
}

// Scanner indexes archives and directories into location maps.
type Scanner struct {
	codecs  codec.Set
	tracker *Tracker
	logger  *zap.Logger
}

// NewScanner creates a scanner. The tracker receives an observation for
// every plain file discovered during directory indexing.
func NewScanner(codecs codec.Set, tracker *Tracker, logger *zap.Logger) *Scanner {
	return &Scanner{codecs: codecs, tracker: tracker, logger: logger}
}

// IndexArchives indexes a batch of archives into one location map. Archives
// are scanned concurrently, but the merge applies them in input order, so
// when two archives define the same name the later archive in the list wins.
// That ordering is a contract: callers list base content first and
// expansions after it. An unreadable archive is logged and skipped; the call
// fails only when every archive in a non-empty batch fails.
func (s *Scanner) IndexArchives(ctx context.Context, paths []string) (map[string]Location, error) {
	maps := make([]map[string]Location, len(paths))
	errs := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := s.IndexArchive(path)
			if err != nil {
				errs[i] = err
				s.logger.Warn("skipping unreadable archive", zap.String("archive", path), zap.Error(err))
				return nil
			}
			maps[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]Location)
	failed := 0
	for i := range paths {
		if errs[i] != nil {
			failed++
			continue
		}
		for name, loc := range maps[i] {
			merged[name] = loc
		}
	}
	if len(paths) > 0 && failed == len(paths) {
		return nil, fmt.Errorf("all %d archives failed to index: %w", len(paths), errs[0])
	}
	return merged, nil
}

// IndexArchive indexes a single archive file.
func (s *Scanner) IndexArchive(path string) (map[string]Location, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	a, err := s.codecs.OpenArchive(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	locations := make(map[string]Location)
	for _, entry := range a.List() {
		locations[strings.ToLower(entry.Name)] = Location{
			Container: path,
			Internal:  entry.Name,
			Kind:      KindArchive,
			ModTime:   info.ModTime(),
		}
	}
	return locations, nil
}

// IndexPackage indexes an already-open in-memory package archive. The
// container label is used for logging and error messages only.
func (s *Scanner) IndexPackage(a codec.Archive, container string) map[string]Location {
	locations := make(map[string]Location)
	for _, entry := range a.List() {
		locations[strings.ToLower(entry.Name)] = Location{
			Container: container,
			Internal:  entry.Name,
			Kind:      KindPackage,
			Handle:    a,
		}
	}
	return locations
}

// IndexDirectory indexes plain files under root. Names are the lower-cased
// base names; with recursive set, subdirectories are walked in lexical order
// and when two files share a base name the one visited last wins. The walk
// order is deterministic, so repeated scans of the same tree always pick the
// same winner. A missing root yields an empty map: absent override
// directories are normal. Files that cannot be stat'ed are logged and
// skipped.
func (s *Scanner) IndexDirectory(ctx context.Context, root string, recursive bool) (map[string]Location, error) {
	locations := make(map[string]Location)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			s.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			s.logger.Warn("skipping file without stat info", zap.String("path", path), zap.Error(err))
			return nil
		}
		locations[strings.ToLower(d.Name())] = Location{
			Container: path,
			Kind:      KindFile,
			ModTime:   info.ModTime(),
		}
		if s.tracker != nil {
			s.tracker.Observe(path, info.ModTime())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return locations, nil
}
