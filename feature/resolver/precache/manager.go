package precache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resource-manager/core/codec"
	"resource-manager/feature/resolver/chain"
	"resource-manager/feature/resolver/index"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CacheDirName is the subdirectory of the cache root that holds the
// snapshot.
const CacheDirName = "compiled_cache"

// MetadataFile is the snapshot metadata file name. It must be sufficient to
// validate the cache without touching any blob.
const MetadataFile = "cache_metadata.json"

// Cache-unavailable conditions. Neither is a lookup failure; both tell the
// caller to fetch through the override chain instead.
var (
	// ErrCacheDisabled reports that the precompiled cache is switched off.
	ErrCacheDisabled = errors.New("precompiled cache is disabled")
	// ErrCacheMiss reports that the cache is absent, invalid, or does not
	// cover the requested name.
	ErrCacheMiss = errors.New("precompiled cache miss")
)

// TableEntry is one table handed to Rebuild, with the tier it was collected
// from.
type TableEntry struct {
	Table *codec.Table
	Tier  chain.Tier
}

// metadata is the on-disk snapshot descriptor.
type metadata struct {
	State      ModState                  `json:"mod_state"`
	Key        string                    `json:"key"`
	Generation time.Time                 `json:"generation"`
	Tables     map[string]tableMeta      `json:"tables"`
	Locations  map[string]locationRecord `json:"locations"`
}

// tableMeta indexes one cached table blob.
type tableMeta struct {
	Tier string `json:"tier"`
	Rows int    `json:"rows"`
	File string `json:"file"`
}

// locationRecord is the persisted form of a base-tier archive location, so
// the fast path can restore the base location map without scanning archives.
type locationRecord struct {
	Container string    `json:"container"`
	Internal  string    `json:"internal"`
	ModTime   time.Time `json:"mod_time"`
}

// Manager validates, serves and rebuilds the precompiled snapshot. The
// on-disk files are read optimistically and replaced wholesale on rebuild;
// cross-process write arbitration is out of scope, the generation timestamp
// only makes a concurrent replacement detectable.
type Manager struct {
	enabled bool
	dir     string
	logger  *zap.Logger
	sf      singleflight.Group
	meta    *metadata
}

// NewManager creates a manager rooted at cacheRoot. When enabled is false
// every cache lookup returns ErrCacheDisabled and Validate always fails.
func NewManager(enabled bool, cacheRoot string, logger *zap.Logger) *Manager {
	return &Manager{
		enabled: enabled,
		dir:     filepath.Join(cacheRoot, CacheDirName),
		logger:  logger,
	}
}

// Enabled reports whether the cache is switched on.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Validate is the fast path: it reads only the metadata file and compares
// its stored key to the live state's key. Any read or decode failure
// degrades to invalid, never to an error; validation failures always fall
// back to the slow path.
func (m *Manager) Validate(live ModState) bool {
	if !m.enabled {
		return false
	}
	meta, err := m.readMetadata()
	if err != nil {
		m.logger.Info("precompiled cache unavailable", zap.Error(err))
		return false
	}
	if meta.Key != live.Key() {
		m.logger.Info("precompiled cache stale",
			zap.String("cached_key", meta.Key),
			zap.String("live_key", live.Key()),
		)
		return false
	}
	m.meta = meta
	m.logger.Info("precompiled cache valid",
		zap.String("key", meta.Key),
		zap.Int("tables", len(meta.Tables)),
		zap.Time("generation", meta.Generation),
	)
	return true
}

// Locations restores the base-tier location map captured at build time.
// Valid only after a successful Validate.
func (m *Manager) Locations() (map[string]index.Location, error) {
	if m.meta == nil {
		return nil, ErrCacheMiss
	}
	locations := make(map[string]index.Location, len(m.meta.Locations))
	for name, rec := range m.meta.Locations {
		locations[name] = index.Location{
			Container: rec.Container,
			Internal:  rec.Internal,
			Kind:      index.KindArchive,
			ModTime:   rec.ModTime,
		}
	}
	return locations, nil
}

// GetCachedTable returns the cached parse for a name and the tier it was
// collected from. Failure is always explicit: ErrCacheDisabled when the
// cache is off, ErrCacheMiss when the snapshot is absent, stale, unreadable
// or simply does not cover the name. Both tell the caller to resolve through
// the override chain instead.
func (m *Manager) GetCachedTable(name string) (*codec.Table, chain.Tier, error) {
	if !m.enabled {
		return nil, 0, ErrCacheDisabled
	}
	if m.meta == nil {
		return nil, 0, fmt.Errorf("cache not validated: %w", ErrCacheMiss)
	}
	entry, ok := m.meta.Tables[name]
	if !ok {
		return nil, 0, fmt.Errorf("table %s not cached: %w", name, ErrCacheMiss)
	}
	tier, ok := chain.TierFromString(entry.Tier)
	if !ok {
		return nil, 0, fmt.Errorf("table %s cached with unknown tier %q: %w", name, entry.Tier, ErrCacheMiss)
	}
	data, err := os.ReadFile(filepath.Join(m.dir, entry.File))
	if err != nil {
		return nil, 0, fmt.Errorf("reading blob for %s: %w", name, ErrCacheMiss)
	}
	var table codec.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, 0, fmt.Errorf("decoding blob for %s: %w", name, ErrCacheMiss)
	}
	return &table, tier, nil
}

// Rebuild writes a fresh snapshot for the given state: one blob per table,
// then the metadata file last, all through atomic renames. Concurrent
// rebuild requests for the same key collapse into one write.
func (m *Manager) Rebuild(ctx context.Context, state ModState, tables map[string]TableEntry, locations map[string]index.Location) error {
	if !m.enabled {
		return ErrCacheDisabled
	}
	key := state.Key()
	_, err, _ := m.sf.Do(key, func() (any, error) {
		return nil, m.rebuild(ctx, state, key, tables, locations)
	})
	return err
}

func (m *Manager) rebuild(ctx context.Context, state ModState, key string, tables map[string]TableEntry, locations map[string]index.Location) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	meta := &metadata{
		State:      state,
		Key:        key,
		Generation: time.Now().UTC(),
		Tables:     make(map[string]tableMeta, len(tables)),
		Locations:  make(map[string]locationRecord, len(locations)),
	}

	for name, entry := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(entry.Table)
		if err != nil {
			return fmt.Errorf("serializing table %s: %w", name, err)
		}
		file := fmt.Sprintf("%016x.json", xxhash.Sum64String(name))
		if err := atomic.WriteFile(filepath.Join(m.dir, file), bytes.NewReader(data)); err != nil {
			return fmt.Errorf("writing blob for %s: %w", name, err)
		}
		meta.Tables[name] = tableMeta{
			Tier: entry.Tier.String(),
			Rows: entry.Table.RowCount(),
			File: file,
		}
	}

	for name, loc := range locations {
		meta.Locations[name] = locationRecord{
			Container: loc.Container,
			Internal:  loc.Internal,
			ModTime:   loc.ModTime,
		}
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing cache metadata: %w", err)
	}
	if err := atomic.WriteFile(m.metadataPath(), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing cache metadata: %w", err)
	}

	m.meta = meta
	m.logger.Info("precompiled cache rebuilt",
		zap.String("key", key),
		zap.Int("tables", len(meta.Tables)),
		zap.Int("locations", len(meta.Locations)),
	)
	return nil
}

// Drop removes the named tables from the snapshot's coverage, in memory and
// on disk, so lookups for them miss and fall back to the override chain. Used
// when a tracked file's content changed without changing the mod-set key.
// Blobs are left behind; the next rebuild replaces them.
func (m *Manager) Drop(names []string) error {
	if !m.enabled || m.meta == nil {
		return nil
	}
	dropped := 0
	for _, name := range names {
		key := strings.ToLower(name)
		if _, ok := m.meta.Tables[key]; ok {
			delete(m.meta.Tables, key)
			dropped++
		}
	}
	if dropped == 0 {
		return nil
	}
	data, err := json.MarshalIndent(m.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing cache metadata: %w", err)
	}
	if err := atomic.WriteFile(m.metadataPath(), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing cache metadata: %w", err)
	}
	m.logger.Info("dropped modified tables from precompiled cache", zap.Int("tables", dropped))
	return nil
}

// Invalidate removes the metadata file, forcing the slow path on the next
// start even when no file content changed. Blobs are left behind; the next
// rebuild replaces them.
func (m *Manager) Invalidate() error {
	m.meta = nil
	err := os.Remove(m.metadataPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache metadata: %w", err)
	}
	return nil
}

func (m *Manager) metadataPath() string {
	return filepath.Join(m.dir, MetadataFile)
}

func (m *Manager) readMetadata() (*metadata, error) {
	data, err := os.ReadFile(m.metadataPath())
	if err != nil {
		return nil, fmt.Errorf("reading cache metadata: %w", err)
	}
	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding cache metadata: %w", err)
	}
	if meta.Key == "" || meta.Tables == nil {
		return nil, fmt.Errorf("cache metadata incomplete")
	}
	return &meta, nil
}
