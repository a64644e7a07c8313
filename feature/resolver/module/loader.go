package module

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resource-manager/core/codec"
	"resource-manager/feature/resolver/chain"
	"resource-manager/feature/resolver/index"

	"go.uber.org/zap"
)

// CampaignDescriptor is the descriptor file name looked for in campaign
// folders.
const CampaignDescriptor = "campaign.json"

// SearchPaths holds the directory lists the loader searches, each in
// priority order: custom folders first, installation folders last.
type SearchPaths struct {
	// AddonDirs are searched for add-on package files named in manifests.
	AddonDirs []string
	// CampaignDirs are the roots scanned for campaign folders.
	CampaignDirs []string
	// StringTableDirs are searched for custom string tables not bundled in
	// the module package.
	StringTableDirs []string
}

// Context is everything produced by loading one module package: the parsed
// manifest, the module's own override tier, the add-on package tiers in load
// order, the campaign tier (possibly empty) and the custom string table
// (possibly nil). Contexts are owned by the LRU cache once inserted.
type Context struct {
	// Path is the normalized module package path, the cache key.
	Path string
	// Manifest holds the parsed manifest fields.
	Manifest *Manifest
	// ModuleTier maps resource names to locations inside the package.
	ModuleTier map[string]index.Location
	// Addons holds the add-on package tiers in manifest order.
	Addons []chain.AddonTier
	// CampaignTier maps resource names from the matched campaign folder.
	// Nil when the module has no campaign or none matched.
	CampaignTier map[string]index.Location
	// StringTable is the module's custom string table, if one was located.
	StringTable *codec.StringTable

	archive       codec.Archive
	addonArchives []codec.Archive
}

// Close releases the module package archive and any add-on archives opened
// from bundled copies. Called when the context is evicted from the LRU cache.
func (c *Context) Close() {
	if c.archive != nil {
		_ = c.archive.Close()
		c.archive = nil
	}
	for _, a := range c.addonArchives {
		_ = a.Close()
	}
	c.addonArchives = nil
}

// Loader drives module activation over a single active-module slot. All tier
// mutations go through the chain registry; failures before the install step
// leave the previously installed tiers untouched.
type Loader struct {
	codecs   codec.Set
	scanner  *index.Scanner
	registry *chain.Registry
	cache    *LRU
	paths    SearchPaths
	logger   *zap.Logger

	activePath string
	activeCtx  *Context
}

// NewLoader creates a loader. The LRU cache is owned by the caller so that
// an explicit cache clear can reach it directly.
func NewLoader(codecs codec.Set, scanner *index.Scanner, registry *chain.Registry, cache *LRU, paths SearchPaths, logger *zap.Logger) *Loader {
	return &Loader{
		codecs:   codecs,
		scanner:  scanner,
		registry: registry,
		cache:    cache,
		paths:    paths,
		logger:   logger,
	}
}

// Active returns the normalized path of the active module, if any.
func (l *Loader) Active() (string, bool) {
	return l.activePath, l.activePath != ""
}

// ActiveContext returns the active module's context, if any.
func (l *Loader) ActiveContext() (*Context, bool) {
	return l.activeCtx, l.activeCtx != nil
}

// Activate loads the module package at path and installs its tiers,
// replacing whatever module was active before. A context cached from an
// earlier activation is reinstalled without re-reading the package.
func (l *Loader) Activate(ctx context.Context, path string) (*Context, error) {
	key := normalizePath(path)
	if cached, ok := l.cache.Get(key); ok {
		l.install(cached)
		l.logger.Info("module reactivated from cache", zap.String("module", cached.Manifest.Name))
		return cached, nil
	}

	mc, err := l.build(ctx, key, nil, "", true)
	if err != nil {
		return nil, err
	}
	l.install(mc)
	l.cache.Put(key, mc)
	l.logger.Info("module activated",
		zap.String("module", mc.Manifest.Name),
		zap.Int("addons", len(mc.Addons)),
		zap.Bool("campaign", mc.CampaignTier != nil),
	)
	return mc, nil
}

// ActivateForSave loads a module with a fixed, pre-known add-on package list
// and string table reference, bypassing the manifest's addon list and the
// campaign lookup. Used when the caller knows exactly which packages a save
// was created with. Save contexts are not cached: they do not represent the
// module's manifest configuration.
func (l *Loader) ActivateForSave(ctx context.Context, path string, addons []string, stringTableRef string) (*Context, error) {
	mc, err := l.build(ctx, normalizePath(path), addons, stringTableRef, false)
	if err != nil {
		return nil, err
	}
	l.install(mc)
	l.logger.Info("module activated for save context",
		zap.String("module", mc.Manifest.Name),
		zap.Int("addons", len(mc.Addons)),
	)
	return mc, nil
}

// Deactivate clears the module, add-on and campaign tiers. A context the LRU
// still holds stays open for fast re-activation; one the cache no longer
// owns (a save context, or a context dropped from the cache while active) is
// closed here.
func (l *Loader) Deactivate() {
	if l.activePath == "" {
		return
	}
	l.registry.ClearModuleTiers()
	if l.activeCtx != nil && !l.cache.Holds(l.activePath, l.activeCtx) {
		l.activeCtx.Close()
	}
	l.activePath = ""
	l.activeCtx = nil
}

// build assembles a Context without touching the registry. fullManifest
// selects between normal activation (manifest addon list, campaign lookup)
// and the save-context variant (fixed addon list, no campaign).
func (l *Loader) build(ctx context.Context, key string, addons []string, stringTableRef string, fullManifest bool) (*Context, error) {
	archive, err := l.codecs.OpenArchive(key)
	if err != nil {
		return nil, &LoadError{Path: key, Err: err}
	}

	manifest, err := l.readManifest(archive)
	if err != nil {
		_ = archive.Close()
		return nil, &LoadError{Path: key, Err: err}
	}

	if fullManifest {
		addons = manifest.Addons
		stringTableRef = manifest.StringTableRef
	}

	mc := &Context{
		Path:       key,
		Manifest:   manifest,
		ModuleTier: l.scanner.IndexPackage(archive, key),
		archive:    archive,
	}

	for _, name := range addons {
		tier, handle, ok := l.loadAddon(archive, name)
		if !ok {
			continue
		}
		mc.Addons = append(mc.Addons, tier)
		if handle != nil {
			mc.addonArchives = append(mc.addonArchives, handle)
		}
	}

	if fullManifest && manifest.CampaignID != "" {
		mc.CampaignTier = l.findCampaign(ctx, manifest.CampaignID)
	}

	if stringTableRef != "" {
		mc.StringTable = l.loadStringTable(archive, stringTableRef)
	}

	return mc, nil
}

// install points the registry at the context's tiers. This is the only place
// module activation mutates the chain, so a failure anywhere earlier leaves
// the previous configuration fully installed. A displaced context the LRU
// does not hold is closed here; cache-held ones stay open for re-activation.
func (l *Loader) install(mc *Context) {
	if l.activeCtx != nil && l.activeCtx != mc && !l.cache.Holds(l.activePath, l.activeCtx) {
		l.activeCtx.Close()
	}
	l.registry.ClearModuleTiers()
	l.registry.SetTier(chain.TierModule, mc.ModuleTier)
	l.registry.SetAddons(mc.Addons)
	if mc.CampaignTier != nil {
		l.registry.SetTier(chain.TierCampaign, mc.CampaignTier)
	}
	l.activePath = mc.Path
	l.activeCtx = mc
}

// readManifest extracts and parses the package manifest.
func (l *Loader) readManifest(archive codec.Archive) (*Manifest, error) {
	data, err := archive.Extract(ManifestEntry)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	rec, err := l.codecs.ParseRecord(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return ParseManifest(rec)
}

// loadAddon locates and indexes one add-on package: the add-on directories
// first, then a copy bundled inside the module package. The returned archive
// handle is non-nil only for bundled copies and is owned by the context. A
// package that cannot be found or read is logged and skipped; one broken
// add-on must not abort the module load.
func (l *Loader) loadAddon(pkg codec.Archive, name string) (chain.AddonTier, codec.Archive, bool) {
	if path, ok := l.locateFile(l.paths.AddonDirs, name); ok {
		locations, err := l.scanner.IndexArchive(path)
		if err != nil {
			l.logger.Warn("skipping unreadable add-on package", zap.String("addon", path), zap.Error(err))
			return chain.AddonTier{}, nil, false
		}
		return chain.AddonTier{Name: name, Locations: locations}, nil, true
	}

	if data, err := pkg.Extract(name); err == nil {
		a, err := l.codecs.OpenArchiveBytes(name, data)
		if err != nil {
			l.logger.Warn("skipping corrupt bundled add-on", zap.String("addon", name), zap.Error(err))
			return chain.AddonTier{}, nil, false
		}
		locations := l.scanner.IndexPackage(a, name)
		return chain.AddonTier{Name: name, Locations: locations}, a, true
	}

	l.logger.Warn("add-on package not found", zap.String("addon", name))
	return chain.AddonTier{}, nil, false
}

// findCampaign scans the campaign roots for a folder whose descriptor
// carries the wanted identifier and indexes it. Absence is informational,
// not an error: the campaign tier simply stays empty.
func (l *Loader) findCampaign(ctx context.Context, id string) map[string]index.Location {
	for _, root := range l.paths.CampaignDirs {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			data, err := os.ReadFile(filepath.Join(dir, CampaignDescriptor))
			if err != nil {
				continue
			}
			rec, err := l.codecs.ParseRecord(data)
			if err != nil {
				l.logger.Warn("skipping campaign with corrupt descriptor", zap.String("dir", dir), zap.Error(err))
				continue
			}
			if rec.String("id") != id {
				continue
			}
			locations, err := l.scanner.IndexDirectory(ctx, dir, true)
			if err != nil {
				l.logger.Warn("skipping unreadable campaign folder", zap.String("dir", dir), zap.Error(err))
				continue
			}
			// The descriptor itself is not a resource.
			delete(locations, CampaignDescriptor)
			return locations
		}
	}
	l.logger.Info("no campaign folder matched", zap.String("campaign", id))
	return nil
}

// loadStringTable locates and parses the custom string table: inside the
// module package first, then the string-table directories, then the add-on
// directories. Failure to find or parse one is logged, not fatal.
func (l *Loader) loadStringTable(archive codec.Archive, ref string) *codec.StringTable {
	if data, err := archive.Extract(ref); err == nil {
		table, err := l.parseStringTableBytes(ref, data)
		if err == nil {
			return table
		}
		l.logger.Warn("bundled string table is corrupt", zap.String("ref", ref), zap.Error(err))
		return nil
	}

	dirs := append(append([]string{}, l.paths.StringTableDirs...), l.paths.AddonDirs...)
	if path, ok := l.locateFile(dirs, ref); ok {
		table, err := l.codecs.ParseStringTable(path)
		if err != nil {
			l.logger.Warn("string table is corrupt", zap.String("path", path), zap.Error(err))
			return nil
		}
		return table
	}
	l.logger.Warn("string table not found", zap.String("ref", ref))
	return nil
}

// parseStringTableBytes runs the path-based string table codec over bytes
// extracted from an archive, via a scratch file.
func (l *Loader) parseStringTableBytes(ref string, data []byte) (*codec.StringTable, error) {
	tmp, err := os.CreateTemp("", "strtable-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	table, err := l.codecs.ParseStringTable(tmp.Name())
	if err != nil {
		return nil, err
	}
	table.Source = ref
	return table, nil
}

// locateFile returns the first existing file named name in the ordered
// directory list.
func (l *Loader) locateFile(dirs []string, name string) (string, bool) {
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// normalizePath is the cache key for a module path.
func normalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(strings.TrimSpace(abs))
}
