package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resource-manager/core/codec"
	"resource-manager/feature/resolver/chain"
	"resource-manager/feature/resolver/index"
	"resource-manager/feature/resolver/module"
	"resource-manager/feature/resolver/precache"

	"go.uber.org/zap"
)

// SaveModuleMarker is the plain-text file inside a save folder naming the
// module the save was created in.
const SaveModuleMarker = "module.txt"

// CharacterTables lists the character-relevant tables captured in every
// precompiled cache build. Custom tables discovered in override tiers are
// cached in addition to these.
var CharacterTables = []string{
	"classes.2da",
	"racialtypes.2da",
	"skills.2da",
	"feat.2da",
	"spells.2da",
	"packages.2da",
	"appearance.2da",
	"gender.2da",
}

// Service is the resource engine facade. It owns every component and all
// mutable state; construct one per consumer and serialize any shared use
// externally.
type Service struct {
	cfg      Config
	codecs   codec.Set
	logger   *zap.Logger
	tracker  *index.Tracker
	scanner  *index.Scanner
	registry *chain.Registry
	modules  *module.LRU
	loader   *module.Loader
	cache    *precache.Manager

	state      precache.ModState
	cacheValid bool
	baseLocs   map[string]index.Location
}

// NewService wires a resource engine from its configuration and codec set.
func NewService(cfg Config, codecs codec.Set, logger *zap.Logger) *Service {
	tracker := index.NewTracker()
	scanner := index.NewScanner(codecs, tracker, logger)
	registry := chain.NewRegistry(codecs, logger)

	// The eviction callback must not close the active module's package:
	// its tiers are still installed and read through the open handle. The
	// loader is created after the cache, so the closure resolves it late.
	var loader *module.Loader
	modules := module.NewLRU(cfg.ModuleCacheSize, func(mc *module.Context) {
		if loader != nil {
			if active, ok := loader.ActiveContext(); ok && active == mc {
				return
			}
		}
		mc.Close()
	})
	loader = module.NewLoader(codecs, scanner, registry, modules, module.SearchPaths{
		AddonDirs:       cfg.AddonDirs,
		CampaignDirs:    cfg.CampaignDirs,
		StringTableDirs: cfg.StringTableDirs,
	}, logger)
	cache := precache.NewManager(cfg.EnablePrecache, cfg.CacheDir, logger)

	return &Service{
		cfg:      cfg,
		codecs:   codecs,
		logger:   logger,
		tracker:  tracker,
		scanner:  scanner,
		registry: registry,
		modules:  modules,
		loader:   loader,
		cache:    cache,
	}
}

// Start indexes the override chain. Directory tiers are always indexed from
// fresh listings; the base archive tier comes from the precompiled cache
// when its key matches the live mod set, and from a full archive scan
// followed by a cache rebuild otherwise.
func (s *Service) Start(ctx context.Context) error {
	if err := s.indexDirTiers(ctx); err != nil {
		return err
	}
	s.state = s.collectState()

	if s.cache.Validate(s.state) {
		locations, err := s.cache.Locations()
		if err == nil {
			s.baseLocs = locations
			s.registry.SetTier(chain.TierBase, locations)
			s.cacheValid = true
			s.logger.Info("started from precompiled cache", zap.Int("base_resources", len(locations)))
			return nil
		}
		s.logger.Warn("precompiled cache validated but unreadable, rescanning", zap.Error(err))
	}

	base, err := s.scanner.IndexArchives(ctx, s.archivePaths())
	if err != nil {
		return fmt.Errorf("indexing base archives: %w", err)
	}
	s.baseLocs = base
	s.registry.SetTier(chain.TierBase, base)
	s.logger.Info("indexed base archives", zap.Int("base_resources", len(base)))

	if s.cache.Enabled() {
		if err := s.RebuildPrecache(ctx); err != nil {
			s.logger.Warn("precompiled cache rebuild failed", zap.Error(err))
		}
	}
	return nil
}

// Resolve returns the parsed table for the highest-priority source of a
// resource name. The precompiled cache serves the parse only when its entry
// was collected from exactly the tier that wins right now, so cached data
// can never outrank a live override or an active module.
func (s *Service) Resolve(name string) (*codec.Table, error) {
	key := strings.ToLower(name)
	tier, memo, ok := s.registry.Locate(key)
	if !ok {
		return nil, fmt.Errorf("resolving %s: %w", key, chain.ErrNotFound)
	}
	if memo != nil {
		return memo, nil
	}
	if s.cacheValid {
		if table, cachedTier, err := s.cache.GetCachedTable(key); err == nil && cachedTier == tier {
			s.registry.Preload(tier, key, table)
			return table, nil
		}
	}
	return s.registry.Resolve(key)
}

// ActivateModule loads a module by package path or bare name (searched in
// the configured module directories) and installs its tiers.
func (s *Service) ActivateModule(ctx context.Context, nameOrPath string) (*module.Context, error) {
	path, err := s.locateModule(nameOrPath)
	if err != nil {
		return nil, err
	}
	return s.loader.Activate(ctx, path)
}

// ActivateModuleForSave loads a module with a pre-known add-on list and
// string table reference, as recorded in a specific save.
func (s *Service) ActivateModuleForSave(ctx context.Context, nameOrPath string, addons []string, stringTableRef string) (*module.Context, error) {
	path, err := s.locateModule(nameOrPath)
	if err != nil {
		return nil, err
	}
	return s.loader.ActivateForSave(ctx, path, addons, stringTableRef)
}

// DeactivateModule clears the module, add-on and campaign tiers.
func (s *Service) DeactivateModule() {
	s.loader.Deactivate()
}

// ActiveModule returns the active module context, if any.
func (s *Service) ActiveModule() (*module.Context, bool) {
	return s.loader.ActiveContext()
}

// LoadSaveContext reads the save folder's module marker and activates the
// named module. An absent marker means the save was created with base
// content only; that is not an error and leaves the chain as it is.
func (s *Service) LoadSaveContext(ctx context.Context, saveDir string) error {
	data, err := os.ReadFile(filepath.Join(saveDir, SaveModuleMarker))
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("save has no module marker, using base content", zap.String("save", saveDir))
			return nil
		}
		return fmt.Errorf("reading save module marker: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return nil
	}
	_, err = s.ActivateModule(ctx, name)
	return err
}

// CheckModified sweeps the tracked files, drops cached parses for any that
// changed, and rechecks the mod-set key. A key change means precedence
// changed (a file appeared or disappeared), which invalidates the
// precompiled cache and re-indexes the directory tiers. Returns the names
// whose cached parses were dropped.
func (s *Service) CheckModified(ctx context.Context) ([]string, error) {
	var changed []string
	for _, path := range s.tracker.Paths() {
		modified, err := s.tracker.IsModified(path)
		if err != nil {
			s.tracker.Forget(path)
			changed = append(changed, filepath.Base(path))
			continue
		}
		if modified {
			changed = append(changed, filepath.Base(path))
		}
	}
	if len(changed) > 0 {
		s.registry.Invalidate(changed, "on-disk modification")
		// A content change leaves the mod-set key intact, so the snapshot
		// would still validate; the changed names must leave its coverage.
		if err := s.cache.Drop(changed); err != nil {
			s.logger.Warn("dropping modified tables from precompiled cache failed", zap.Error(err))
			s.cacheValid = false
		}
	}

	live := s.collectState()
	if live.Key() != s.state.Key() {
		s.logger.Info("mod set changed, re-indexing override tiers",
			zap.String("old_key", s.state.Key()),
			zap.String("new_key", live.Key()),
		)
		s.state = live
		s.cacheValid = false
		if err := s.cache.Invalidate(); err != nil {
			return changed, err
		}
		if err := s.indexDirTiers(ctx); err != nil {
			return changed, err
		}
		if s.cache.Enabled() && s.baseLocs != nil {
			if err := s.RebuildPrecache(ctx); err != nil {
				s.logger.Warn("precompiled cache rebuild failed", zap.Error(err))
			}
		}
	}
	return changed, nil
}

// RebuildPrecache collects the curated table set through the override chain
// and writes a fresh snapshot for the current mod set.
func (s *Service) RebuildPrecache(ctx context.Context) error {
	tables := make(map[string]precache.TableEntry)
	for _, name := range s.curatedTables() {
		tier, memo, ok := s.registry.Locate(name)
		if !ok || tier == chain.TierAddon || tier == chain.TierModule || tier == chain.TierCampaign {
			// Module-scoped tiers are not part of the mod-set key and are
			// never snapshotted.
			continue
		}
		table := memo
		if table == nil {
			var err error
			table, err = s.registry.Resolve(name)
			if err != nil {
				s.logger.Warn("skipping uncacheable table", zap.String("name", name), zap.Error(err))
				continue
			}
		}
		tables[name] = precache.TableEntry{Table: table, Tier: tier}
	}

	if err := s.cache.Rebuild(ctx, s.state, tables, s.baseLocs); err != nil {
		s.cacheValid = false
		return err
	}
	s.cacheValid = true
	return nil
}

// InvalidatePrecache forces the slow path on the next start.
func (s *Service) InvalidatePrecache() error {
	s.cacheValid = false
	return s.cache.Invalidate()
}

// ClearCaches empties the module context cache. The currently installed
// tiers are not touched; only future re-activations redo loader work.
func (s *Service) ClearCaches() {
	s.modules.Clear()
}

// indexDirTiers rebuilds the custom, workshop and override tiers from
// directory listings.
func (s *Service) indexDirTiers(ctx context.Context) error {
	custom := make(map[string]index.Location)
	for _, dir := range s.cfg.CustomOverrideDirs {
		m, err := s.scanner.IndexDirectory(ctx, dir, true)
		if err != nil {
			return fmt.Errorf("indexing custom override dir: %w", err)
		}
		for name, loc := range m {
			custom[name] = loc
		}
	}
	s.registry.SetTier(chain.TierCustom, custom)

	workshop, err := s.scanner.IndexDirectory(ctx, s.cfg.WorkshopDir, true)
	if err != nil {
		return fmt.Errorf("indexing workshop dir: %w", err)
	}
	s.registry.SetTier(chain.TierWorkshop, workshop)

	override, err := s.scanner.IndexDirectory(ctx, s.cfg.OverrideDir, true)
	if err != nil {
		return fmt.Errorf("indexing override dir: %w", err)
	}
	s.registry.SetTier(chain.TierOverride, override)
	return nil
}

// curatedTables is the fixed character-relevant list plus custom tables
// present in override tiers but not in that list.
func (s *Service) curatedTables() []string {
	names := append([]string{}, CharacterTables...)
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		seen[n] = struct{}{}
	}
	for _, tier := range []chain.Tier{chain.TierCustom, chain.TierWorkshop, chain.TierOverride} {
		for _, n := range s.registry.Names(tier) {
			if _, ok := seen[n]; ok {
				continue
			}
			if strings.HasSuffix(n, ".2da") {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	return names
}

// collectState fingerprints the currently installed mod set.
func (s *Service) collectState() precache.ModState {
	return precache.CollectModState(s.cfg.InstallRoot, s.cfg.WorkshopDir, s.cfg.OverrideDir)
}

// archivePaths resolves the configured archive list against the install
// root, preserving order.
func (s *Service) archivePaths() []string {
	paths := make([]string, 0, len(s.cfg.Archives))
	for _, a := range s.cfg.Archives {
		if a == "" {
			continue
		}
		if !filepath.IsAbs(a) {
			a = filepath.Join(s.cfg.InstallRoot, a)
		}
		paths = append(paths, a)
	}
	return paths
}

// locateModule resolves a module argument: an existing package path is used
// as-is, otherwise the module directories are searched for the bare name,
// with and without the package extension.
func (s *Service) locateModule(nameOrPath string) (string, error) {
	if info, err := os.Stat(nameOrPath); err == nil && !info.IsDir() {
		return nameOrPath, nil
	}
	candidates := []string{nameOrPath}
	if filepath.Ext(nameOrPath) == "" {
		candidates = append(candidates, nameOrPath+".zip")
	}
	for _, dir := range s.cfg.ModuleDirs {
		for _, c := range candidates {
			path := filepath.Join(dir, c)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("module %s not found in configured module dirs", nameOrPath)
}
