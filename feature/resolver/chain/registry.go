package chain

import (
	"fmt"
	"os"
	"strings"

	"resource-manager/core/codec"
	"resource-manager/feature/resolver/index"

	"go.uber.org/zap"
)

// entry is the two-state tier slot: a location that has not been parsed yet,
// or a memoized parsed table.
type entry struct {
	loc   index.Location
	table *codec.Table
}

// Registry owns the tier maps and implements precedence resolution. It is
// the only component allowed to mutate tier contents. Not safe for
// concurrent use; callers serialize access to the engine.
type Registry struct {
	codecs codec.Set
	logger *zap.Logger
	addons []addonEntries
	tiers  map[Tier]map[string]*entry
}

type addonEntries struct {
	name    string
	entries map[string]*entry
}

// NewRegistry creates a registry with every tier empty.
func NewRegistry(codecs codec.Set, logger *zap.Logger) *Registry {
	r := &Registry{
		codecs: codecs,
		logger: logger,
		tiers:  make(map[Tier]map[string]*entry),
	}
	for _, t := range dirTiers {
		r.tiers[t] = make(map[string]*entry)
	}
	return r
}

// SetTier replaces a non-addon tier's contents wholesale. Previously
// memoized parses for that tier are discarded with it.
func (r *Registry) SetTier(tier Tier, locations map[string]index.Location) {
	entries := make(map[string]*entry, len(locations))
	for name, loc := range locations {
		entries[strings.ToLower(name)] = &entry{loc: loc}
	}
	r.tiers[tier] = entries
	r.logger.Debug("tier installed", zap.Stringer("tier", tier), zap.Int("names", len(entries)))
}

// SetAddons replaces the add-on package tiers. The slice order is the load
// order: the first package wins among packages, and the order is never
// changed after installation.
func (r *Registry) SetAddons(addons []AddonTier) {
	r.addons = make([]addonEntries, 0, len(addons))
	for _, a := range addons {
		entries := make(map[string]*entry, len(a.Locations))
		for name, loc := range a.Locations {
			entries[strings.ToLower(name)] = &entry{loc: loc}
		}
		r.addons = append(r.addons, addonEntries{name: a.Name, entries: entries})
	}
}

// ClearModuleTiers empties the module, add-on and campaign tiers together.
// Module switches always rebuild these three from scratch, never merge.
func (r *Registry) ClearModuleTiers() {
	r.addons = nil
	r.tiers[TierModule] = make(map[string]*entry)
	r.tiers[TierCampaign] = make(map[string]*entry)
}

// Resolve returns the parsed table for the highest-priority tier containing
// the name, parsing and memoizing on first access. A parse or read failure
// on a located resource is a *CorruptError and does not fall through to a
// lower tier. Absence from every tier is ErrNotFound.
func (r *Registry) Resolve(name string) (*codec.Table, error) {
	key := strings.ToLower(name)
	tier, e, ok := r.lookup(key)
	if !ok {
		return nil, fmt.Errorf("resolving %s: %w", key, ErrNotFound)
	}
	if e.table != nil {
		return e.table, nil
	}
	table, err := r.parse(key, e.loc)
	if err != nil {
		return nil, &CorruptError{Name: key, Tier: tier, Err: err}
	}
	e.table = table
	return table, nil
}

// Locate returns the winning tier for a name without parsing anything. The
// returned table is non-nil only when that tier already memoized a parse.
func (r *Registry) Locate(name string) (Tier, *codec.Table, bool) {
	tier, e, ok := r.lookup(strings.ToLower(name))
	if !ok {
		return 0, nil, false
	}
	return tier, e.table, true
}

// Preload memoizes an externally parsed table into a non-addon tier, used
// when the precompiled cache already holds the parse for the winning tier.
// The name must currently be located in that tier; other calls are ignored.
func (r *Registry) Preload(tier Tier, name string, table *codec.Table) {
	if tier == TierAddon {
		return
	}
	if e, ok := r.tiers[tier][strings.ToLower(name)]; ok {
		e.table = table
	}
}

// Contains reports whether any tier knows the name.
func (r *Registry) Contains(name string) bool {
	_, _, ok := r.lookup(strings.ToLower(name))
	return ok
}

// Names returns the resource names held by a non-addon tier.
func (r *Registry) Names(tier Tier) []string {
	entries := r.tiers[tier]
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	return names
}

// Invalidate drops the memoized parses for the listed names in every tier
// that caches them. Locations stay installed; the next Resolve re-reads and
// re-parses. Used after on-disk modification is detected.
func (r *Registry) Invalidate(names []string, reason string) {
	dropped := 0
	for _, name := range names {
		key := strings.ToLower(name)
		for i := range r.addons {
			if e, ok := r.addons[i].entries[key]; ok && e.table != nil {
				e.table = nil
				dropped++
			}
		}
		for _, t := range dirTiers {
			if e, ok := r.tiers[t][key]; ok && e.table != nil {
				e.table = nil
				dropped++
			}
		}
	}
	if dropped > 0 {
		r.logger.Info("invalidated cached parses",
			zap.Int("entries", dropped),
			zap.String("reason", reason),
		)
	}
}

// lookup walks the tiers in priority order: add-on packages in load order,
// then the directory tiers, campaign, module and finally base.
func (r *Registry) lookup(key string) (Tier, *entry, bool) {
	for i := range r.addons {
		if e, ok := r.addons[i].entries[key]; ok {
			return TierAddon, e, true
		}
	}
	for _, t := range dirTiers {
		if e, ok := r.tiers[t][key]; ok {
			return t, e, true
		}
	}
	return 0, nil, false
}

// parse reads the located bytes and runs the table codec.
func (r *Registry) parse(key string, loc index.Location) (*codec.Table, error) {
	data, err := r.read(loc)
	if err != nil {
		return nil, err
	}
	table, err := r.codecs.ParseTable(data)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("parsed resource",
		zap.String("name", key),
		zap.String("container", loc.Container),
		zap.Stringer("kind", loc.Kind),
	)
	return table, nil
}

// read fetches raw bytes for a location.
func (r *Registry) read(loc index.Location) ([]byte, error) {
	switch loc.Kind {
	case index.KindFile:
		return os.ReadFile(loc.Container)
	case index.KindArchive:
		a, err := r.codecs.OpenArchive(loc.Container)
		if err != nil {
			return nil, err
		}
		defer a.Close()
		return a.Extract(loc.Internal)
	case index.KindPackage:
		if loc.Handle == nil {
			return nil, fmt.Errorf("package location %s has no open handle", loc.Container)
		}
		return loc.Handle.Extract(loc.Internal)
	default:
		return nil, fmt.Errorf("unknown location kind %d", loc.Kind)
	}
}
