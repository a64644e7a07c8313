package chain

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"resource-manager/core/codec"
	"resource-manager/core/codec/mocks"
	"resource-manager/feature/resolver/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry() *Registry {
	return NewRegistry(codec.NewBasicSet(), zap.NewNop())
}

// fileLoc writes a one-row table with the given marker value and returns its
// location.
func fileLoc(t *testing.T, dir, name, marker string) index.Location {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("Value\nrow0 "+marker+"\n"), 0o644))
	return index.Location{Container: path, Kind: index.KindFile}
}

func markerOf(t *testing.T, table *codec.Table) string {
	t.Helper()
	v, ok := table.Lookup("row0", "Value")
	require.True(t, ok)
	return v
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	const name = "classes.2da"

	// Every non-addon tier plus one addon package, each with a distinct
	// marker. The winner must always be the highest-priority tier present,
	// for every combination of tiers that also contain the name.
	tiers := []Tier{TierCustom, TierWorkshop, TierOverride, TierCampaign, TierModule, TierBase}
	locs := map[Tier]index.Location{
		TierAddon: fileLoc(t, dir, "addon.2da", "addon"),
	}
	for _, tier := range tiers {
		locs[tier] = fileLoc(t, dir, tier.String()+".2da", tier.String())
	}
	all := append([]Tier{TierAddon}, tiers...)

	for mask := 1; mask < 1<<len(all); mask++ {
		r := newTestRegistry()
		var present []Tier
		for i, tier := range all {
			if mask&(1<<i) == 0 {
				continue
			}
			present = append(present, tier)
			if tier == TierAddon {
				r.SetAddons([]AddonTier{{Name: "p1", Locations: map[string]index.Location{name: locs[tier]}}})
			} else {
				r.SetTier(tier, map[string]index.Location{name: locs[tier]})
			}
		}

		table, err := r.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, present[0].String(), markerOf(t, table), "present tiers: %v", present)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Resolve("ghost.2da")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveCorruptOverride(t *testing.T) {
	dir := t.TempDir()
	const name = "classes.2da"

	bad := filepath.Join(dir, "bad.2da")
	require.NoError(t, os.WriteFile(bad, []byte("Name\nrow0\n"), 0o644))

	r := newTestRegistry()
	r.SetTier(TierWorkshop, map[string]index.Location{name: {Container: bad, Kind: index.KindFile}})
	r.SetTier(TierBase, map[string]index.Location{name: fileLoc(t, dir, "base.2da", "base")})

	// A corrupt higher-priority override surfaces; it never falls through
	// to the base value.
	_, err := r.Resolve(name)
	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, TierWorkshop, corrupt.Tier)
	assert.Equal(t, name, corrupt.Name)
}

func TestResolveMemoizes(t *testing.T) {
	dir := t.TempDir()
	loc := fileLoc(t, dir, "skills.2da", "base")

	set := new(mocks.Set)
	parsed := &codec.Table{Columns: []string{"Value"}, Rows: [][]string{{"row0", "base"}}}
	set.On("ParseTable", mock.Anything).Return(parsed, nil).Once()

	r := NewRegistry(set, zap.NewNop())
	r.SetTier(TierBase, map[string]index.Location{"skills.2da": loc})

	first, err := r.Resolve("skills.2da")
	require.NoError(t, err)
	second, err := r.Resolve("skills.2da")
	require.NoError(t, err)
	assert.Same(t, first, second)
	set.AssertExpectations(t)
}

func TestResolveFromArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	ew, err := w.Create("Feat.2DA")
	require.NoError(t, err)
	_, err = ew.Write([]byte("Value\nrow0 archived\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	r := newTestRegistry()
	r.SetTier(TierBase, map[string]index.Location{
		"feat.2da": {Container: path, Internal: "Feat.2DA", Kind: index.KindArchive},
	})

	table, err := r.Resolve("FEAT.2DA")
	require.NoError(t, err)
	assert.Equal(t, "archived", markerOf(t, table))
}

func TestAddonOrder(t *testing.T) {
	dir := t.TempDir()
	const name = "spells.2da"

	r := newTestRegistry()
	r.SetAddons([]AddonTier{
		{Name: "p1", Locations: map[string]index.Location{name: fileLoc(t, dir, "p1.2da", "p1")}},
		{Name: "p2", Locations: map[string]index.Location{name: fileLoc(t, dir, "p2.2da", "p2")}},
	})

	// First package in the load list wins among packages.
	table, err := r.Resolve(name)
	require.NoError(t, err)
	assert.Equal(t, "p1", markerOf(t, table))
}

func TestInvalidate(t *testing.T) {
	dir := t.TempDir()
	const name = "classes.2da"
	loc := fileLoc(t, dir, name, "before")

	r := newTestRegistry()
	r.SetTier(TierOverride, map[string]index.Location{name: loc})

	table, err := r.Resolve(name)
	require.NoError(t, err)
	assert.Equal(t, "before", markerOf(t, table))

	require.NoError(t, os.WriteFile(loc.Container, []byte("Value\nrow0 after\n"), 0o644))

	// Without invalidation the memoized parse is served.
	table, err = r.Resolve(name)
	require.NoError(t, err)
	assert.Equal(t, "before", markerOf(t, table))

	r.Invalidate([]string{name}, "test")
	table, err = r.Resolve(name)
	require.NoError(t, err)
	assert.Equal(t, "after", markerOf(t, table))
}

func TestClearModuleTiers(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry()
	r.SetAddons([]AddonTier{{Name: "p1", Locations: map[string]index.Location{"a.2da": fileLoc(t, dir, "a.2da", "p1")}}})
	r.SetTier(TierModule, map[string]index.Location{"m.2da": fileLoc(t, dir, "m.2da", "mod")})
	r.SetTier(TierCampaign, map[string]index.Location{"c.2da": fileLoc(t, dir, "c.2da", "camp")})
	r.SetTier(TierBase, map[string]index.Location{"b.2da": fileLoc(t, dir, "b.2da", "base")})

	r.ClearModuleTiers()

	for _, name := range []string{"a.2da", "m.2da", "c.2da"} {
		_, err := r.Resolve(name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
	_, err := r.Resolve("b.2da")
	assert.NoError(t, err)
}

func TestLocateAndPreload(t *testing.T) {
	dir := t.TempDir()
	const name = "classes.2da"

	r := newTestRegistry()
	r.SetTier(TierBase, map[string]index.Location{name: fileLoc(t, dir, name, "base")})

	tier, memo, ok := r.Locate(name)
	require.True(t, ok)
	assert.Equal(t, TierBase, tier)
	assert.Nil(t, memo)

	cached := &codec.Table{Columns: []string{"Value"}, Rows: [][]string{{"row0", "cached"}}}
	r.Preload(TierBase, name, cached)

	_, memo, ok = r.Locate(name)
	require.True(t, ok)
	assert.Same(t, cached, memo)

	table, err := r.Resolve(name)
	require.NoError(t, err)
	assert.Same(t, cached, table)

	_, _, ok = r.Locate("ghost.2da")
	assert.False(t, ok)
	assert.False(t, r.Contains("ghost.2da"))
	assert.True(t, r.Contains(name))
}
