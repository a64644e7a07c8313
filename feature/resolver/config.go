package resolver

// Config holds the resource engine's filesystem layout and cache switches.
// All paths are read-only inputs supplied at construction.
type Config struct {
	// InstallRoot is the game installation root.
	InstallRoot string `mapstructure:"install_root" default:"."`
	// Archives lists the base-game and expansion archives in priority
	// order: base first, expansions after it. When two archives define the
	// same resource, the later archive in this list wins. Relative paths
	// are resolved against InstallRoot.
	Archives []string `mapstructure:"archives" default:""`
	// CacheDir is the user-writable directory for the precompiled cache.
	CacheDir string `mapstructure:"cache_dir" default:"cache"`
	// WorkshopDir is the workshop-style mod directory.
	WorkshopDir string `mapstructure:"workshop_dir" default:""`
	// OverrideDir is the traditional user override directory.
	OverrideDir string `mapstructure:"override_dir" default:""`
	// CustomOverrideDirs are additional override directories. They are
	// merged into one tier; a later directory in the list wins.
	CustomOverrideDirs []string `mapstructure:"custom_override_dirs" default:""`
	// AddonDirs are searched, in order, for add-on package files named in
	// module manifests.
	AddonDirs []string `mapstructure:"addon_dirs" default:""`
	// ModuleDirs are searched, in order, for module packages by name.
	ModuleDirs []string `mapstructure:"module_dirs" default:""`
	// CampaignDirs are the roots scanned for campaign folders.
	CampaignDirs []string `mapstructure:"campaign_dirs" default:""`
	// StringTableDirs are searched for custom string tables.
	StringTableDirs []string `mapstructure:"string_table_dirs" default:""`
	// EnablePrecache switches the on-disk precompiled cache.
	EnablePrecache bool `mapstructure:"enable_precache" default:"true"`
	// ModuleCacheSize bounds the number of loaded module contexts kept in
	// memory.
	ModuleCacheSize int `mapstructure:"module_cache_size" default:"5"`
}
