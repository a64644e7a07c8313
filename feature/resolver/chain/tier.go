package chain

import "resource-manager/feature/resolver/index"

// Tier is one priority level in the override chain. Lower values outrank
// higher ones; TierAddon is the highest priority and TierBase the lowest.
type Tier int

const (
	// TierAddon holds add-on package overrides. Packages keep their load
	// order; the first package in the load list wins among packages.
	TierAddon Tier = iota
	// TierCustom holds custom override directories.
	TierCustom
	// TierWorkshop holds workshop-style mod directories.
	TierWorkshop
	// TierOverride holds the traditional user override directory.
	TierOverride
	// TierCampaign holds the active campaign folder.
	TierCampaign
	// TierModule holds the active module package's own resources.
	TierModule
	// TierBase holds the base-game and expansion archives. It is the only
	// tier guaranteed to contain every standard resource name.
	TierBase
)

// dirTiers lists the non-addon tiers in priority order.
var dirTiers = []Tier{TierCustom, TierWorkshop, TierOverride, TierCampaign, TierModule, TierBase}

// String returns the tier name used in logs and cache metadata.
func (t Tier) String() string {
	switch t {
	case TierAddon:
		return "addon"
	case TierCustom:
		return "custom"
	case TierWorkshop:
		return "workshop"
	case TierOverride:
		return "override"
	case TierCampaign:
		return "campaign"
	case TierModule:
		return "module"
	case TierBase:
		return "base"
	default:
		return "unknown"
	}
}

// TierFromString is the inverse of String. The second return is false for
// unknown names, including "addon": add-on tiers are module-scoped and never
// round-trip through cache metadata.
func TierFromString(name string) (Tier, bool) {
	for _, t := range dirTiers {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// AddonTier is one add-on package's override map, in load order.
type AddonTier struct {
	// Name is the add-on package name from the module manifest.
	Name string
	// Locations maps lower-cased resource names to package locations.
	Locations map[string]index.Location
}
