package module

import (
	"fmt"

	"resource-manager/core/codec"
)

// ManifestEntry is the record entry name inside a module package.
const ManifestEntry = "manifest.json"

// Manifest holds the parsed module manifest fields. Optional fields are
// empty when absent; the schema is validated once here instead of probed at
// every use site.
type Manifest struct {
	// Name is the module's display name.
	Name string
	// EntryArea is the area the module starts in.
	EntryArea string
	// StringTableRef names the module's custom string table, if any.
	StringTableRef string
	// Addons lists the add-on package names in load order. The first
	// package in the list has the highest add-on priority.
	Addons []string
	// CampaignID identifies the campaign this module belongs to, if any.
	CampaignID string
}

// ParseManifest validates a manifest record. Name is the only required
// field.
func ParseManifest(rec *codec.Record) (*Manifest, error) {
	m := &Manifest{
		Name:           rec.String("name"),
		EntryArea:      rec.String("entry_area"),
		StringTableRef: rec.String("string_table"),
		Addons:         rec.Strings("addons"),
		CampaignID:     rec.String("campaign"),
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest has no name field")
	}
	return m, nil
}

// LoadError reports a failed module load. The chain registry is untouched
// when this is returned.
type LoadError struct {
	// Path is the module package path.
	Path string
	// Err is the underlying failure.
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading module %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
