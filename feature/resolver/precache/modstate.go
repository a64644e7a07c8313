package precache

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ModState captures everything that can change which resource wins a name
// without a module being active: the installation path and the file name
// listings of the workshop and user-override roots. It exists only to derive
// a cache key; file contents are never read.
type ModState struct {
	// InstallRoot is the game installation path.
	InstallRoot string `json:"install_root"`
	// WorkshopFiles is the sorted set of workshop file names.
	WorkshopFiles []string `json:"workshop_files"`
	// OverrideFiles is the sorted set of user-override file names.
	OverrideFiles []string `json:"override_files"`
}

// CollectModState enumerates the workshop and override roots. Missing roots
// contribute empty listings; enumeration never reads file contents.
func CollectModState(installRoot, workshopDir, overrideDir string) ModState {
	return ModState{
		InstallRoot:   filepath.Clean(installRoot),
		WorkshopFiles: listFiles(workshopDir),
		OverrideFiles: listFiles(overrideDir),
	}
}

// Key returns the stable cache key for this state: a hash over a canonical
// encoding of the fields. Equal states always produce equal keys.
func (s ModState) Key() string {
	var b strings.Builder
	b.WriteString(s.InstallRoot)
	b.WriteString("\x00workshop\x00")
	b.WriteString(strings.Join(s.WorkshopFiles, "\x00"))
	b.WriteString("\x00override\x00")
	b.WriteString(strings.Join(s.OverrideFiles, "\x00"))
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

// listFiles returns the sorted, lower-cased, root-relative names of every
// file under root.
func listFiles(root string) []string {
	var names []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return filepath.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = d.Name()
		}
		names = append(names, strings.ToLower(filepath.ToSlash(rel)))
		return nil
	})
	sort.Strings(names)
	return names
}
