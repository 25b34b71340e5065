package scanner

import (
	"path/filepath"
	"sort"
	"strings"
)

// ExtensionSet is a set of accepted file suffixes. Entries are stored
// lower-cased with a leading dot so membership checks are case-insensitive.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds a set from the given suffixes. A missing leading dot
// is added, casing is normalized and empty entries are ignored.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// DefaultExtensions returns the image formats recognized out of the box.
func DefaultExtensions() ExtensionSet {
	return NewExtensionSet(
		".png",
		".jpg",
		".jpeg",
		".bmp",
		".gif",
		".tiff",
		".tif",
		".webp",
		".heic",
		".heif",
		".svg",
		".ppm",
		".pgm",
	)
}

// Matches reports whether the path's suffix, lower-cased, is in the set.
func (s ExtensionSet) Matches(path string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[strings.ToLower(filepath.Ext(path))]
	return ok
}

// List returns the suffixes in the set, sorted.
func (s ExtensionSet) List() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
