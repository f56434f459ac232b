package engine

import (
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// IsModArchive reports whether a file below mods/ should be opened as a mod
// archive. Matching is on the case-folded base name.
func (e *Engine) IsModArchive(path string) bool {
	return matchAnyGlob(strings.ToLower(filepath.Base(path)), e.cfg.ModPatterns)
}

// isAtlasEntry reports whether an archive entry is a terrain atlas.
func (e *Engine) isAtlasEntry(name string) bool {
	return matchAnyGlob(strings.ToLower(strings.ReplaceAll(name, "\\", "/")), e.cfg.AtlasPatterns)
}

// matchAnyGlob matches forward-slash names against doublestar globs, trying
// the full name first and then the base name.
func matchAnyGlob(name string, globs []string) bool {
	for _, g := range globs {
		g = strings.ToLower(g)
		if ok, _ := doublestar.Match(g, name); ok {
			return true
		}
		if i := strings.LastIndex(name, "/"); i >= 0 {
			if ok, _ := doublestar.Match(g, name[i+1:]); ok {
				return true
			}
		}
	}
	return false
}
