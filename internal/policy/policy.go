// Package policy holds the banned-content rule sets and the pure matchers that
// evaluate file names, archive entry names and manifest text against them.
package policy

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Folder names monitored below a game directory.
const (
	FolderTexturePacks  = "texturepacks"
	FolderResourcePacks = "resourcepacks"
	FolderMods          = "mods"
)

var (
	// DefaultBannedKeywords are matched as case-insensitive substrings of file
	// and archive entry names.
	DefaultBannedKeywords = []string{"xray", "x-ray", "ore", "透视"}
	// DefaultBannedModIDs are matched as case-insensitive substrings of a mod
	// manifest id or its full text.
	DefaultBannedModIDs = []string{"wurst", "meteor-client", "aristois", "bleachhack", "liquidbounce", "baritone"}
	// MonitoredFolders are the top-level folders watched during a session.
	MonitoredFolders = []string{FolderTexturePacks, FolderResourcePacks, FolderMods}
	// AssetFolders are the folders covered by an asset scan.
	AssetFolders = []string{FolderTexturePacks, FolderResourcePacks}
)

// Rules is an immutable rule set.
type Rules struct {
	keywords termSet
	modIDs   termSet
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	return NewRules(nil, nil)
}

// NewRules returns the built-in rules extended with extra keywords and mod
// ids. Extras never replace the defaults.
func NewRules(extraKeywords, extraModIDs []string) *Rules {
	return &Rules{
		keywords: newTermSet(append(append([]string(nil), DefaultBannedKeywords...), extraKeywords...)),
		modIDs:   newTermSet(append(append([]string(nil), DefaultBannedModIDs...), extraModIDs...)),
	}
}

// Keywords returns the normalized banned keywords.
func (r *Rules) Keywords() []string { return append([]string(nil), r.keywords.terms...) }

// ModIDs returns the normalized banned mod identifiers.
func (r *Rules) ModIDs() []string { return append([]string(nil), r.modIDs.terms...) }

// MatchesBannedKeyword case-folds text and reports the first banned keyword
// it contains.
func (r *Rules) MatchesBannedKeyword(text string) (string, bool) {
	return r.keywords.find(strings.ToLower(text))
}

// MatchesBannedModID case-folds text and reports the first banned mod id it
// contains.
func (r *Rules) MatchesBannedModID(text string) (string, bool) {
	return r.modIDs.find(strings.ToLower(text))
}

// DecodeText decodes manifest bytes as UTF-8, dropping a leading BOM and
// replacing malformed sequences with U+FFFD.
func DecodeText(b []byte) string {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}
