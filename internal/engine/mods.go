package engine

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/packguard/packguard/internal/logger"
	"github.com/packguard/packguard/internal/policy"
	"github.com/packguard/packguard/internal/types"
	"github.com/pelletier/go-toml/v2"
)

// Manifest entry names, in the order they are consulted.
const (
	ManifestFabric      = "fabric.mod.json"
	ManifestForgeLegacy = "mcmod.info"
	ManifestForge       = "META-INF/mods.toml"
)

type fabricManifest struct {
	ID string `json:"id"`
}

type forgeManifest struct {
	Mods []struct {
		ModID string `toml:"modId"`
	} `toml:"mods"`
}

// CheckMod applies the mod policy to one archive: find the first recognized
// manifest and reject banned mod identifiers. Mods bypass the fingerprint
// cache and are re-verified on every scan.
func (e *Engine) CheckMod(path string) types.Outcome {
	entries, err := e.insp.ListEntries(path)
	if err != nil {
		logger.Debugf("list %s: %v", path, err)
		return types.SkipOutcome(path, skipReason(err))
	}
	present := make(map[string]bool, len(entries))
	for _, name := range entries {
		present[name] = true
	}
	switch {
	case present[ManifestFabric]:
		return e.checkFabric(path)
	case present[ManifestForgeLegacy]:
		return e.checkForgeLegacy(path)
	case present[ManifestForge]:
		return e.checkForge(path)
	}
	return types.SkipOutcome(path, ReasonNoManifest)
}

func (e *Engine) readManifest(path, entry string) (string, bool) {
	b, err := e.insp.ReadEntry(path, entry)
	if err != nil {
		logger.Debugf("read %s::%s: %v", path, entry, err)
		return "", false
	}
	return policy.DecodeText(b), true
}

func (e *Engine) checkFabric(path string) types.Outcome {
	text, ok := e.readManifest(path, ManifestFabric)
	if !ok {
		return types.SkipOutcome(path, ReasonUnreadable)
	}
	var m fabricManifest
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return types.SkipOutcome(path, ReasonBadManifest)
	}
	id := strings.ToLower(m.ID)
	if _, hit := e.rules.MatchesBannedModID(id); hit {
		return types.ViolationOutcome(path, "Banned mod: "+id)
	}
	return types.CleanOutcome(path)
}

// mcmod.info is loosely structured JSON in the wild, so the whole text is
// matched instead of a parsed id.
func (e *Engine) checkForgeLegacy(path string) types.Outcome {
	text, ok := e.readManifest(path, ManifestForgeLegacy)
	if !ok {
		return types.SkipOutcome(path, ReasonUnreadable)
	}
	if _, hit := e.rules.MatchesBannedModID(text); hit {
		return types.ViolationOutcome(path, "Banned mod in "+filepath.Base(path))
	}
	return types.CleanOutcome(path)
}

func (e *Engine) checkForge(path string) types.Outcome {
	text, ok := e.readManifest(path, ManifestForge)
	if !ok {
		return types.SkipOutcome(path, ReasonUnreadable)
	}
	var m forgeManifest
	if err := toml.Unmarshal([]byte(text), &m); err != nil {
		return types.SkipOutcome(path, ReasonBadManifest)
	}
	for _, mod := range m.Mods {
		id := strings.ToLower(mod.ModID)
		if _, hit := e.rules.MatchesBannedModID(id); hit {
			return types.ViolationOutcome(path, "Banned mod: "+id)
		}
	}
	return types.CleanOutcome(path)
}
