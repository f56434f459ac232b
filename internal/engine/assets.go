package engine

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/packguard/packguard/internal/artifacts"
	"github.com/packguard/packguard/internal/cache"
	"github.com/packguard/packguard/internal/imaging"
	"github.com/packguard/packguard/internal/logger"
	"github.com/packguard/packguard/internal/types"
)

// CheckFile applies the asset policy to one file: skip it when its
// fingerprint is unchanged, reject banned names, and for archives reject
// banned entry names and hollowed terrain atlases. A file that passes is
// recorded in the fingerprint cache immediately.
func (e *Engine) CheckFile(path string) types.Outcome {
	fp, haveFP := cache.Stat(path)
	if haveFP && !e.cfg.NoCache && e.store.Unchanged(path, fp) {
		return types.SkipOutcome(path, ReasonUnchanged)
	}

	name := strings.ToLower(filepath.Base(path))
	if _, hit := e.rules.MatchesBannedKeyword(name); hit {
		return types.ViolationOutcome(path, "Banned resource: "+name)
	}

	out := types.CleanOutcome(path)
	if artifacts.IsArchive(path) {
		out = e.inspectPack(path, name)
		if out.Status == types.Violation {
			return out
		}
	}
	if !haveFP {
		// nothing to key the cache on; it gets checked again next time
		return types.SkipOutcome(path, ReasonUnreadable)
	}
	if out.Status == types.Skipped && out.Reason != ReasonCorrupt {
		// only partly inspected: never trust it as clean
		return out
	}
	if !e.cfg.NoCache {
		e.store.Record(path, fp)
	}
	return out
}

func (e *Engine) inspectPack(path, name string) types.Outcome {
	entries, err := e.insp.ListEntries(path)
	if err != nil {
		logger.Debugf("list %s: %v", path, err)
		return types.SkipOutcome(path, skipReason(err))
	}
	var unread error
	for _, entry := range entries {
		if _, hit := e.rules.MatchesBannedKeyword(entry); hit {
			return types.ViolationOutcome(path, "Banned content: "+entry)
		}
		if !e.isAtlasEntry(entry) {
			continue
		}
		data, err := e.insp.ReadEntry(path, entry)
		if err != nil {
			logger.Debugf("read %s::%s: %v", path, entry, err)
			if !errors.Is(err, artifacts.ErrCorruptArchive) && unread == nil {
				unread = err
			}
			continue
		}
		if imaging.LooksLikeXray(data) {
			return types.ViolationOutcome(path, "X-ray detected: "+name)
		}
	}
	if unread != nil {
		// an atlas that could not be analyzed leaves the pack unverified
		return types.SkipOutcome(path, skipReason(unread))
	}
	return types.CleanOutcome(path)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, artifacts.ErrCorruptArchive):
		return ReasonCorrupt
	case errors.Is(err, artifacts.ErrLimitExceeded):
		return ReasonTooLarge
	default:
		return ReasonUnreadable
	}
}
