package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/packguard/packguard/internal/artifacts"
	"github.com/packguard/packguard/internal/cache"
	"github.com/packguard/packguard/internal/logger"
	"github.com/packguard/packguard/internal/policy"
	"github.com/packguard/packguard/internal/types"
	"github.com/sirupsen/logrus"
)

// Skip reasons reported in Outcome.Reason.
const (
	ReasonUnchanged   = "unchanged"
	ReasonCorrupt     = "corrupt archive"
	ReasonTooLarge    = "entry too large"
	ReasonUnreadable  = "unreadable"
	ReasonNoManifest  = "no recognized manifest"
	ReasonBadManifest = "malformed manifest"
)

// Config controls scanning behavior. Zero values select the defaults.
type Config struct {
	GameDir string
	// Rules defaults to policy.DefaultRules().
	Rules *policy.Rules
	// Inspector defaults to a ZipInspector with default limits.
	Inspector artifacts.Inspector
	// Cache defaults to the fingerprint store at <GameDir>/anticheat_cache.json.
	Cache *cache.Store
	// NoCache disables fingerprint skipping and persistence.
	NoCache bool
	// ModPatterns select which files under mods/ are opened as mod archives.
	ModPatterns []string
	// AtlasPatterns select which archive entries are run through the x-ray
	// heuristic.
	AtlasPatterns []string
	// Progress, when set, observes every per-file outcome.
	Progress func(types.Outcome)
}

var (
	defaultModPatterns   = []string{"*.jar", "*.zip"}
	defaultAtlasPatterns = []string{"**/*terrain.png"}
)

// Engine scans one game directory. It owns that directory's fingerprint
// cache; do not run two engines against the same directory.
type Engine struct {
	cfg   Config
	root  string
	rules *policy.Rules
	insp  artifacts.Inspector
	store *cache.Store
}

// New resolves cfg defaults and loads the fingerprint cache.
func New(cfg Config) (*Engine, error) {
	if cfg.GameDir == "" {
		return nil, errors.New("engine: game directory is required")
	}
	root, err := filepath.Abs(cfg.GameDir)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve game directory: %w", err)
	}
	cfg.GameDir = root
	if cfg.Rules == nil {
		cfg.Rules = policy.DefaultRules()
	}
	if cfg.Inspector == nil {
		cfg.Inspector = artifacts.NewZipInspector(artifacts.DefaultLimits())
	}
	if len(cfg.ModPatterns) == 0 {
		cfg.ModPatterns = defaultModPatterns
	}
	if len(cfg.AtlasPatterns) == 0 {
		cfg.AtlasPatterns = defaultAtlasPatterns
	}
	if cfg.Cache == nil {
		if cfg.NoCache {
			cfg.Cache = cache.Memory()
		} else {
			cfg.Cache = cache.Open(cache.PathFor(root))
		}
	}
	if cfg.Cache.OnSaveError == nil {
		cfg.Cache.OnSaveError = func(err error) {
			logger.Debugf("fingerprint cache not persisted: %v", err)
		}
	}
	return &Engine{
		cfg:   cfg,
		root:  root,
		rules: cfg.Rules,
		insp:  cfg.Inspector,
		store: cfg.Cache,
	}, nil
}

// GameDir returns the absolute game directory.
func (e *Engine) GameDir() string { return e.root }

// Rules returns the active rule set.
func (e *Engine) Rules() *policy.Rules { return e.rules }

// Cache returns the fingerprint store.
func (e *Engine) Cache() *cache.Store { return e.store }

// SetProgress replaces the per-outcome observer. Call it before a scan, not
// during one.
func (e *Engine) SetProgress(fn func(types.Outcome)) { e.cfg.Progress = fn }

// Folder returns the absolute path of a monitored folder.
func (e *Engine) Folder(name string) string { return filepath.Join(e.root, name) }

// EnsureFolders creates any missing monitored folder. Failures are logged and
// otherwise ignored: a missing folder scans as empty.
func (e *Engine) EnsureFolders() {
	for _, f := range policy.MonitoredFolders {
		if err := os.MkdirAll(e.Folder(f), 0o755); err != nil {
			logger.Debugf("create %s: %v", f, err)
		}
	}
}

// Result contains basic scan statistics. A scan that found a violation
// returns it as the error alongside the partial Result.
type Result struct {
	Checked     int
	Cached      int
	Skipped     int
	SkipReasons map[string]int
	Duration    time.Duration
}

// Files returns the number of files visited.
func (r Result) Files() int { return r.Checked + r.Cached + r.Skipped }

func (r *Result) add(o types.Outcome) {
	switch o.Status {
	case types.Clean:
		r.Checked++
	case types.Skipped:
		if o.Reason == ReasonUnchanged {
			r.Cached++
			return
		}
		r.Skipped++
		if r.SkipReasons == nil {
			r.SkipReasons = map[string]int{}
		}
		r.SkipReasons[o.Reason]++
	}
}

// Merge folds other into r.
func (r *Result) Merge(other Result) {
	r.Checked += other.Checked
	r.Cached += other.Cached
	r.Skipped += other.Skipped
	r.Duration += other.Duration
	for k, v := range other.SkipReasons {
		if r.SkipReasons == nil {
			r.SkipReasons = map[string]int{}
		}
		r.SkipReasons[k] += v
	}
}

// Scan runs the asset scan followed by the mod scan.
func (e *Engine) Scan(ctx context.Context) (Result, error) {
	res, err := e.ScanAssets(ctx)
	if err != nil {
		return res, err
	}
	mods, err := e.ScanMods(ctx)
	res.Merge(mods)
	return res, err
}

// ScanAssets checks every file below texturepacks/ and resourcepacks/.
func (e *Engine) ScanAssets(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	for _, folder := range policy.AssetFolders {
		err := e.walk(ctx, e.Folder(folder), nil, e.CheckFile, &res)
		if err != nil {
			res.Duration = time.Since(started)
			return res, err
		}
	}
	res.Duration = time.Since(started)
	return res, nil
}

// ScanMods checks every mod archive below mods/.
func (e *Engine) ScanMods(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	err := e.walk(ctx, e.Folder(policy.FolderMods), e.IsModArchive, e.CheckMod, &res)
	res.Duration = time.Since(started)
	return res, err
}

// CountTargets estimates the number of files a full Scan visits.
func (e *Engine) CountTargets() int {
	n := 0
	count := func(string) types.Outcome {
		n++
		return types.CleanOutcome("")
	}
	for _, folder := range policy.AssetFolders {
		_ = walkFiles(context.Background(), e.Folder(folder), nil, count)
	}
	_ = walkFiles(context.Background(), e.Folder(policy.FolderMods), e.IsModArchive, count)
	return n
}

func (e *Engine) walk(ctx context.Context, dir string, accept func(string) bool, check func(string) types.Outcome, res *Result) error {
	return walkFiles(ctx, dir, accept, func(p string) types.Outcome {
		o := check(p)
		res.add(o)
		if e.cfg.Progress != nil {
			e.cfg.Progress(o)
		}
		if o.Status == types.Skipped && o.Reason != ReasonUnchanged {
			logger.WithFields(logrus.Fields{"path": p, "reason": o.Reason}).Debug("skipped")
		}
		return o
	})
}
