package packguard

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/packguard/packguard/internal/artifacts"
	"github.com/packguard/packguard/internal/audit"
	"github.com/packguard/packguard/internal/config"
	"github.com/packguard/packguard/internal/engine"
	"github.com/packguard/packguard/internal/logger"
	"github.com/packguard/packguard/internal/monitor"
	"github.com/packguard/packguard/internal/policy"
	"github.com/packguard/packguard/internal/report"
	"github.com/packguard/packguard/internal/types"
)

// settings is the effective configuration after applying precedence:
// CLI > local (or --config) > global.
type settings struct {
	gameDir       string
	logLevel      string
	noColor       bool
	noCache       bool
	maxEntryBytes int64
	interval      time.Duration
	watchEvents   bool
	extraKeywords []string
	extraModIDs   []string
	audit         config.AuditConfig
}

func loadSettings() (settings, error) {
	abs, err := filepath.Abs(flagGameDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve game directory: %w", err)
	}
	var gcfg, lcfg config.FileConfig
	if c, err := config.LoadGlobal(); err == nil {
		gcfg = c
	}
	if flagConfig != "" {
		c, err := config.LoadFile(flagConfig)
		if err != nil {
			return settings{}, fmt.Errorf("load config: %w", err)
		}
		lcfg = c
	} else if c, err := config.LoadLocal(abs); err == nil {
		lcfg = c
	}

	interval, err := pickInterval(flagInterval, lcfg, gcfg)
	if err != nil {
		return settings{}, err
	}
	auditCfg := gcfg.GetAuditConfig()
	if lcfg.Audit != nil {
		auditCfg = lcfg.GetAuditConfig()
	}
	return settings{
		gameDir:       abs,
		logLevel:      pickString(flagLogLevel, lcfg.LogLevel, gcfg.LogLevel),
		noColor:       pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor),
		noCache:       pickBool(flagNoCache, lcfg.NoCache, gcfg.NoCache),
		maxEntryBytes: pickInt64(flagMaxEntryBytes, lcfg.MaxEntryBytes, gcfg.MaxEntryBytes),
		interval:      interval,
		watchEvents:   pickBool(flagWatchEvents, lcfg.WatchEvents, gcfg.WatchEvents),
		extraKeywords: append(append([]string(nil), gcfg.ExtraKeywords...), lcfg.ExtraKeywords...),
		extraModIDs:   append(append([]string(nil), gcfg.ExtraModIDs...), lcfg.ExtraModIDs...),
		audit:         auditCfg,
	}, nil
}

func (s settings) newEngine(progress func(types.Outcome)) (*engine.Engine, error) {
	limits := artifacts.DefaultLimits()
	if s.maxEntryBytes > 0 {
		limits.MaxEntryBytes = s.maxEntryBytes
	}
	return engine.New(engine.Config{
		GameDir:   s.gameDir,
		Rules:     policy.NewRules(s.extraKeywords, s.extraModIDs),
		Inspector: artifacts.NewZipInspector(limits),
		NoCache:   s.noCache,
		Progress:  progress,
	})
}

func (s settings) newTrigger(e *engine.Engine) monitor.Trigger {
	if !s.watchEvents {
		return monitor.NewTicker(s.interval)
	}
	dirs := make([]string, 0, len(policy.MonitoredFolders))
	for _, f := range policy.MonitoredFolders {
		dirs = append(dirs, e.Folder(f))
	}
	t, err := monitor.NewWatchTrigger(s.interval, dirs)
	if err != nil {
		logger.Warnf("filesystem events unavailable, polling only: %v", err)
		return monitor.NewTicker(s.interval)
	}
	return t
}

func (s settings) printOptions(f *os.File) report.PrintOptions {
	return report.PrintOptions{NoColor: !report.ColorEnabled(s.noColor, f)}
}

func (s settings) auditLog() *audit.AuditLog {
	if !s.audit.IsEnabled() {
		return nil
	}
	if p := s.audit.GetPath(); p != "" {
		return audit.NewAuditLogAt(p)
	}
	return audit.NewAuditLog(s.gameDir)
}

// record appends to the audit log when enabled. Failures never change the
// command's outcome.
func (s settings) record(r audit.Record) {
	log := s.auditLog()
	if log == nil {
		return
	}
	if err := log.Log(r); err != nil {
		logger.Debugf("audit: %v", err)
	}
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

func pickInterval(cli time.Duration, local, global config.FileConfig) (time.Duration, error) {
	if cli > 0 {
		return cli, nil
	}
	for _, fc := range []config.FileConfig{local, global} {
		d, err := fc.Interval()
		if err != nil {
			return 0, err
		}
		if d > 0 {
			return d, nil
		}
	}
	return monitor.DefaultInterval, nil
}
