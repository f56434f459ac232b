// Package monitor watches a game directory while a session runs. It diffs
// folder listings against a snapshot on every trigger tick, checks only the
// newly added files, and kills the session process on the first violation.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/packguard/packguard/internal/logger"
	"github.com/packguard/packguard/internal/policy"
	"github.com/packguard/packguard/internal/types"
	"github.com/sirupsen/logrus"
)

// Checker applies the single-file policies. *engine.Engine implements it.
type Checker interface {
	CheckFile(path string) types.Outcome
	CheckMod(path string) types.Outcome
	IsModArchive(path string) bool
}

// Process is the watched session. Exited must not block.
type Process interface {
	Exited() bool
	Kill() error
}

// State is the monitor lifecycle state.
type State int32

const (
	Idle State = iota
	Watching
	Violating
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Watching:
		return "watching"
	case Violating:
		return "violating"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config wires a Monitor. GameDir, Checker and Process are required.
type Config struct {
	GameDir string
	// Folders defaults to policy.MonitoredFolders.
	Folders []string
	Checker Checker
	Process Process
	// Trigger defaults to NewTicker(Interval).
	Trigger  Trigger
	Interval time.Duration
	// ListDir returns the entry names of dir. Defaults to os.ReadDir.
	ListDir func(dir string) ([]string, error)
}

// Monitor runs one watch session. Run may be called once.
type Monitor struct {
	cfg      Config
	state    atomic.Int32
	stop     atomic.Bool
	started  atomic.Bool
	events   chan types.PolicyViolation
	snapshot map[string]map[string]struct{}
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Monitor, error) {
	if cfg.GameDir == "" {
		return nil, errors.New("monitor: game directory is required")
	}
	if cfg.Checker == nil {
		return nil, errors.New("monitor: checker is required")
	}
	if cfg.Process == nil {
		return nil, errors.New("monitor: process is required")
	}
	if len(cfg.Folders) == 0 {
		cfg.Folders = policy.MonitoredFolders
	}
	if cfg.Trigger == nil {
		cfg.Trigger = NewTicker(cfg.Interval)
	}
	if cfg.ListDir == nil {
		cfg.ListDir = readNames
	}
	return &Monitor{
		cfg:    cfg,
		events: make(chan types.PolicyViolation, 1),
	}, nil
}

// State returns the current lifecycle state.
func (m *Monitor) State() State { return State(m.state.Load()) }

// Stop asks the monitor to exit at the next poll boundary. A check already in
// progress runs to completion.
func (m *Monitor) Stop() { m.stop.Store(true) }

// Violations carries at most one violation and is closed when Run returns.
func (m *Monitor) Violations() <-chan types.PolicyViolation { return m.events }

// Run snapshots the monitored folders and polls on every trigger tick until
// the process exits, Stop is called, ctx is cancelled or a violation is
// found. On a violation the process is killed, the violation is published on
// Violations and returned as a *types.PolicyViolation. Every other exit
// returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("monitor: Run called more than once")
	}
	defer close(m.events)
	defer func() {
		if err := m.cfg.Trigger.Close(); err != nil {
			logger.Debugf("monitor: close trigger: %v", err)
		}
	}()

	m.snapshot = make(map[string]map[string]struct{}, len(m.cfg.Folders))
	for _, f := range m.cfg.Folders {
		m.snapshot[f] = m.list(f)
	}
	m.setState(Watching)
	logger.WithFields(logrus.Fields{"game_dir": m.cfg.GameDir, "folders": m.cfg.Folders}).Info("monitor started")

	for {
		select {
		case <-ctx.Done():
			return m.finish("context done")
		case _, ok := <-m.cfg.Trigger.Ticks():
			if !ok {
				return m.finish("trigger closed")
			}
		}
		switch {
		case m.stop.Load():
			return m.finish("stop requested")
		case ctx.Err() != nil:
			return m.finish("context done")
		case m.cfg.Process.Exited():
			return m.finish("process exited")
		}
		if v := m.poll(); v != nil {
			m.setState(Violating)
			logger.WithFields(logrus.Fields{"path": v.Path, "reason": v.Reason}).Warn("violation during session")
			if err := m.cfg.Process.Kill(); err != nil {
				logger.Warnf("monitor: kill process: %v", err)
			}
			m.events <- *v
			m.setState(Stopped)
			return v
		}
	}
}

func (m *Monitor) finish(why string) error {
	m.setState(Stopped)
	logger.Infof("monitor stopped: %s", why)
	return nil
}

func (m *Monitor) setState(s State) { m.state.Store(int32(s)) }

// poll checks the names added to each folder since the last poll and then
// replaces that folder's snapshot. Removed names are ignored.
func (m *Monitor) poll() *types.PolicyViolation {
	for _, f := range m.cfg.Folders {
		current := m.list(f)
		prev := m.snapshot[f]
		var added []string
		for name := range current {
			if _, seen := prev[name]; !seen {
				added = append(added, name)
			}
		}
		slices.Sort(added)
		for _, name := range added {
			o := m.check(f, filepath.Join(m.cfg.GameDir, f, name))
			if o.Status == types.Violation {
				return &types.PolicyViolation{Reason: o.Reason, Path: o.Path}
			}
		}
		m.snapshot[f] = current
	}
	return nil
}

func (m *Monitor) check(folder, path string) types.Outcome {
	if folder == policy.FolderMods && m.cfg.Checker.IsModArchive(path) {
		return m.cfg.Checker.CheckMod(path)
	}
	return m.cfg.Checker.CheckFile(path)
}

// list returns the names in folder; an unreadable folder lists as empty.
func (m *Monitor) list(folder string) map[string]struct{} {
	names, err := m.cfg.ListDir(filepath.Join(m.cfg.GameDir, folder))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Debugf("monitor: list %s: %v", folder, err)
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func readNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, err
}

// Deliver waits for the outcome of a monitor run and hands a violation's
// message to onViolation. The callback runs at most once, on the caller's
// goroutine. It reports whether a violation was delivered.
func Deliver(ch <-chan types.PolicyViolation, onViolation func(message string)) bool {
	v, ok := <-ch
	if !ok {
		return false
	}
	if onViolation != nil {
		onViolation(v.Reason)
	}
	return true
}
