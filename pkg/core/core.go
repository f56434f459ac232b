package core

import (
	"context"
	"time"

	"github.com/packguard/packguard/internal/engine"
	"github.com/packguard/packguard/internal/monitor"
	"github.com/packguard/packguard/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
type Config = engine.Config
type Result = engine.Result
type Outcome = types.Outcome
type PolicyViolation = types.PolicyViolation
type Process = monitor.Process

// Guard owns one game directory's engine and fingerprint cache. Scans and
// monitor sessions started from the same Guard share that cache, so there is
// a single writer for anticheat_cache.json.
type Guard struct {
	engine *engine.Engine
}

// NewGuard resolves cfg and loads the fingerprint cache.
func NewGuard(cfg Config) (*Guard, error) {
	e, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Guard{engine: e}, nil
}

// GameDir returns the absolute game directory.
func (g *Guard) GameDir() string { return g.engine.GameDir() }

// Scan runs the static scan. A violation is returned as a *PolicyViolation;
// the launch should be aborted.
func (g *Guard) Scan(ctx context.Context) (Result, error) {
	return g.engine.Scan(ctx)
}

// StartMonitor watches the game directory in the background while proc runs.
// On the first violation proc is killed and onViolation is called once with
// the violation message. A zero interval selects the default cadence.
func (g *Guard) StartMonitor(ctx context.Context, proc Process, interval time.Duration, onViolation func(message string)) (*Session, error) {
	mon, err := monitor.New(monitor.Config{
		GameDir:  g.engine.GameDir(),
		Checker:  g.engine,
		Process:  proc,
		Interval: interval,
	})
	if err != nil {
		return nil, err
	}
	s := &Session{mon: mon, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		s.err = mon.Run(ctx)
	}()
	go monitor.Deliver(mon.Violations(), onViolation)
	return s, nil
}

// Scan runs a one-off static scan over cfg.GameDir. Use a Guard when a
// monitor session follows.
func Scan(ctx context.Context, cfg Config) (Result, error) {
	g, err := NewGuard(cfg)
	if err != nil {
		return Result{}, err
	}
	return g.Scan(ctx)
}

// Session is a running monitor started by StartMonitor.
type Session struct {
	mon  *monitor.Monitor
	done chan struct{}
	err  error
}

// StartMonitor is Guard.StartMonitor on a fresh Guard. Do not combine it with
// a concurrent Scan of the same directory; share a Guard instead.
func StartMonitor(ctx context.Context, cfg Config, proc Process, interval time.Duration, onViolation func(message string)) (*Session, error) {
	g, err := NewGuard(cfg)
	if err != nil {
		return nil, err
	}
	return g.StartMonitor(ctx, proc, interval, onViolation)
}

// Stop asks the monitor to exit at its next poll.
func (s *Session) Stop() { s.mon.Stop() }

// Wait blocks until the monitor exits and returns the violation, if any.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}
