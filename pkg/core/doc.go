// Package core provides a small, stable facade over packguard's internal
// engine and monitor for launchers that embed it. It re-exports a narrow API
// surface so callers can depend on a stable import path without importing
// internal packages.
//
// Example:
//
//	cfg := core.Config{GameDir: gameDir}
//	if _, err := core.Scan(ctx, cfg); err != nil {
//		// a *core.PolicyViolation means: do not launch
//	}
//	proc, _ := procs.Start(ctx, java, args, gameDir, os.Stdout)
//	s, _ := core.StartMonitor(ctx, cfg, proc, 0, func(msg string) { log.Println("SECURITY:", msg) })
//	defer s.Stop()
package core
