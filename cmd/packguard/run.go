package packguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/packguard/packguard/internal/audit"
	"github.com/packguard/packguard/internal/engine"
	"github.com/packguard/packguard/internal/logger"
	"github.com/packguard/packguard/internal/monitor"
	"github.com/packguard/packguard/internal/procs"
	"github.com/packguard/packguard/internal/report"
	"github.com/packguard/packguard/internal/types"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Scan, then launch a session and watch it until it exits",
		Long: "run performs the pre-launch scan and refuses to start the command on a violation. " +
			"Otherwise the command is started in the game directory and the monitored folders are " +
			"watched; the first disallowed addition kills the command and exits 1.",
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}
	rootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	s := active
	errOut := cmd.ErrOrStderr()
	opts := s.printOptions(os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := s.newEngine(nil)
	if err != nil {
		return err
	}
	e.EnsureFolders()

	res, err := e.Scan(ctx)
	var v *types.PolicyViolation
	if err != nil {
		if !errors.As(err, &v) {
			return fmt.Errorf("scan error: %w", err)
		}
		s.record(audit.CreateScanRecord(e.GameDir(), res, err))
		report.PrintScan(errOut, res, v, opts)
		logger.Warnf("launch blocked: %s", v.Reason)
		return &exitError{code: 1}
	}
	s.record(audit.CreateScanRecord(e.GameDir(), res, nil))
	logger.Infof("pre-launch scan clean (%d files)", res.Files())

	proc, err := procs.Start(ctx, args[0], args[1:], e.GameDir(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	logger.Infof("launched %s (pid %d)", args[0], proc.Pid())

	return superviseSession(ctx, s, e, proc, errOut, func() int {
		_ = proc.Wait()
		return proc.ExitCode()
	})
}

// superviseSession monitors e's game directory until wait returns, then
// stops the monitor and maps the session outcome to an exit status.
func superviseSession(ctx context.Context, s settings, e *engine.Engine, proc monitor.Process, errOut io.Writer, wait func() int) error {
	mon, err := monitor.New(monitor.Config{
		GameDir: e.GameDir(),
		Checker: e,
		Process: proc,
		Trigger: s.newTrigger(e),
	})
	if err != nil {
		_ = proc.Kill()
		return err
	}

	monCtx, cancelMon := context.WithCancel(ctx)
	defer cancelMon()
	started := time.Now()
	monDone := make(chan error, 1)
	go func() { monDone <- mon.Run(monCtx) }()
	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		monitor.Deliver(mon.Violations(), func(msg string) {
			report.PrintSecurity(errOut, msg, s.printOptions(os.Stderr))
		})
	}()

	code := wait()
	cancelMon()
	monErr := <-monDone
	<-delivered
	s.record(audit.CreateMonitorRecord(e.GameDir(), time.Since(started), monErr))

	var v *types.PolicyViolation
	if errors.As(monErr, &v) {
		return &exitError{code: 1}
	}
	if code != 0 {
		if code < 0 {
			code = 1
		}
		return &exitError{code: code}
	}
	logger.Info("session ended")
	return nil
}
