package packguard

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/packguard/packguard/internal/logger"
	"github.com/packguard/packguard/internal/procs"
	"github.com/spf13/cobra"
)

var flagPID int

// exitPollInterval is how often watch checks whether the attached process
// is still alive.
const exitPollInterval = 500 * time.Millisecond

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the game directory while an already running process lives",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().IntVar(&flagPID, "pid", 0, "process id of the running session (required)")
	_ = cmd.MarkFlagRequired("pid")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	s := active
	proc, err := procs.Attach(flagPID)
	if err != nil {
		return err
	}
	if proc.Exited() {
		return errors.New("process is not running")
	}
	logger.Infof("watching pid %d (%s)", proc.Pid(), proc.Name())

	e, err := s.newEngine(nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return superviseSession(ctx, s, e, proc, cmd.ErrOrStderr(), func() int {
		t := time.NewTicker(exitPollInterval)
		defer t.Stop()
		for !proc.Exited() {
			select {
			case <-ctx.Done():
				return 0
			case <-t.C:
			}
		}
		return 0
	})
}
