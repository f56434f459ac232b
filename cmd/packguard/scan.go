package packguard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/packguard/packguard/internal/audit"
	"github.com/packguard/packguard/internal/logger"
	"github.com/packguard/packguard/internal/report"
	"github.com/packguard/packguard/internal/types"
	"github.com/packguard/packguard/pkg/core"
	"github.com/spf13/cobra"
)

var flagJSON bool

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the game directory once and exit 1 on disallowed content",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().BoolVar(&flagJSON, "json", false, "emit a JSON report")
}

func runScan(cmd *cobra.Command, _ []string) error {
	s := active
	errOut := cmd.ErrOrStderr()

	e, err := s.newEngine(nil)
	if err != nil {
		return err
	}
	// Optional progress: simple textual counter on an interactive stderr
	var progress func(types.Outcome)
	if !flagJSON && report.IsTerminal(os.Stderr) {
		progress = progressCounter(errOut, e.CountTargets())
		e.SetProgress(progress)
	}

	res, err := e.Scan(cmd.Context())
	if progress != nil {
		_, _ = fmt.Fprintln(errOut)
	}
	var v *types.PolicyViolation
	if err != nil && !errors.As(err, &v) {
		return fmt.Errorf("scan error: %w", err)
	}
	s.record(audit.CreateScanRecord(e.GameDir(), res, err))

	out := cmd.OutOrStdout()
	if flagJSON {
		if err := core.MarshalReport(out, core.NewReport(e.GameDir(), res, v)); err != nil {
			return err
		}
	} else {
		report.PrintScan(out, res, v, s.printOptions(os.Stdout))
	}
	if v != nil {
		logger.Warnf("scan blocked: %s", v.Reason)
		return &exitError{code: 1}
	}
	return nil
}

// progressCounter prints a "[n/total] pct%" line every ten files and on the
// last one. It returns nil when there is nothing to count.
func progressCounter(w io.Writer, total int) func(types.Outcome) {
	if total <= 0 {
		return nil
	}
	progressed := 0
	return func(types.Outcome) {
		progressed++
		if progressed%10 == 0 || progressed == total {
			pct := float64(progressed) / float64(total) * 100
			_, _ = fmt.Fprintf(w, "\r[%d/%d] %.0f%%", progressed, total, pct)
		}
	}
}
