package packguard

import (
	"fmt"
	"os"

	"github.com/packguard/packguard/internal/report"
	"github.com/spf13/cobra"
)

var (
	flagHistoryLimit  int
	flagHistoryDelete int
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past scans and monitored sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "show at most N records (0 = all)")
	cmd.Flags().IntVar(&flagHistoryDelete, "delete", -1, "delete the record with this index")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	log := active.auditLog()
	if log == nil {
		return fmt.Errorf("audit log is disabled")
	}
	if flagHistoryDelete >= 0 {
		if err := log.DeleteRecord(flagHistoryDelete); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %d\n", flagHistoryDelete)
		return nil
	}
	records, err := log.LoadHistory()
	if err != nil {
		return err
	}
	if flagHistoryLimit > 0 && len(records) > flagHistoryLimit {
		records = records[:flagHistoryLimit]
	}
	report.PrintHistory(cmd.OutOrStdout(), records, active.printOptions(os.Stdout))
	return nil
}
