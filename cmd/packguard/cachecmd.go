package packguard

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/packguard/packguard/internal/cache"
	"github.com/packguard/packguard/internal/report"
	"github.com/spf13/cobra"
)

var flagCacheJSON bool

func init() {
	cacheCmd := &cobra.Command{Use: "cache", Short: "Inspect or reset the fingerprint cache"}
	rootCmd.AddCommand(cacheCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "List files recorded as clean",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := cache.Load(cache.PathFor(active.gameDir))
			if flagCacheJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			report.PrintCache(cmd.OutOrStdout(), entries, active.printOptions(os.Stdout))
			return nil
		},
	}
	showCmd.Flags().BoolVar(&flagCacheJSON, "json", false, "emit the raw cache document")
	cacheCmd.AddCommand(showCmd)

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget all fingerprints so the next scan inspects every file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := cache.Open(cache.PathFor(active.gameDir))
			n := store.Len()
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries from %s\n", n, store.Path())
			return nil
		},
	})
}
