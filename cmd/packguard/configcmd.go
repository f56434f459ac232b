package packguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/packguard/packguard/internal/config"
	"github.com/packguard/packguard/internal/files"
	"github.com/spf13/cobra"
)

var (
	cfgOutput        string
	cfgForce         bool
	cfgExtraKeywords []string
	cfgExtraModIDs   []string
	cfgNoAudit       bool
	cfgGitignore     bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .packguard.yml in the game directory",
		Long:  "init writes the extra rules given here plus the global --log-level, --interval, --watch-events, --no-cache and --max-entry-bytes flags.",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", "", "output file path (default: <game-dir>/.packguard.yml)")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().StringSliceVar(&cfgExtraKeywords, "extra-keyword", nil, "additional banned keyword (repeatable)")
	initCmd.Flags().StringSliceVar(&cfgExtraModIDs, "extra-mod-id", nil, "additional banned mod id (repeatable)")
	initCmd.Flags().BoolVar(&cfgNoAudit, "no-audit", false, "disable the audit log")
	initCmd.Flags().BoolVar(&cfgGitignore, "gitignore", false, "add the cache and audit files to the game directory's .gitignore")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	out := cfgOutput
	if out == "" {
		out = filepath.Join(active.gameDir, config.LocalNames[0])
	}
	if _, err := os.Stat(out); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", out)
	}

	fc := config.FileConfig{
		ExtraKeywords: trimAll(cfgExtraKeywords),
		ExtraModIDs:   trimAll(cfgExtraModIDs),
		LogLevel:      optStrPtr(flagLogLevel),
		WatchEvents:   optBoolPtr(flagWatchEvents),
		NoCache:       optBoolPtr(flagNoCache),
	}
	if flagInterval > 0 {
		fc.PollInterval = strPtr(flagInterval.String())
	}
	if flagMaxEntryBytes > 0 {
		v := flagMaxEntryBytes
		fc.MaxEntryBytes = &v
	}
	if cfgNoAudit {
		fc.Audit = &config.AuditConfig{Enabled: boolPtr(false)}
	}

	if err := config.Write(out, fc); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", out)
	if cfgGitignore {
		n, err := files.AppendIgnore(active.gameDir, files.GeneratedIgnores()...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d patterns to .gitignore\n", n)
	}
	return nil
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }
func optStrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
func boolPtr(v bool) *bool { return &v }
func optBoolPtr(v bool) *bool {
	if !v {
		return nil
	}
	return &v
}
