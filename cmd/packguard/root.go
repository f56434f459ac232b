package packguard

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/packguard/packguard/internal/logger"
	"github.com/spf13/cobra"
)

var (
	flagGameDir  string
	flagConfig   string
	flagLogLevel string
	flagNoColor  bool
	flagNoCache  bool

	flagMaxEntryBytes int64
	flagInterval      time.Duration
	flagWatchEvents   bool

	// active holds the settings resolved before each command runs.
	active settings

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the packguard CLI.
var rootCmd = &cobra.Command{
	Use:           "packguard",
	Short:         "Guard a game directory against disallowed packs and mods",
	Long:          "packguard scans texture packs, resource packs and mods before a session starts, then watches them while the game runs and stops it on the first disallowed addition.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		logger.Init(s.logLevel)
		active = s
		return nil
	},
}

// exitError carries a process exit status out of a command without printing
// an error message.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute runs the packguard CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagGameDir, "game-dir", "g", ".", "game directory containing texturepacks, resourcepacks and mods")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .packguard.yml in the game directory)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "disable the fingerprint cache")
	rootCmd.PersistentFlags().Int64Var(&flagMaxEntryBytes, "max-entry-bytes", 0, "largest archive entry to decompress (0 = 64 MiB)")
	rootCmd.PersistentFlags().DurationVar(&flagInterval, "interval", 0, "monitor poll interval (0 = 5s)")
	rootCmd.PersistentFlags().BoolVar(&flagWatchEvents, "watch-events", false, "also poll early on filesystem events")
}
