package packguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/packguard/packguard/internal/artifacts"
	"github.com/packguard/packguard/internal/logger"
	"github.com/spf13/cobra"
)

var flagNativesDest string

func init() {
	cmd := &cobra.Command{
		Use:   "natives --dest DIR ARCHIVE...",
		Short: "Extract native libraries (.dll, .dylib, .so) from library jars",
		Long:  "natives removes stale native libraries from DIR and copies every native library found in the given archives into it. Other files in DIR are kept. Entries that would resolve outside DIR are rejected, as is a DIR that is the game directory, one of its parents or the home directory.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNatives,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&flagNativesDest, "dest", "", "destination directory (required)")
	_ = cmd.MarkFlagRequired("dest")
}

func runNatives(cmd *cobra.Command, args []string) error {
	dest, err := filepath.Abs(flagNativesDest)
	if err != nil {
		return err
	}
	if err := checkNativesDest(dest, active.gameDir); err != nil {
		return err
	}
	written, errs := artifacts.ExtractNatives(args, dest, artifacts.NativeSuffixes)
	for _, err := range errs {
		logger.Warnf("natives: %v", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d native libraries to %s\n", len(written), dest)
	if len(errs) > 0 {
		return fmt.Errorf("%d natives problems, see warnings", len(errs))
	}
	return nil
}

// checkNativesDest refuses destinations that hold more than natives: a
// filesystem root, the home directory, the game directory or any of its
// ancestors.
func checkNativesDest(dest, gameDir string) error {
	refuse := dest == filepath.Dir(dest) || isWithin(gameDir, dest)
	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(home) == dest {
		refuse = true
	}
	if refuse {
		return fmt.Errorf("refusing to use %s as the natives directory", dest)
	}
	return nil
}

// isWithin reports whether path is dir or lies below it.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
