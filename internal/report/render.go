package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/packguard/packguard/internal/audit"
	"github.com/packguard/packguard/internal/cache"
	"github.com/packguard/packguard/internal/engine"
	"github.com/packguard/packguard/internal/types"
	"golang.org/x/term"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	blockStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
)

type PrintOptions struct {
	NoColor bool
}

// ColorEnabled reports whether styled output should be written to f.
func ColorEnabled(noColor bool, f *os.File) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(f)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (o PrintOptions) style(s lipgloss.Style, text string) string {
	if o.NoColor {
		return text
	}
	return s.Render(text)
}

// PrintScan writes the outcome of a static scan followed by a summary footer.
func PrintScan(w io.Writer, res engine.Result, v *types.PolicyViolation, opts PrintOptions) {
	if v == nil {
		fmt.Fprintln(w, opts.style(okStyle, "No disallowed content found ✅"))
	} else {
		fmt.Fprintf(w, "%s %s\n", opts.style(blockStyle, "BLOCKED:"), v.Reason)
		if v.Path != "" {
			fmt.Fprintf(w, "  %s\n", opts.style(pathStyle, v.Path))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Files: %d (checked: %d, unchanged: %d, skipped: %d)\n", res.Files(), res.Checked, res.Cached, res.Skipped)
	if len(res.SkipReasons) > 0 {
		reasons := make([]string, 0, len(res.SkipReasons))
		for r := range res.SkipReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintln(w, opts.style(dimStyle, fmt.Sprintf("  %s: %d", r, res.SkipReasons[r])))
		}
	}
	if res.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", res.Duration.Seconds())
	}
}

// PrintSecurity writes a violation raised while a session was running.
func PrintSecurity(w io.Writer, message string, opts PrintOptions) {
	fmt.Fprintf(w, "%s %s\n", opts.style(blockStyle, "SECURITY:"), message)
}

// PrintCache lists fingerprint cache entries sorted by path.
func PrintCache(w io.Writer, entries map[string]cache.Fingerprint, opts PrintOptions) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Fingerprint cache is empty")
		return
	}
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	fmt.Fprintln(w, opts.style(headerStyle, fmt.Sprintf("Cached files: %d", len(paths))))
	for _, p := range paths {
		fp := entries[p]
		mod := time.Unix(0, int64(fp.ModTime*1e9)).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, "%10d  %s  %s\n", fp.Size, opts.style(dimStyle, mod), p)
	}
}

// PrintHistory lists audit records, newest first, numbered for deletion.
func PrintHistory(w io.Writer, records []audit.Record, opts PrintOptions) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No audit history")
		return
	}
	for i, r := range records {
		outcome := r.Outcome
		switch r.Outcome {
		case audit.OutcomeClean:
			outcome = opts.style(okStyle, r.Outcome)
		case audit.OutcomeViolation, audit.OutcomeError:
			outcome = opts.style(blockStyle, r.Outcome)
		}
		fmt.Fprintf(w, "%3d  %s  %-7s %s", i, r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Kind, outcome)
		if r.Reason != "" {
			fmt.Fprintf(w, "  %s", r.Reason)
		}
		fmt.Fprintln(w, opts.style(dimStyle, "  ("+r.Duration+")"))
	}
}
