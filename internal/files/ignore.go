// Package files holds small helpers for files packguard maintains next to a
// game directory.
package files

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/packguard/packguard/internal/audit"
	"github.com/packguard/packguard/internal/cache"
)

// AppendIgnore ensures each pattern is present in .gitignore at dir. It
// creates the file if missing and never duplicates a line. It reports how
// many patterns were added.
func AppendIgnore(dir string, patterns ...string) (int, error) {
	path := filepath.Join(dir, ".gitignore")
	existing := map[string]bool{}
	needsNewline := false
	if b, err := os.ReadFile(path); err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(b)))
		for sc.Scan() {
			existing[strings.TrimSpace(sc.Text())] = true
		}
		needsNewline = len(b) > 0 && b[len(b)-1] != '\n'
	}

	var add []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" && !existing[p] {
			existing[p] = true
			add = append(add, p)
		}
	}
	if len(add) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var sb strings.Builder
	if needsNewline {
		sb.WriteByte('\n')
	}
	for _, p := range add {
		sb.WriteString(p + "\n")
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		return 0, err
	}
	return len(add), nil
}

// GeneratedIgnores returns the per-machine files packguard writes into a
// game directory.
func GeneratedIgnores() []string {
	return []string{
		cache.FileName,
		audit.FileName,
	}
}
