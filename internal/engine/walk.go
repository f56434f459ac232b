package engine

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/packguard/packguard/internal/types"
)

// errStop unwinds WalkDir; it never escapes walkFiles.
var errStop = errors.New("stop walk")

// walkFiles visits every regular file below dir in lexical order. Unreadable
// paths are skipped, a missing dir is empty. The first Violation outcome
// stops the walk and is returned as a *types.PolicyViolation.
func walkFiles(ctx context.Context, dir string, accept func(string) bool, visit func(string) types.Outcome) error {
	var violation error
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entry (or dir itself missing): skip it
			if d != nil && d.IsDir() && p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if accept != nil && !accept(p) {
			return nil
		}
		if o := visit(p); o.Status == types.Violation {
			violation = o.Err()
			return errStop
		}
		return nil
	})
	if violation != nil {
		return violation
	}
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}
