package artifacts

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath means an archive entry would resolve outside the extraction
// root.
var ErrUnsafePath = errors.New("unsafe archive entry path")

// NativeSuffixes are the shared-library extensions copied by ExtractNatives.
var NativeSuffixes = []string{".dll", ".dylib", ".so"}

// SafeJoin joins an archive entry name below root, refusing absolute names,
// volume names and any name that climbs out of root.
func SafeJoin(root, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	if clean == "" || filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafePath)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(absRoot, clean)
	rel, err := filepath.Rel(absRoot, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafePath)
	}
	return target, nil
}

// ExtractNatives copies every entry whose name ends in one of suffixes from
// the given archives into destRoot, keeping entry paths. Stale native
// libraries already below destRoot are removed first; any other file there
// is left alone. Missing, corrupt and unsafe inputs are skipped and reported
// in the returned error list. It returns the written paths.
//
// This is the only routine in the package that writes to disk; scanning
// never calls it.
func ExtractNatives(archives []string, destRoot string, suffixes []string) ([]string, []error) {
	if len(suffixes) == 0 {
		suffixes = NativeSuffixes
	}
	errs := removeNatives(destRoot, suffixes)
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return nil, append(errs, err)
	}
	var written []string
	for _, a := range archives {
		err := withZip(a, func(zr *zip.Reader) error {
			for _, f := range zr.File {
				if f.FileInfo().IsDir() || !hasAnySuffix(f.Name, suffixes) {
					continue
				}
				target, err := SafeJoin(destRoot, f.Name)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", a, err))
					continue
				}
				if err := extractOne(f, target); err != nil {
					errs = append(errs, fmt.Errorf("%s::%s: %w", a, f.Name, err))
					continue
				}
				written = append(written, target)
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return written, errs
}

// removeNatives deletes regular files below root whose names end in one of
// suffixes. A missing root is fine.
func removeNatives(root string, suffixes []string) []error {
	var errs []error
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			errs = append(errs, err)
			return nil
		}
		if !d.Type().IsRegular() || !hasAnySuffix(d.Name(), suffixes) {
			return nil
		}
		if err := os.Remove(p); err != nil {
			errs = append(errs, fmt.Errorf("clean %s: %w", p, err))
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}

func extractOne(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
