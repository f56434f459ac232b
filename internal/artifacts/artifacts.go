package artifacts

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

var (
	// ErrCorruptArchive means the file is not a readable zip archive. Callers
	// treat it as "nothing to scan", never as a violation.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrEntryNotFound means the requested entry is not in the archive.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrLimitExceeded means an entry exceeded the configured Limits.
	ErrLimitExceeded = errors.New("archive limit exceeded")
)

// Limits bounds how much of an archive is brought into memory. Listing is
// never capped: every entry name is always returned.
type Limits struct {
	// MaxEntryBytes caps the decompressed size of a single entry read.
	MaxEntryBytes int64
}

// DefaultLimits are large enough for any real resource pack.
func DefaultLimits() Limits {
	return Limits{MaxEntryBytes: 64 << 20}
}

// Inspector lists and reads archive entries without extracting to disk.
type Inspector interface {
	ListEntries(archivePath string) ([]string, error)
	ReadEntry(archivePath, name string) ([]byte, error)
}

// ZipInspector is a read-only Inspector over zip-family archives (zip, jar).
type ZipInspector struct {
	Limits Limits
}

// NewZipInspector returns a ZipInspector with the given limits; zero fields
// fall back to DefaultLimits.
func NewZipInspector(l Limits) *ZipInspector {
	d := DefaultLimits()
	if l.MaxEntryBytes <= 0 {
		l.MaxEntryBytes = d.MaxEntryBytes
	}
	return &ZipInspector{Limits: l}
}

// ListEntries returns the names of all file entries in the archive, in
// archive order. Directory entries are omitted.
func (z *ZipInspector) ListEntries(archivePath string) ([]string, error) {
	var names []string
	err := withZip(archivePath, func(zr *zip.Reader) error {
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			names = append(names, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ReadEntry loads one entry fully into memory.
func (z *ZipInspector) ReadEntry(archivePath, name string) ([]byte, error) {
	var out []byte
	err := withZip(archivePath, func(zr *zip.Reader) error {
		for _, f := range zr.File {
			if f.Name != name || f.FileInfo().IsDir() {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("%s::%s: %w", archivePath, name, ErrCorruptArchive)
			}
			defer rc.Close()
			b, err := readAllBounded(rc, z.Limits.MaxEntryBytes)
			if err != nil {
				return fmt.Errorf("%s::%s: %w", archivePath, name, err)
			}
			out = b
			return nil
		}
		return fmt.Errorf("%s::%s: %w", archivePath, name, ErrEntryNotFound)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func withZip(archivePath string, fn func(*zip.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	zr, err := zip.NewReader(f, fi.Size())
	// insecure names are still listed; only ExtractNatives builds paths from them
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return fmt.Errorf("%s: %w", archivePath, ErrCorruptArchive)
	}
	return fn(zr)
}

// readAllBounded reads r to EOF, failing once more than max bytes arrive.
func readAllBounded(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		max = DefaultLimits().MaxEntryBytes
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, max+1))
	if err != nil {
		// zip checksum and inflate errors surface here
		return nil, ErrCorruptArchive
	}
	if n > max {
		return nil, ErrLimitExceeded
	}
	return buf.Bytes(), nil
}

// IsArchive reports whether path should be opened as a zip archive: either it
// carries the .zip extension or its header carries zip magic (renamed packs).
func IsArchive(path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 262)
	n, _ := io.ReadFull(f, head)
	return filetype.Is(head[:n], "zip")
}
