package cache

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Fingerprint is a cheap stand-in for "has this file possibly changed".
// It is derived from metadata only and must never be used to convict a file,
// only to skip re-inspecting one.
type Fingerprint struct {
	Size    uint64
	ModTime float64 // seconds since the epoch, fractional
}

// String encodes the fingerprint as "<size>-<mtime>".
func (f Fingerprint) String() string {
	return strconv.FormatUint(f.Size, 10) + "-" + strconv.FormatFloat(f.ModTime, 'f', -1, 64)
}

// ParseFingerprint decodes the "<size>-<mtime>" form. Size is unsigned, so the
// first '-' always separates the two fields even when mtime is negative.
func ParseFingerprint(s string) (Fingerprint, error) {
	sizeStr, mtimeStr, ok := strings.Cut(s, "-")
	if !ok {
		return Fingerprint{}, fmt.Errorf("fingerprint %q: missing separator", s)
	}
	size, err := strconv.ParseUint(sizeStr, 10, 64)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint %q: size: %w", s, err)
	}
	mtime, err := strconv.ParseFloat(mtimeStr, 64)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint %q: mtime: %w", s, err)
	}
	return Fingerprint{Size: size, ModTime: mtime}, nil
}

func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Fingerprint) UnmarshalText(b []byte) error {
	parsed, err := ParseFingerprint(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Stat computes the current fingerprint of path. ok is false when the file
// cannot be stat'd.
func Stat(path string) (fp Fingerprint, ok bool) {
	st, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, false
	}
	return fromInfo(st), true
}

func fromInfo(st os.FileInfo) Fingerprint {
	size := st.Size()
	if size < 0 {
		size = 0
	}
	return Fingerprint{
		Size:    uint64(size),
		ModTime: float64(st.ModTime().UnixNano()) / 1e9,
	}
}
