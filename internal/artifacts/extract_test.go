package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()
	ok := []string{"lwjgl.dll", "linux/x64/liblwjgl.so", "a/./b.so"}
	for _, name := range ok {
		p, err := SafeJoin(root, name)
		require.NoError(t, err, name)
		assert.True(t, filepath.IsAbs(p))
	}
	bad := []string{"", "../evil.so", "a/../../evil.so", "/etc/evil.so", "..\\evil.dll", "."}
	for _, name := range bad {
		_, err := SafeJoin(root, name)
		assert.True(t, errors.Is(err, ErrUnsafePath), name)
	}
}

func TestExtractNatives(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "lwjgl-natives-linux.jar")
	makeZip(t, jar, map[string]string{
		"linux/liblwjgl.so":    "elf",
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0",
		"../../escape.so":      "nope",
	})
	broken := filepath.Join(dir, "broken.jar")
	require.NoError(t, os.WriteFile(broken, []byte("junk"), 0o644))

	dest := filepath.Join(dir, "natives")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	stale := filepath.Join(dest, "stale.so")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	keep := filepath.Join(dest, "options.txt")
	require.NoError(t, os.WriteFile(keep, []byte("user data"), 0o644))

	written, errs := ExtractNatives([]string{jar, broken, filepath.Join(dir, "missing.jar")}, dest, nil)
	require.Len(t, written, 1)
	assert.Equal(t, filepath.Join(dest, "linux", "liblwjgl.so"), written[0])
	b, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, "elf", string(b))

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale natives are removed first")
	assert.FileExists(t, keep, "other files are never removed")
	_, err = os.Stat(filepath.Join(dir, "escape.so"))
	assert.True(t, os.IsNotExist(err))

	var sawUnsafe, sawCorrupt, sawMissing bool
	for _, e := range errs {
		sawUnsafe = sawUnsafe || errors.Is(e, ErrUnsafePath)
		sawCorrupt = sawCorrupt || errors.Is(e, ErrCorruptArchive)
		sawMissing = sawMissing || errors.Is(e, os.ErrNotExist)
	}
	assert.True(t, sawUnsafe)
	assert.True(t, sawCorrupt)
	assert.True(t, sawMissing, "missing archives are reported")
}
