package artifacts

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestListEntries(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "pack.zip")
	makeZip(t, p, map[string]string{"pack.mcmeta": "{}", "assets/minecraft/textures/terrain.png": "x", "b/": ""})

	names, err := NewZipInspector(Limits{}).ListEntries(p)
	require.NoError(t, err)
	sort.Strings(names)
	assert.Equal(t, []string{"assets/minecraft/textures/terrain.png", "pack.mcmeta"}, names)
}

func TestListEntries_Corrupt(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(p, []byte("this is not a zip"), 0o644))

	_, err := NewZipInspector(Limits{}).ListEntries(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptArchive))
}

func TestListEntries_MissingFileIsIOError(t *testing.T) {
	_, err := NewZipInspector(Limits{}).ListEntries(filepath.Join(t.TempDir(), "gone.zip"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCorruptArchive))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestListEntries_ManyEntriesAreAllListed(t *testing.T) {
	p := filepath.Join(t.TempDir(), "many.zip")
	files := make(map[string]string, 70000)
	for i := 0; i < 70000; i++ {
		files[fmt.Sprintf("pad/%05d", i)] = ""
	}
	files["zz/last.png"] = "x"
	makeZip(t, p, files)
	names, err := NewZipInspector(Limits{}).ListEntries(p)
	require.NoError(t, err)
	assert.Len(t, names, 70001)
	assert.Contains(t, names, "zz/last.png")
}

func TestReadEntry(t *testing.T) {
	p := filepath.Join(t.TempDir(), "mod.jar")
	makeZip(t, p, map[string]string{"fabric.mod.json": `{"id":"sodium"}`})
	insp := NewZipInspector(Limits{})

	b, err := insp.ReadEntry(p, "fabric.mod.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"sodium"}`, string(b))

	_, err = insp.ReadEntry(p, "mcmod.info")
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestReadEntry_TooLarge(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.zip")
	makeZip(t, p, map[string]string{"blob": strings.Repeat("a", 1024)})
	_, err := NewZipInspector(Limits{MaxEntryBytes: 100}).ReadEntry(p, "blob")
	assert.True(t, errors.Is(err, ErrLimitExceeded))

	b, err := NewZipInspector(Limits{MaxEntryBytes: 1024}).ReadEntry(p, "blob")
	require.NoError(t, err)
	assert.Len(t, b, 1024)
}

func TestInspectorIsReadOnly(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "pack.zip")
	makeZip(t, p, map[string]string{"../escape.txt": "x", "a/b.txt": "y"})
	insp := NewZipInspector(Limits{})
	_, err := insp.ListEntries(p)
	require.NoError(t, err)
	_, err = insp.ReadEntry(p, "a/b.txt")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "inspection must not write next to the archive")
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestIsArchive(t *testing.T) {
	dir := t.TempDir()
	renamed := filepath.Join(dir, "pack.dat")
	makeZip(t, renamed, map[string]string{"a": "b"})
	plain := filepath.Join(dir, "readme.txt")
	require.NoError(t, os.WriteFile(plain, []byte("hello there"), 0o644))

	assert.True(t, IsArchive(filepath.Join(dir, "Missing.ZIP")), "extension alone is enough")
	assert.True(t, IsArchive(renamed), "zip magic is sniffed")
	assert.False(t, IsArchive(plain))
	assert.False(t, IsArchive(filepath.Join(dir, "missing.bin")))
}
