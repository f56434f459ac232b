package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMod_Manifests(t *testing.T) {
	cases := []struct {
		name   string
		files  map[string][]byte
		reason string
	}{
		{
			name:   "fabric banned",
			files:  map[string][]byte{ManifestFabric: []byte(`{"schemaVersion":1,"id":"Meteor-Client","version":"0.5"}`)},
			reason: "Banned mod: meteor-client",
		},
		{
			name:  "fabric clean",
			files: map[string][]byte{ManifestFabric: []byte(`{"id":"sodium"}`)},
		},
		{
			name:   "fabric with bom",
			files:  map[string][]byte{ManifestFabric: append([]byte{0xEF, 0xBB, 0xBF}, `{"id":"wurst"}`...)},
			reason: "Banned mod: wurst",
		},
		{
			name:   "legacy forge text match",
			files:  map[string][]byte{ManifestForgeLegacy: []byte(`[{"modid": "BleachHack", "name": "BH"}]`)},
			reason: "Banned mod in client.jar",
		},
		{
			name: "forge toml",
			files: map[string][]byte{ManifestForge: []byte(`modLoader="javafml"
[[mods]]
modId="jei"
[[mods]]
modId="Baritone"
`)},
			reason: "Banned mod: baritone",
		},
		{
			name:  "forge toml clean",
			files: map[string][]byte{ManifestForge: []byte("[[mods]]\nmodId=\"jei\"\n")},
		},
		{
			name: "fabric wins over legacy",
			files: map[string][]byte{
				ManifestFabric:      []byte(`{"id":"sodium"}`),
				ManifestForgeLegacy: []byte(`wurst`),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			jar := filepath.Join(dir, "mods", "client.jar")
			makeZip(t, jar, tc.files)
			o := newEngine(t, dir, nil).CheckMod(jar)
			if tc.reason == "" {
				assert.NoError(t, o.Err())
				return
			}
			v := requireViolation(t, o.Err())
			assert.Equal(t, tc.reason, v.Reason)
			assert.Equal(t, jar, v.Path)
		})
	}
}

func TestCheckMod_Skips(t *testing.T) {
	dir := t.TempDir()
	e := newEngine(t, dir, nil)

	noManifest := filepath.Join(dir, "mods", "lib.jar")
	makeZip(t, noManifest, map[string][]byte{"com/example/Main.class": []byte("cafe")})
	o := e.CheckMod(noManifest)
	assert.NoError(t, o.Err())
	assert.Equal(t, ReasonNoManifest, o.Reason)

	badJSON := filepath.Join(dir, "mods", "bad.jar")
	makeZip(t, badJSON, map[string][]byte{ManifestFabric: []byte(`{"id": wurst`)})
	o = e.CheckMod(badJSON)
	assert.NoError(t, o.Err())
	assert.Equal(t, ReasonBadManifest, o.Reason)

	corrupt := filepath.Join(dir, "mods", "corrupt.jar")
	writeFile(t, corrupt, "PK garbage")
	o = e.CheckMod(corrupt)
	assert.NoError(t, o.Err())
	assert.Equal(t, ReasonCorrupt, o.Reason)
}

func TestScanMods_FiltersAndBypassesCache(t *testing.T) {
	dir := t.TempDir()
	makeZip(t, filepath.Join(dir, "mods", "Sodium.JAR"), map[string][]byte{ManifestFabric: []byte(`{"id":"sodium"}`)})
	makeZip(t, filepath.Join(dir, "mods", "pack.zip"), map[string][]byte{ManifestFabric: []byte(`{"id":"lithium"}`)})
	writeFile(t, filepath.Join(dir, "mods", "readme.txt"), "wurst")

	insp := newCounting()
	e := newEngine(t, dir, insp)
	res, err := e.ScanMods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)

	_, err = e.ScanMods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, insp.lists, "mods are re-verified on every scan")
	assert.Equal(t, 0, e.Cache().Len())
}

func TestScanMods_BannedStopsScan(t *testing.T) {
	dir := t.TempDir()
	makeZip(t, filepath.Join(dir, "mods", "a.jar"), map[string][]byte{ManifestFabric: []byte(`{"id":"liquidbounce"}`)})
	makeZip(t, filepath.Join(dir, "mods", "b.jar"), map[string][]byte{ManifestFabric: []byte(`{"id":"sodium"}`)})
	res, err := newEngine(t, dir, nil).Scan(context.Background())
	v := requireViolation(t, err)
	assert.Equal(t, "Banned mod: liquidbounce", v.Reason)
	assert.Equal(t, 0, res.Checked)
}

func TestIsModArchive(t *testing.T) {
	e := newEngine(t, t.TempDir(), nil)
	assert.True(t, e.IsModArchive("/g/mods/a.jar"))
	assert.True(t, e.IsModArchive("/g/mods/A.Zip"))
	assert.False(t, e.IsModArchive("/g/mods/a.jar.disabled"))
	assert.False(t, e.IsModArchive("/g/mods/notes.txt"))
}
