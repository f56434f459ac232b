package packguard

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/packguard/packguard/internal/audit"
	"github.com/packguard/packguard/internal/cache"
	"github.com/packguard/packguard/internal/config"
	"github.com/packguard/packguard/internal/types"
	"github.com/packguard/packguard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags() {
	flagGameDir, flagConfig, flagLogLevel = ".", "", ""
	flagNoColor, flagNoCache, flagWatchEvents = false, false, false
	flagMaxEntryBytes, flagInterval = 0, 0
	flagJSON, flagCacheJSON = false, false
	flagPID = 0
	flagNativesDest = ""
	flagHistoryLimit, flagHistoryDelete = 20, -1
	cfgOutput, cfgForce, cfgNoAudit, cfgGitignore = "", false, false, false
	cfgExtraKeywords, cfgExtraModIDs = nil, nil
}

// syncBuffer collects output written by the command and the session child.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// execute runs the CLI in-process with an isolated global config.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	out := &syncBuffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return 2
	}
	return 0
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestScan_CleanAndAudited(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "resourcepacks", "faithful.txt"), "ok")
	out, err := execute(t, "scan", "-g", dir, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "No disallowed content found")
	assert.Contains(t, out, "checked: 1")

	history, err := audit.NewAuditLog(dir).LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, audit.OutcomeClean, history[0].Outcome)
}

func TestScan_ViolationExitsOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "texturepacks", "XRay.txt"), "bad")
	out, err := execute(t, "scan", "-g", dir, "--no-color")
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "BLOCKED: Banned resource: xray.txt")
}

func TestScan_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "resourcepacks", "x-ray.txt"), "bad")
	out, err := execute(t, "scan", "-g", dir, "--json")
	assert.Equal(t, 1, exitCode(err))
	rep, err := core.UnmarshalReport(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "violation", rep.Outcome)
	require.NotNil(t, rep.Violation)
	assert.Equal(t, "Banned resource: x-ray.txt", rep.Violation.Reason)
}

func TestScan_LocalConfigExtendsRules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".packguard.yml"), "extra_keywords: [freecam]\naudit:\n  enabled: false\n")
	writeFile(t, filepath.Join(dir, "resourcepacks", "freecam.txt"), "bad")
	_, err := execute(t, "scan", "-g", dir, "--no-color")
	assert.Equal(t, 1, exitCode(err))
	_, statErr := os.Stat(filepath.Join(dir, audit.FileName))
	assert.True(t, os.IsNotExist(statErr), "audit disabled by config")
}

func TestScan_ExplicitConfigMissing(t *testing.T) {
	_, err := execute(t, "scan", "-g", t.TempDir(), "--config", filepath.Join(t.TempDir(), "nope.yml"))
	assert.Equal(t, 2, exitCode(err))
}

func TestCache_ShowAndClear(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "resourcepacks", "faithful.txt"), "ok")
	_, err := execute(t, "scan", "-g", dir)
	require.NoError(t, err)

	out, err := execute(t, "cache", "show", "-g", dir, "--json")
	require.NoError(t, err)
	var doc map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, filepath.Join(dir, "resourcepacks", "faithful.txt"))

	out, err = execute(t, "cache", "clear", "-g", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 entries")
	assert.Empty(t, cache.Load(cache.PathFor(dir)))
}

func TestHistory_ListAndDelete(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "scan", "-g", dir)
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "resourcepacks", "xray.txt"), "bad")
	_, _ = execute(t, "scan", "-g", dir)

	out, err := execute(t, "history", "-g", dir, "--no-color")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "violation")
	assert.Contains(t, lines[1], "clean")

	_, err = execute(t, "history", "-g", dir, "--delete", "0")
	require.NoError(t, err)
	history, err := audit.NewAuditLog(dir).LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, audit.OutcomeClean, history[0].Outcome)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "config", "init", "-g", dir, "--extra-keyword", "freecam", "--extra-mod-id", "impact", "--interval", "2s", "--no-audit")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	fc, err := config.LoadLocal(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"freecam"}, fc.ExtraKeywords)
	assert.Equal(t, []string{"impact"}, fc.ExtraModIDs)
	require.NotNil(t, fc.PollInterval)
	assert.Equal(t, "2s", *fc.PollInterval)
	assert.False(t, fc.GetAuditConfig().IsEnabled())

	_, err = execute(t, "config", "init", "-g", dir)
	assert.Error(t, err, "refuses to overwrite")
	out, err = execute(t, "config", "init", "-g", dir, "--force", "--gitignore")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 2 patterns")
	assert.FileExists(t, filepath.Join(dir, ".gitignore"))
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

func TestRun_CleanSessionPassesExitCode(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	_, err := execute(t, "run", "-g", dir, "--", "sh", "-c", "exit 0")
	require.NoError(t, err)
	for _, f := range []string{"texturepacks", "resourcepacks", "mods"} {
		assert.DirExists(t, filepath.Join(dir, f))
	}

	_, err = execute(t, "run", "-g", dir, "--", "sh", "-c", "exit 3")
	assert.Equal(t, 3, exitCode(err))
}

func TestRun_ViolationBlocksLaunch(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "resourcepacks", "xray.zip"), "bad")
	out, err := execute(t, "run", "-g", dir, "--no-color", "--", "sh", "-c", "touch launched")
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "BLOCKED: Banned resource: xray.zip")
	assert.NoFileExists(t, filepath.Join(dir, "launched"))
}

func TestRun_LiveViolationKillsSession(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	script := "sleep 0.5; echo x > resourcepacks/xray.txt; exec sleep 30"
	out, err := execute(t, "run", "-g", dir, "--no-color", "--interval", "50ms", "--", "sh", "-c", script)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "SECURITY: Banned resource: xray.txt")

	history, err := audit.NewAuditLog(dir).LoadHistory()
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, audit.KindMonitor, history[0].Kind)
	assert.Equal(t, audit.OutcomeViolation, history[0].Outcome)
}

func TestWatch_RequiresLivePid(t *testing.T) {
	_, err := execute(t, "watch", "-g", t.TempDir(), "--pid", "0")
	assert.Error(t, err)
}

func TestPickHelpers(t *testing.T) {
	l, g := "local", "global"
	assert.Equal(t, "cli", pickString("cli", &l, &g))
	assert.Equal(t, "local", pickString("", &l, &g))
	assert.Equal(t, "global", pickString("", nil, &g))

	var n64 int64 = 7
	assert.Equal(t, int64(7), pickInt64(0, nil, &n64))
	assert.Equal(t, int64(3), pickInt64(3, &n64, nil))

	f := false
	tr := true
	assert.True(t, pickBool(true, &f, &f))
	assert.False(t, pickBool(false, &f, &tr), "local wins over global")
	assert.True(t, pickBool(false, nil, &tr))
}

func TestPickInterval(t *testing.T) {
	local := "1s"
	global := "3s"
	bad := "later"
	d, err := pickInterval(0, config.FileConfig{PollInterval: &local}, config.FileConfig{PollInterval: &global})
	require.NoError(t, err)
	assert.Equal(t, "1s", d.String())
	d, err = pickInterval(0, config.FileConfig{}, config.FileConfig{PollInterval: &global})
	require.NoError(t, err)
	assert.Equal(t, "3s", d.String())
	d, err = pickInterval(0, config.FileConfig{}, config.FileConfig{})
	require.NoError(t, err)
	assert.Equal(t, "5s", d.String())
	_, err = pickInterval(0, config.FileConfig{PollInterval: &bad}, config.FileConfig{})
	assert.Error(t, err)
}

func TestNatives_ExtractsAndRejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "libraries", "lwjgl-natives.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(jar), 0o755))
	f, err := os.Create(jar)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range []string{"linux/liblwjgl.so", "META-INF/MANIFEST.MF", "../escape.so"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, _ = w.Write([]byte("bin"))
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "natives")
	out, err := execute(t, "natives", "-g", dir, "--dest", dest, jar)
	assert.Error(t, err, "escaping entry is reported")
	assert.Contains(t, out, "Extracted 1 native libraries")
	assert.FileExists(t, filepath.Join(dest, "linux", "liblwjgl.so"))
	assert.NoFileExists(t, filepath.Join(dir, "escape.so"))

	_, err = execute(t, "natives", "-g", dir, "--dest", dir, jar)
	assert.Error(t, err, "game directory is never wiped")
	assert.FileExists(t, jar)
}

func TestNatives_RefusesGameDirAncestorsAndHome(t *testing.T) {
	root := t.TempDir()
	game := filepath.Join(root, "game")
	save := filepath.Join(game, "saves", "world.dat")
	require.NoError(t, os.MkdirAll(filepath.Dir(save), 0o755))
	require.NoError(t, os.WriteFile(save, []byte("world"), 0o644))
	notes := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("keep"), 0o644))
	t.Setenv("HOME", root)

	missing := filepath.Join(root, "missing.jar")
	for _, dest := range []string{root, game, filepath.Dir(root)} {
		_, err := execute(t, "natives", "-g", game, "--dest", dest, missing)
		assert.Error(t, err, dest)
	}
	assert.FileExists(t, save)
	assert.FileExists(t, notes)
}

func TestNatives_MissingArchivesAreReported(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "natives")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	keep := filepath.Join(dest, "readme.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	out, err := execute(t, "natives", "-g", filepath.Join(dir, "game"), "--dest", dest, filepath.Join(dir, "gone.jar"))
	assert.Error(t, err)
	assert.Contains(t, out, "Extracted 0 native libraries")
	assert.FileExists(t, keep)
}

func TestIsWithin(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "srv", "game")
	assert.True(t, isWithin(base, base))
	assert.True(t, isWithin(base, filepath.Dir(base)))
	assert.False(t, isWithin(base, filepath.Join(base, "natives")))
	assert.False(t, isWithin(base, filepath.Join(string(filepath.Separator), "srv", "gamedata")))
}

func TestProgressCounter(t *testing.T) {
	assert.Nil(t, progressCounter(&bytes.Buffer{}, 0))

	var buf bytes.Buffer
	step := progressCounter(&buf, 12)
	for i := 0; i < 12; i++ {
		step(types.Outcome{})
	}
	assert.Equal(t, "\r[10/12] 83%\r[12/12] 100%", buf.String())
}
