package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesCatalogDefaults(t *testing.T) {
	r, home := newTestRegistry(t, &scriptedRunner{})
	cat := r.Catalog()
	require.Len(t, cat, 3)
	assert.Equal(t, "v1.12.14", cat[2].Label)
	assert.Equal(t, "1.12.14", cat[2].Tag)
	assert.Equal(t, filepath.Join(home, "st-versions", "1.13.5"), cat[1].Path)
	assert.Equal(t, "1.13.5", r.DefaultID())
}

func TestDefaultIDFallsBackToFirst(t *testing.T) {
	r := New(Options{Catalog: []Variant{{ID: "a"}, {ID: "b"}}, Roots: []string{}, Logger: zerolog.Nop()})
	assert.Equal(t, "a", r.DefaultID())
	empty := New(Options{Roots: []string{}})
	assert.Equal(t, "", empty.DefaultID())
}

func TestIsInstalledCatalogNeedsPopulatedDeps(t *testing.T) {
	r, _ := newTestRegistry(t, &scriptedRunner{})
	p, ok := r.Path("1.13.5")
	require.True(t, ok)
	assert.False(t, r.IsInstalled("1.13.5"))

	require.NoError(t, os.MkdirAll(filepath.Join(p, DependencyDir), 0o755))
	assert.False(t, r.IsInstalled("1.13.5"), "empty dependency dir is not an install")

	require.NoError(t, os.MkdirAll(filepath.Join(p, DependencyDir, "express"), 0o755))
	assert.True(t, r.IsInstalled("1.13.5"))

	// re-checked on every call
	require.NoError(t, os.RemoveAll(filepath.Join(p, DependencyDir)))
	assert.False(t, r.IsInstalled("1.13.5"))
	assert.False(t, r.IsInstalled("9.9.9"))
}

func TestScanLocalFindsHomeSubdirs(t *testing.T) {
	r, home := newTestRegistry(t, &scriptedRunner{})
	makeInstall(t, filepath.Join(home, "SillyTavern"), "SillyTavern", "1.12.0", true)
	makeInstall(t, filepath.Join(home, "other"), "not-the-app", "1.0.0", true)
	makeInstall(t, filepath.Join(home, "noversion"), "sillytavern", "", false)
	// inside the versions root: never discovered
	makeInstall(t, filepath.Join(home, "st-versions"), "sillytavern", "1.13.5", true)

	found := r.ScanLocal()
	ids := make([]string, 0, len(found))
	for _, v := range found {
		ids = append(ids, v.ID)
	}
	assert.ElementsMatch(t, []string{"local_SillyTavern", "local_noversion"}, ids)

	v, ok := r.Lookup("local_SillyTavern")
	require.True(t, ok)
	assert.True(t, v.Local)
	assert.Equal(t, "Local: SillyTavern (v1.12.0)", v.Label)
	assert.True(t, r.IsInstalled("local_SillyTavern"))

	nv, ok := r.Lookup("local_noversion")
	require.True(t, ok)
	assert.Equal(t, "Local: noversion (vunknown)", nv.Label)
	assert.False(t, r.IsInstalled("local_noversion"), "missing dependency dir")
}

func TestScanLocalRequiresEntryPoint(t *testing.T) {
	r, home := newTestRegistry(t, &scriptedRunner{})
	dir := filepath.Join(home, "half")
	makeInstall(t, dir, "sillytavern", "1.0.0", true)
	require.NoError(t, os.Remove(filepath.Join(dir, EntryPoint)))
	assert.Empty(t, r.ScanLocal())
}

func TestScanLocalFirstBaseNameWins(t *testing.T) {
	home := t.TempDir()
	rootA := filepath.Join(t.TempDir(), "ST")
	rootB := filepath.Join(t.TempDir(), "ST")
	makeInstall(t, rootA, "sillytavern", "1.0.0", true)
	makeInstall(t, rootB, "sillytavern", "2.0.0", true)
	r := New(Options{
		HomeDir:     home,
		VersionsDir: filepath.Join(home, "st-versions"),
		Roots:       []string{rootA, rootB},
		Logger:      zerolog.Nop(),
	})
	found := r.ScanLocal()
	require.Len(t, found, 1)
	assert.Equal(t, rootA, found[0].Path)
}

func TestScanLocalReplacesWholesale(t *testing.T) {
	r, home := newTestRegistry(t, &scriptedRunner{})
	dir := filepath.Join(home, "SillyTavern")
	makeInstall(t, dir, "sillytavern", "1.0.0", true)
	require.Len(t, r.ScanLocal(), 1)

	require.NoError(t, os.RemoveAll(dir))
	assert.Empty(t, r.ScanLocal())
	_, ok := r.Lookup("local_SillyTavern")
	assert.False(t, ok)
}

func TestListOrdersDiscoveredFirst(t *testing.T) {
	r, home := newTestRegistry(t, &scriptedRunner{})
	makeInstall(t, filepath.Join(home, "SillyTavern"), "sillytavern", "1.0.0", true)
	r.ScanLocal()
	p, _ := r.Path("1.14.0")
	require.NoError(t, os.MkdirAll(filepath.Join(p, DependencyDir, "x"), 0o755))

	list := r.List("1.14.0")
	require.Len(t, list, 4)
	assert.Equal(t, "local_SillyTavern", list[0].ID)
	assert.True(t, list[0].IsLocal)
	assert.Equal(t, filepath.Join(home, "SillyTavern"), list[0].Path)
	assert.Equal(t, "1.14.0", list[1].ID)
	assert.True(t, list[1].Active)
	assert.True(t, list[1].Installed)
	assert.Empty(t, list[1].Path)
	assert.True(t, list[2].Default)
	assert.False(t, list[2].Installed)

	assert.Equal(t, []string{"local_SillyTavern", "1.14.0"}, r.InstalledIDs())
}

func TestDefaultRootsIncludesHomeSpellings(t *testing.T) {
	roots := DefaultRoots("/home/u")
	assert.Contains(t, roots, "/home/u/SillyTavern")
	assert.Contains(t, roots, "/home/u/st")
	assert.Contains(t, roots, "/data/data/com.termux/files/home/SillyTavern")
}
