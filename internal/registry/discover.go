package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"stlauncher/internal/common/fsutil"
)

// appName is the manifest package name of the managed application.
const appName = "sillytavern"

type manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// readManifest returns the manifest of dir when dir looks like an
// installation: manifest and entry point present and the package name
// matches case-insensitively.
func readManifest(dir string) (manifest, bool) {
	var m manifest
	if !fsutil.PathExists(filepath.Join(dir, EntryPoint)) {
		return m, false
	}
	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, false
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, false
	}
	return m, strings.EqualFold(m.Name, appName)
}

// candidates returns the fixed roots followed by every immediate
// subdirectory of home, without duplicates.
func (r *Registry) candidates() []string {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, p := range r.opts.Roots {
		add(p)
	}
	if r.opts.HomeDir != "" {
		entries, err := os.ReadDir(r.opts.HomeDir)
		if err != nil {
			r.log.Debug().Err(err).Str("home", r.opts.HomeDir).Msg("cannot list home directory")
		}
		for _, e := range entries {
			if e.IsDir() {
				add(filepath.Join(r.opts.HomeDir, e.Name()))
			}
		}
	}
	return out
}

// ScanLocal rescans candidate locations and replaces the discovered set
// wholesale. Directories inside the versions root are skipped. When two
// candidates share a base name the first one wins.
func (r *Registry) ScanLocal() []Variant {
	found := map[string]Variant{}
	var order []string
	var accepted []os.FileInfo
	for _, dir := range r.candidates() {
		if r.opts.VersionsDir != "" && fsutil.IsWithin(dir, r.opts.VersionsDir) {
			continue
		}
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() || sameAsAny(fi, accepted) {
			continue
		}
		m, ok := readManifest(dir)
		if !ok {
			continue
		}
		base := filepath.Base(dir)
		id := DiscoveredPrefix + base
		if _, dup := found[id]; dup {
			continue
		}
		version := m.Version
		if version == "" {
			version = "unknown"
		}
		found[id] = Variant{
			ID:      id,
			Label:   "Local: " + base + " (v" + version + ")",
			Path:    dir,
			Local:   true,
			Version: version,
		}
		order = append(order, id)
		accepted = append(accepted, fi)
	}

	r.mu.Lock()
	r.discovered = found
	r.order = order
	r.mu.Unlock()

	out := make([]Variant, 0, len(order))
	for _, id := range order {
		out = append(out, found[id])
		r.log.Info().Str("id", id).Str("path", found[id].Path).Str("version", found[id].Version).Msg("found local installation")
	}
	return out
}

// sameAsAny guards against case-insensitive filesystems where two candidate
// spellings name one directory.
func sameAsAny(fi os.FileInfo, seen []os.FileInfo) bool {
	for _, s := range seen {
		if os.SameFile(fi, s) {
			return true
		}
	}
	return false
}
