// Package registry tracks installed variants of the managed application:
// catalog variants installed on demand under the versions directory and
// discovered variants found by scanning common install locations.
package registry

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stlauncher/internal/common/executil"
	"stlauncher/internal/common/fsutil"
	"stlauncher/pkg/types"
)

// Layout of an installation directory.
const (
	ManifestFile  = "package.json"
	EntryPoint    = "server.js"
	DependencyDir = "node_modules"
	DataDir       = "data"
	AppConfigFile = "config.yaml"
	// DiscoveredPrefix marks ids derived from a discovered directory name.
	// Catalog ids never carry it, so the two sets stay disjoint.
	DiscoveredPrefix = "local_"
)

// Variant identifies one installable build of the managed application.
type Variant struct {
	ID      string
	Label   string
	Tag     string
	Default bool
	Path    string
	// Local marks a discovered installation.
	Local bool
	// Version is the manifest version of a discovered installation.
	Version string
}

// Options configures New. Zero durations fall back to defaults.
type Options struct {
	HomeDir     string
	VersionsDir string
	RepoURL     string
	Catalog     []Variant
	// Roots are scanned before the immediate subdirectories of HomeDir.
	// Nil selects DefaultRoots(HomeDir).
	Roots          []string
	Runner         executil.Runner
	GitBin         string
	NPMBin         string
	CloneTimeout   time.Duration
	InstallTimeout time.Duration
	Logger         zerolog.Logger
	// OnOutput receives tool output lines during install.
	OnOutput func(stream, line string)
}

const (
	defaultCloneTimeout   = 600 * time.Second
	defaultInstallTimeout = 900 * time.Second
)

// Registry is safe for concurrent use.
type Registry struct {
	opts    Options
	catalog []Variant

	mu         sync.RWMutex
	discovered map[string]Variant
	order      []string
	log        zerolog.Logger
}

// DefaultRoots returns the fixed list of candidate install locations.
func DefaultRoots(home string) []string {
	return []string{
		filepath.Join(home, "SillyTavern"),
		filepath.Join(home, "sillytavern"),
		filepath.Join(home, "st"),
		filepath.Join(home, "ST"),
		"/data/data/com.termux/files/home/SillyTavern",
		"/data/data/com.termux/files/home/sillytavern",
	}
}

// New constructs a Registry. Catalog variants get their Path under
// VersionsDir. No scan is performed; call ScanLocal.
func New(opts Options) *Registry {
	if opts.Runner == nil {
		opts.Runner = executil.ExecRunner{}
	}
	if opts.GitBin == "" {
		opts.GitBin = "git"
	}
	if opts.NPMBin == "" {
		opts.NPMBin = "npm"
	}
	if opts.CloneTimeout <= 0 {
		opts.CloneTimeout = defaultCloneTimeout
	}
	if opts.InstallTimeout <= 0 {
		opts.InstallTimeout = defaultInstallTimeout
	}
	if opts.Roots == nil {
		opts.Roots = DefaultRoots(opts.HomeDir)
	}
	r := &Registry{
		opts:       opts,
		discovered: map[string]Variant{},
		log:        opts.Logger,
	}
	for _, v := range opts.Catalog {
		v.Local = false
		if v.Tag == "" {
			v.Tag = v.ID
		}
		if v.Label == "" {
			v.Label = "v" + v.ID
		}
		v.Path = filepath.Join(opts.VersionsDir, v.ID)
		r.catalog = append(r.catalog, v)
	}
	return r
}

// VersionsDir returns the root holding catalog installs.
func (r *Registry) VersionsDir() string { return r.opts.VersionsDir }

// DefaultID returns the catalog variant flagged as default, or the first
// catalog entry when none is flagged.
func (r *Registry) DefaultID() string {
	for _, v := range r.catalog {
		if v.Default {
			return v.ID
		}
	}
	if len(r.catalog) > 0 {
		return r.catalog[0].ID
	}
	return ""
}

// Lookup resolves an id against discovered installs, then the catalog.
func (r *Registry) Lookup(id string) (Variant, bool) {
	if strings.HasPrefix(id, DiscoveredPrefix) {
		r.mu.RLock()
		v, ok := r.discovered[id]
		r.mu.RUnlock()
		return v, ok
	}
	for _, v := range r.catalog {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Path returns the installation directory for id.
func (r *Registry) Path(id string) (string, bool) {
	v, ok := r.Lookup(id)
	if !ok {
		return "", false
	}
	return v.Path, true
}

// IsInstalled reports whether id refers to a usable installation. The
// dependency directory is re-checked on every call.
func (r *Registry) IsInstalled(id string) bool {
	v, ok := r.Lookup(id)
	if !ok {
		return false
	}
	if v.Local {
		return fsutil.IsDir(v.Path) && fsutil.IsDir(filepath.Join(v.Path, DependencyDir))
	}
	return fsutil.IsDir(v.Path) && fsutil.DirPopulated(filepath.Join(v.Path, DependencyDir))
}

// Discovered returns discovered installs in scan order.
func (r *Registry) Discovered() []Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Variant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.discovered[id])
	}
	return out
}

// Catalog returns the catalog entries in declaration order.
func (r *Registry) Catalog() []Variant {
	out := make([]Variant, len(r.catalog))
	copy(out, r.catalog)
	return out
}

// List returns discovered installs first, then catalog entries, annotated
// with installed, active and default flags.
func (r *Registry) List(activeID string) []types.VersionInfo {
	disc := r.Discovered()
	out := make([]types.VersionInfo, 0, len(disc)+len(r.catalog))
	for _, v := range disc {
		out = append(out, types.VersionInfo{
			ID:        v.ID,
			Label:     v.Label,
			Installed: r.IsInstalled(v.ID),
			Active:    v.ID == activeID,
			IsLocal:   true,
			Path:      v.Path,
		})
	}
	for _, v := range r.catalog {
		out = append(out, types.VersionInfo{
			ID:        v.ID,
			Label:     v.Label,
			Installed: r.IsInstalled(v.ID),
			Active:    v.ID == activeID,
			Default:   v.Default,
		})
	}
	return out
}

// InstalledIDs lists every installed variant id, discovered ones first.
func (r *Registry) InstalledIDs() []string {
	var ids []string
	for _, v := range r.List("") {
		if v.Installed {
			ids = append(ids, v.ID)
		}
	}
	return ids
}
