package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"stlauncher/internal/common/executil"
)

// scriptedRunner emulates git and npm by mutating the filesystem.
type scriptedRunner struct {
	mu       sync.Mutex
	calls    []executil.Cmd
	cloneErr error
	npmErr   error
	stderr   string
}

func (f *scriptedRunner) Run(_ context.Context, c executil.Cmd) (executil.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	switch c.Path {
	case "git":
		if f.cloneErr != nil {
			return executil.Result{Stderr: f.stderr, ExitCode: 128}, f.cloneErr
		}
		dst := c.Args[len(c.Args)-1]
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return executil.Result{}, err
		}
		if err := os.WriteFile(filepath.Join(dst, EntryPoint), []byte("// entry"), 0o644); err != nil {
			return executil.Result{}, err
		}
		if err := os.WriteFile(filepath.Join(dst, AppConfigFile), []byte("listen: false\nsecurityOverride: false\n"), 0o644); err != nil {
			return executil.Result{}, err
		}
		if c.OnLine != nil {
			c.OnLine("stderr", "Cloning into '"+dst+"'...")
		}
		return executil.Result{}, nil
	case "npm":
		if f.npmErr != nil {
			return executil.Result{Stderr: f.stderr, ExitCode: 1}, f.npmErr
		}
		if err := os.MkdirAll(filepath.Join(c.Dir, DependencyDir, "express"), 0o755); err != nil {
			return executil.Result{}, err
		}
		return executil.Result{}, nil
	}
	return executil.Result{}, errors.New("unexpected command " + c.String())
}

func (f *scriptedRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.String())
	}
	return out
}

func testCatalog() []Variant {
	return []Variant{
		{ID: "1.14.0", Label: "v1.14.0 (latest)"},
		{ID: "1.13.5", Label: "v1.13.5 (stable)", Default: true},
		{ID: "1.12.14"},
	}
}

func newTestRegistry(t *testing.T, runner executil.Runner) (*Registry, string) {
	t.Helper()
	home := t.TempDir()
	r := New(Options{
		HomeDir:     home,
		VersionsDir: filepath.Join(home, "st-versions"),
		RepoURL:     "https://example.invalid/SillyTavern.git",
		Catalog:     testCatalog(),
		Roots:       []string{},
		Runner:      runner,
		Logger:      zerolog.Nop(),
	})
	return r, home
}

// makeInstall creates a directory that passes as an installation.
func makeInstall(t *testing.T, dir, name, version string, withDeps bool) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	manifest := `{"name":"` + name + `","version":"` + version + `"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, EntryPoint), []byte("// entry"), 0o644))
	if withDeps {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, DependencyDir, "express"), 0o755))
	}
}
