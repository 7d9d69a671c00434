package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stlauncher/internal/common/executil"
	"stlauncher/internal/common/fsutil"
)

// Install phases, in order.
const (
	PhaseClone        = "clone"
	PhaseDependencies = "dependencies"
	PhaseConfigure    = "configure"
)

// Install fetches, provisions and configures a catalog variant. The source
// tree is fetched only when the target directory does not exist yet. A failed
// phase aborts the rest; whatever is on disk is kept for a later retry.
func (r *Registry) Install(ctx context.Context, id string) error {
	v, ok := r.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariant, id)
	}
	if v.Local {
		return fmt.Errorf("%w: %s", ErrDiscoveredReadOnly, id)
	}
	log := r.log.With().Str("version", id).Logger()

	if !fsutil.PathExists(v.Path) {
		if err := os.MkdirAll(filepath.Dir(v.Path), 0o755); err != nil {
			return &PhaseError{Phase: PhaseClone, Err: err}
		}
		log.Info().Str("tag", v.Tag).Str("repo", r.opts.RepoURL).Msg("fetching source")
		res, err := r.opts.Runner.Run(ctx, executil.Cmd{
			Path:    r.opts.GitBin,
			Args:    []string{"clone", "--branch", v.Tag, "--depth", "1", r.opts.RepoURL, v.Path},
			Timeout: r.opts.CloneTimeout,
			OnLine:  r.opts.OnOutput,
		})
		if err != nil {
			return &PhaseError{Phase: PhaseClone, Err: errors.New(executil.ErrorText(res, err))}
		}
	}

	log.Info().Msg("installing dependencies")
	res, err := r.opts.Runner.Run(ctx, executil.Cmd{
		Path:    r.opts.NPMBin,
		Args:    []string{"install"},
		Dir:     v.Path,
		Timeout: r.opts.InstallTimeout,
		OnLine:  r.opts.OnOutput,
	})
	if err != nil {
		return &PhaseError{Phase: PhaseDependencies, Err: errors.New(executil.ErrorText(res, err))}
	}

	if err := RelaxSecurity(v.Path); err != nil {
		return &PhaseError{Phase: PhaseConfigure, Err: err}
	}
	log.Info().Msg("install complete")
	return nil
}

// Uninstall removes a catalog variant's directory. It refuses when id is the
// active variant or when the managed server is running at all, whichever
// variant it was started from.
func (r *Registry) Uninstall(id, activeID string, serverRunning bool) error {
	v, ok := r.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariant, id)
	}
	if v.Local {
		return fmt.Errorf("%w: %s", ErrDiscoveredReadOnly, id)
	}
	if !fsutil.PathExists(v.Path) {
		return fmt.Errorf("%w: %s", ErrNotInstalled, id)
	}
	if id == activeID {
		return ErrActiveVariant
	}
	if serverRunning {
		return ErrServerRunning
	}
	if err := os.RemoveAll(v.Path); err != nil {
		return fmt.Errorf("remove %s: %w", v.Path, err)
	}
	r.log.Info().Str("version", id).Str("path", v.Path).Msg("uninstalled")
	return nil
}
