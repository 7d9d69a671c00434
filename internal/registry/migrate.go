package registry

import (
	"fmt"
	"path/filepath"

	"stlauncher/internal/common/fsutil"
)

// Migrate copies the persisted data subtree of installation srcDir into
// dstDir, overwriting files with the same relative path. It reports whether
// anything was copied; a source without a data directory is not an error.
// A failure partway leaves the destination partially written.
func Migrate(srcDir, dstDir string) (bool, error) {
	src := filepath.Join(srcDir, DataDir)
	if !fsutil.IsDir(src) {
		return false, nil
	}
	dst := filepath.Join(dstDir, DataDir)
	if err := fsutil.CopyTree(src, dst); err != nil {
		return false, fmt.Errorf("migrate data: %w", err)
	}
	return true, nil
}
