package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

var errDevVersion = errors.New("cannot self-update a development version")

func newSelfUpdateCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update stlauncher to the latest release",
		Long: `Checks for the latest release of stlauncher on GitHub and, when it is newer
than the running binary, replaces the binary in place. Release assets are
verified against the published checksums.txt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfUpdate(cmd.Context(), cmd.OutOrStdout(), cmd.Root().Version, repo)
		},
	}
	cmd.Flags().StringVar(&repo, "repo", os.Getenv("STLAUNCHER_UPDATE_REPO"), "GitHub owner/name publishing releases (defaults STLAUNCHER_UPDATE_REPO)")
	return cmd
}

func runSelfUpdate(ctx context.Context, out io.Writer, current, repo string) error {
	if current == "" || current == "dev" {
		return errDevVersion
	}
	if repo == "" {
		return errors.New("no release repository configured (--repo or STLAUNCHER_UPDATE_REPO)")
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"},
	})
	if err != nil {
		return fmt.Errorf("create updater: %w", err)
	}
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(repo))
	if err != nil {
		return fmt.Errorf("detect latest release: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	if latest.LessOrEqual(current) {
		fmt.Fprintf(out, "stlauncher %s is up to date\n", current)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("update binary: %w", err)
	}
	fmt.Fprintf(out, "updated stlauncher from %s to %s\n", current, latest.Version())
	return nil
}
