package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stlauncher/internal/config"
	"stlauncher/internal/manager"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List local and catalog SillyTavern installations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.OutOrStdout(), opts.cfg)
		},
	}
}

func runScan(out io.Writer, cfg config.Config) error {
	p, err := resolvePaths(cfg)
	if err != nil {
		return err
	}
	reg := newRegistry(cfg, p, manager.NewLogBuffer(0))
	reg.ScanLocal()
	st, err := config.NewStore(p.settings).Load()
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tINSTALLED\tACTIVE\tPATH")
	for _, v := range reg.List(st.ActiveVersion) {
		path := v.Path
		if path == "" {
			path, _ = reg.Path(v.ID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.ID, v.Label, yesNo(v.Installed), yesNo(v.Active), path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "\n%d installed\n", len(reg.InstalledIDs()))
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
