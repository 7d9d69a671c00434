package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stlauncher/internal/config"
	"stlauncher/internal/logging"
)

// rootOptions collects persistent flags; cfg is resolved before any command runs.
type rootOptions struct {
	configPath string
	addr       string
	logLevel   string
	logJSON    bool

	cfg config.Config
}

func newRootCmd(version string) *cobra.Command {
	return buildRootCmd(&rootOptions{}, version)
}

func buildRootCmd(opts *rootOptions, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "stlauncher",
		Short: "Run and manage a local SillyTavern server",
		Long: `stlauncher supervises a SillyTavern server, installs and switches between
its versions, and optionally pools account API keys behind a local /v1 endpoint.
Without a subcommand it serves the control panel.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.cfg)
		},
	}
	root.SetVersionTemplate(`{{printf "stlauncher version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv("STLAUNCHER_CONFIG"), "Config file (.yaml, .json or .toml; defaults STLAUNCHER_CONFIG)")
	pf.StringVar(&opts.addr, "addr", os.Getenv("STLAUNCHER_ADDR"), "Control panel listen address, e.g. :8080 (defaults STLAUNCHER_ADDR)")
	pf.StringVar(&opts.logLevel, "log-level", os.Getenv("STLAUNCHER_LOG_LEVEL"), "Log level: debug|info|warn|error (defaults STLAUNCHER_LOG_LEVEL or info)")
	pf.BoolVar(&opts.logJSON, "log-json", false, "Emit JSON log lines instead of console output")

	root.AddCommand(
		newServeCmd(opts),
		newScanCmd(opts),
		newVersionCmd(),
		newSelfUpdateCmd(),
	)
	return root
}

// resolve merges the config file, flags and defaults, then initializes logging.
func (o *rootOptions) resolve() error {
	var cfg config.Config
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", o.configPath, err)
		}
		cfg = loaded
	}
	if o.addr != "" {
		cfg.Addr = o.addr
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logJSON {
		cfg.LogJSON = true
	}
	o.cfg = config.WithDefaults(cfg)
	logging.Init(logging.Config{Level: o.cfg.LogLevel, JSONOutput: o.cfg.LogJSON})
	return nil
}
