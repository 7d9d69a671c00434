package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"stlauncher/internal/aggregator"
	"stlauncher/internal/common/fsutil"
	"stlauncher/internal/config"
	"stlauncher/internal/health"
	"stlauncher/internal/httpapi"
	"stlauncher/internal/launcher"
	"stlauncher/internal/logging"
	"stlauncher/internal/manager"
	"stlauncher/internal/ports"
	"stlauncher/internal/registry"
)

// paths are the resolved filesystem locations from config.
type paths struct {
	home      string
	versions  string
	settings  string
	publicDir string
}

func resolvePaths(cfg config.Config) (paths, error) {
	var p paths
	var err error
	if p.home, err = fsutil.ExpandHome(cfg.HomeDir); err != nil {
		return p, err
	}
	if p.versions, err = fsutil.ExpandHome(cfg.VersionsDir); err != nil {
		return p, err
	}
	if p.settings, err = besideBinary(cfg.SettingsFile); err != nil {
		return p, err
	}
	if p.publicDir, err = besideBinary(cfg.PublicDir); err != nil {
		return p, err
	}
	return p, nil
}

// besideBinary resolves a relative path against the executable's directory.
func besideBinary(p string) (string, error) {
	p, err := fsutil.ExpandHome(p)
	if err != nil || p == "" || filepath.IsAbs(p) {
		return p, err
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), p), nil
}

// listenPort extracts the numeric port from a listen address, or 0.
func listenPort(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func supervisorConfig(cfg config.Config) manager.Config {
	t := cfg.Timeouts
	return manager.Config{
		Port:          cfg.AppPort,
		Command:       cfg.NodeBin,
		ProbeTimeout:  ms(t.ProbeMS),
		PollInterval:  ms(t.PollIntervalMS),
		PollAttempts:  t.PollAttempts,
		StopGrace:     ms(t.StopGraceMS),
		ReclaimDelay:  ms(t.ReclaimDelayMS),
		PreSpawnDelay: ms(t.PreSpawnDelayMS),
	}
}

func catalogVariants(entries []config.CatalogEntry) []registry.Variant {
	out := make([]registry.Variant, 0, len(entries))
	for _, e := range entries {
		out = append(out, registry.Variant{ID: e.ID, Label: e.Label, Tag: e.Tag, Default: e.Default})
	}
	return out
}

func newRegistry(cfg config.Config, p paths, logs *manager.LogBuffer) *registry.Registry {
	return registry.New(registry.Options{
		HomeDir:     p.home,
		VersionsDir: p.versions,
		RepoURL:     cfg.RepoURL,
		Catalog:     catalogVariants(cfg.Catalog),
		Logger:      logging.WithComponent("registry"),
		OnOutput: func(stream, line string) {
			logs.Add(stream, line)
		},
	})
}

// reclaimPattern matches stale launcher processes by how they were invoked.
func reclaimPattern() string {
	name := "stlauncher"
	if exe, err := os.Executable(); err == nil {
		name = filepath.Base(exe)
	}
	return ports.InvocationPattern(name)
}

// app is the fully wired launcher.
type app struct {
	cfg       config.Config
	paths     paths
	logs      *manager.LogBuffer
	store     *config.Store
	registry  *registry.Registry
	reclaimer *ports.Reclaimer
	sup       *manager.Supervisor
	agg       *aggregator.Service
	svc       *launcher.Service
	handler   http.Handler
}

func newApp(cfg config.Config) (*app, error) {
	p, err := resolvePaths(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, paths: p}
	a.logs = manager.NewLogBuffer(manager.DefaultLogCapacity)
	a.store = config.NewStore(p.settings)
	a.registry = newRegistry(cfg, p, a.logs)
	a.reclaimer = ports.NewReclaimer(ports.Options{
		Pattern: reclaimPattern(),
		Logger:  logging.WithComponent("ports"),
	})
	prober := health.NewProber()
	a.sup = manager.New(supervisorConfig(cfg), manager.Deps{
		Installations: a.registry,
		ActiveVariant: launcher.ActiveVariantFunc(a.store, a.registry),
		Prober:        prober,
		Reclaimer:     a.reclaimer,
		Logs:          a.logs,
		Logger:        logging.WithComponent("manager"),
	})
	a.sup.SetEventPublisher(manager.NewLogPublisher(logging.WithComponent("events")))
	a.agg = aggregator.New(aggregator.Options{
		AccountBaseURL:  cfg.AccountBaseURL,
		UpstreamBaseURL: cfg.UpstreamBaseURL,
		Port:            listenPort(cfg.Addr),
		Logs:            a.logs,
		Logger:          logging.WithComponent("aggregator"),
	})
	a.svc = launcher.New(launcher.Deps{
		Store:      a.store,
		Registry:   a.registry,
		Supervisor: a.sup,
		Aggregator: a.agg,
		Prober:     prober,
		Logs:       a.logs,
		Logger:     logging.WithComponent("launcher"),
	})

	opts := httpapi.Options{Proxy: a.agg.Proxy()}
	if fsutil.IsDir(p.publicDir) {
		opts.PublicDir = p.publicDir
	} else {
		logging.Logger.Warn().Str("dir", p.publicDir).Msg("control panel assets not found, serving API only")
	}
	httpapi.SetLogger(logging.WithComponent("http"))
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(!cfg.CORS.Disabled, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	a.handler = httpapi.NewMux(a.svc, opts)
	return a, nil
}

// prepare creates the versions directory, scans for local installs and
// selects one when no variant has been chosen yet.
func (a *app) prepare() error {
	if err := os.MkdirAll(a.paths.versions, 0o755); err != nil {
		return fmt.Errorf("create versions dir: %w", err)
	}
	a.registry.ScanLocal()
	a.svc.AutoSelect()
	return nil
}
