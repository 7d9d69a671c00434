package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// CatalogEntry describes one variant that can be installed on demand.
type CatalogEntry struct {
	ID      string `json:"id" yaml:"id" toml:"id"`
	Label   string `json:"label" yaml:"label" toml:"label"`
	Tag     string `json:"tag" yaml:"tag" toml:"tag"`
	Default bool   `json:"default" yaml:"default" toml:"default"`
}

// Config holds runtime parameters for the launcher.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr            string         `json:"addr" yaml:"addr" toml:"addr"`
	AppPort         int            `json:"app_port" yaml:"app_port" toml:"app_port"`
	HomeDir         string         `json:"home_dir" yaml:"home_dir" toml:"home_dir"`
	VersionsDir     string         `json:"versions_dir" yaml:"versions_dir" toml:"versions_dir"`
	SettingsFile    string         `json:"settings_file" yaml:"settings_file" toml:"settings_file"`
	PublicDir       string         `json:"public_dir" yaml:"public_dir" toml:"public_dir"`
	RepoURL         string         `json:"repo_url" yaml:"repo_url" toml:"repo_url"`
	NodeBin         string         `json:"node_bin" yaml:"node_bin" toml:"node_bin"`
	AccountBaseURL  string         `json:"account_base_url" yaml:"account_base_url" toml:"account_base_url"`
	UpstreamBaseURL string         `json:"upstream_base_url" yaml:"upstream_base_url" toml:"upstream_base_url"`
	LogLevel        string         `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogJSON         bool           `json:"log_json" yaml:"log_json" toml:"log_json"`
	Catalog         []CatalogEntry `json:"catalog" yaml:"catalog" toml:"catalog"`
	Timeouts        Timeouts       `json:"timeouts" yaml:"timeouts" toml:"timeouts"`
	MaxBodyBytes    int64          `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORS            CORS           `json:"cors" yaml:"cors" toml:"cors"`
}

// CORS configures cross-origin access to the control API. The zero value is
// permissive: any origin, GET/POST/OPTIONS, any header.
type CORS struct {
	Disabled       bool     `json:"disabled" yaml:"disabled" toml:"disabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Timeouts tune the supervisor, in milliseconds.
type Timeouts struct {
	ProbeMS         int `json:"probe_ms" yaml:"probe_ms" toml:"probe_ms"`
	PollIntervalMS  int `json:"poll_interval_ms" yaml:"poll_interval_ms" toml:"poll_interval_ms"`
	PollAttempts    int `json:"poll_attempts" yaml:"poll_attempts" toml:"poll_attempts"`
	StopGraceMS     int `json:"stop_grace_ms" yaml:"stop_grace_ms" toml:"stop_grace_ms"`
	ReclaimDelayMS  int `json:"reclaim_delay_ms" yaml:"reclaim_delay_ms" toml:"reclaim_delay_ms"`
	PreSpawnDelayMS int `json:"pre_spawn_delay_ms" yaml:"pre_spawn_delay_ms" toml:"pre_spawn_delay_ms"`
}

// DefaultTimeouts are the production supervisor timings.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ProbeMS:         2000,
		PollIntervalMS:  500,
		PollAttempts:    120,
		StopGraceMS:     5000,
		ReclaimDelayMS:  1000,
		PreSpawnDelayMS: 500,
	}
}

// Built-in values used when the corresponding Config field is unset.
const (
	DefaultAddr            = ":8080"
	DefaultAppPort         = 8000
	DefaultVersionsDir     = "~/st-versions"
	DefaultSettingsFile    = "config.json"
	DefaultPublicDir       = "public"
	DefaultRepoURL         = "https://github.com/SillyTavern/SillyTavern.git"
	DefaultNodeBin         = "node"
	DefaultAccountBaseURL  = "https://user.daidaibird.top"
	DefaultUpstreamBaseURL = "https://api.daidaibird.top"
	DefaultLogLevel        = "info"
	DefaultMaxBodyBytes    = 1 << 20
)

// DefaultCatalog returns the built-in list of installable variants.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{ID: "1.14.0", Label: "v1.14.0 (latest)", Tag: "1.14.0"},
		{ID: "1.13.5", Label: "v1.13.5 (stable)", Tag: "1.13.5", Default: true},
		{ID: "1.13.4", Label: "v1.13.4", Tag: "1.13.4"},
		{ID: "1.12.14", Label: "v1.12.14 (classic)", Tag: "1.12.14"},
	}
}

// WithDefaults returns a copy of cfg with every unset field filled in.
func WithDefaults(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.AppPort <= 0 {
		cfg.AppPort = DefaultAppPort
	}
	if cfg.HomeDir == "" {
		cfg.HomeDir = "~"
	}
	if cfg.VersionsDir == "" {
		cfg.VersionsDir = DefaultVersionsDir
	}
	if cfg.SettingsFile == "" {
		cfg.SettingsFile = DefaultSettingsFile
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = DefaultPublicDir
	}
	if cfg.RepoURL == "" {
		cfg.RepoURL = DefaultRepoURL
	}
	if cfg.NodeBin == "" {
		cfg.NodeBin = DefaultNodeBin
	}
	if cfg.AccountBaseURL == "" {
		cfg.AccountBaseURL = DefaultAccountBaseURL
	}
	if cfg.UpstreamBaseURL == "" {
		cfg.UpstreamBaseURL = DefaultUpstreamBaseURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if len(cfg.Catalog) == 0 {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	cfg.Timeouts = cfg.Timeouts.withDefaults()
	return cfg
}

func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.ProbeMS <= 0 {
		t.ProbeMS = d.ProbeMS
	}
	if t.PollIntervalMS <= 0 {
		t.PollIntervalMS = d.PollIntervalMS
	}
	if t.PollAttempts <= 0 {
		t.PollAttempts = d.PollAttempts
	}
	if t.StopGraceMS <= 0 {
		t.StopGraceMS = d.StopGraceMS
	}
	if t.ReclaimDelayMS <= 0 {
		t.ReclaimDelayMS = d.ReclaimDelayMS
	}
	if t.PreSpawnDelayMS <= 0 {
		t.PreSpawnDelayMS = d.PreSpawnDelayMS
	}
	return t
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
