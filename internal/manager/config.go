package manager

import (
	"time"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultPort          = 8000
	defaultProbePath     = "/version"
	defaultProbeTimeout  = 2 * time.Second
	defaultPollInterval  = 500 * time.Millisecond
	defaultPollAttempts  = 120
	defaultStopGrace     = 5 * time.Second
	defaultReclaimDelay  = time.Second
	defaultPreSpawnDelay = 500 * time.Millisecond
	defaultCommand       = "node"
	// DefaultLogCapacity is the number of LogEntry records retained.
	DefaultLogCapacity = 500
)

// DefaultArgs are passed to the child when Config.Args is nil.
var DefaultArgs = []string{"server.js", "--listen", "--whitelist", "false"}

// Config encapsulates all tunables for Supervisor construction.
type Config struct {
	Port    int
	Command string
	Args    []string
	// Env is added on top of the launcher's environment.
	Env map[string]string

	ProbePath     string
	ProbeTimeout  time.Duration
	PollInterval  time.Duration
	PollAttempts  int
	StopGrace     time.Duration
	ReclaimDelay  time.Duration
	PreSpawnDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = defaultPort
	}
	if c.Command == "" {
		c.Command = defaultCommand
	}
	if c.Args == nil {
		c.Args = append([]string(nil), DefaultArgs...)
	}
	if c.Env == nil {
		c.Env = map[string]string{"NODE_ENV": "production"}
	}
	if c.ProbePath == "" {
		c.ProbePath = defaultProbePath
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = defaultPollAttempts
	}
	if c.StopGrace <= 0 {
		c.StopGrace = defaultStopGrace
	}
	// Zero delays are kept; negative selects the default.
	if c.ReclaimDelay < 0 {
		c.ReclaimDelay = defaultReclaimDelay
	}
	if c.PreSpawnDelay < 0 {
		c.PreSpawnDelay = defaultPreSpawnDelay
	}
	return c
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{ReclaimDelay: defaultReclaimDelay, PreSpawnDelay: defaultPreSpawnDelay}.withDefaults()
}
