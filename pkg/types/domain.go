package types

import "time"

// VersionInfo describes one variant of the managed application as listed by
// GET /api/versions.
type VersionInfo struct {
	// Stable identifier. Discovered installs are prefixed with "local_".
	// example: 1.13.5
	ID string `json:"id" example:"1.13.5"`
	// Human-friendly label.
	// example: v1.13.5 (stable)
	Label string `json:"label" example:"v1.13.5 (stable)"`
	// True when the variant directory and its dependencies are present.
	Installed bool `json:"installed"`
	// True for the variant the next start will run.
	Active bool `json:"active"`
	// True for the recommended catalog variant.
	Default bool `json:"default"`
	// True for installations found on disk rather than installed by the launcher.
	IsLocal bool `json:"isLocal"`
	// Install directory of a discovered variant.
	// example: /home/user/SillyTavern
	Path string `json:"path,omitempty" example:"/home/user/SillyTavern"`
}

// LogEntry is one line of the launcher's bounded log buffer.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	// One of info, error, stdout, stderr.
	// example: stdout
	Type string `json:"type" example:"stdout"`
}

// AggregatorStatus reports the key pool state.
type AggregatorStatus struct {
	Running bool `json:"running"`
	// Port of the launcher, which also serves the /v1 passthrough.
	// example: 8080
	Port            int `json:"port" example:"8080"`
	KeysCount       int `json:"keysCount"`
	FailedKeysCount int `json:"failedKeysCount"`
	// Local path of the passthrough while running.
	// example: /v1
	Endpoint string `json:"endpoint,omitempty" example:"/v1"`
}
