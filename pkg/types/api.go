package types

import "encoding/json"

// ResultResponse is the structured outcome of a control operation.
// Precondition failures are reported here with Success=false, not as HTTP errors.
type ResultResponse struct {
	Success bool `json:"success"`
	// example: server started
	Message string `json:"message,omitempty" example:"server started"`
}

// StartResponse is returned by POST /api/start.
type StartResponse struct {
	ResultResponse
	// True when readiness was not confirmed but the child is still alive.
	Initializing bool `json:"initializing,omitempty"`
}

// StopResponse is returned by POST /api/stop.
type StopResponse struct {
	ResultResponse
	// True when the grace window elapsed and the child was killed.
	Forced bool `json:"forced,omitempty"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	// Whether the managed app answers its liveness probe.
	Running bool `json:"running"`
	// example: 8000
	Port int `json:"port" example:"8000"`
	// Version document reported by the managed app, or null.
	Version json.RawMessage `json:"version" swaggertype:"object"`
	// Active variant id, or null when none is selected.
	// example: 1.13.5
	ActiveVersion *string `json:"activeVersion" example:"1.13.5"`
	// Whether the launcher owns the running process.
	ManagedByLauncher bool `json:"managedByLauncher"`
	// Supervisor state: stopped, starting, running or stopping.
	// example: running
	State string `json:"state" example:"running"`
	// Identifier of the current child process run.
	RunID string `json:"runId,omitempty"`
}

// LogsResponse is returned by GET /api/logs.
type LogsResponse struct {
	Logs []LogEntry `json:"logs"`
}

// VersionsResponse is returned by GET /api/versions.
type VersionsResponse struct {
	Versions []VersionInfo `json:"versions"`
}

// RescanResponse is returned by POST /api/versions/rescan.
type RescanResponse struct {
	ResultResponse
	// Number of discovered installations.
	// example: 1
	Count    int           `json:"count" example:"1"`
	Versions []VersionInfo `json:"versions"`
}

// VersionRequest selects a variant for switch, install and uninstall.
type VersionRequest struct {
	// example: 1.13.5
	Version string `json:"version" example:"1.13.5"`
}

// SpeedOptimizationRequest toggles the speed optimisation flag.
type SpeedOptimizationRequest struct {
	Enable bool `json:"enable"`
}

// SettingsResponse is returned by GET /api/settings.
type SettingsResponse struct {
	SpeedOptimization bool             `json:"speedOptimization"`
	APIAggregation    bool             `json:"apiAggregation"`
	Aggregator        AggregatorStatus `json:"aggregator"`
}

// AccountInfo identifies the account whose keys are pooled.
// UserID and UID may arrive as strings or numbers and are relayed as given.
type AccountInfo struct {
	UserID         any    `json:"userId,omitempty" swaggertype:"string"`
	UID            any    `json:"uid,omitempty" swaggertype:"string"`
	UserEmail      string `json:"userEmail,omitempty"`
	Password       string `json:"password,omitempty"`
	InvitationCode string `json:"invitationCode,omitempty"`
}

// AggregatorStartRequest is the body of POST /api/aggregator/start.
type AggregatorStartRequest struct {
	Token    string       `json:"token"`
	UserInfo *AccountInfo `json:"userInfo"`
}

// AggregatorStartResponse is returned by POST /api/aggregator/start.
type AggregatorStartResponse struct {
	ResultResponse
	// example: 3
	KeysCount int `json:"keysCount,omitempty" example:"3"`
	// example: 8080
	Port     int    `json:"port,omitempty" example:"8080"`
	Endpoint string `json:"endpoint,omitempty" example:"/v1"`
}

// ErrorResponse is a standard error payload for malformed requests.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
