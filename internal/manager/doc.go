// Package manager supervises the single managed application process.
//
//   - supervisor.go: Supervisor state machine (Start, Stop, exit watcher).
//   - config.go: Config and package defaults; New applies defaults.
//   - process.go: Spawner/Process abstractions and the os/exec implementation.
//   - logbuffer.go: bounded LogBuffer shared with the HTTP layer.
//   - errors.go: precondition errors (ErrAlreadyRunning, ErrNotRunning, ...).
//   - events.go, eventpub_memory.go: lifecycle events for observers and tests.
//   - metrics.go: Prometheus collectors.
//
// Collaborators (prober, reclaimer, installation lookup, spawner, clock) are
// injected through Deps so tests substitute fakes.
package manager
