package manager

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stlauncher/internal/common/executil"
	"stlauncher/internal/common/retry"
)

// State of the supervised child.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Prober checks liveness of the child's port.
type Prober interface {
	IsAlive(ctx context.Context, port int, path string, timeout time.Duration) bool
}

// Reclaimer frees a port held by another process, best effort.
type Reclaimer interface {
	Reclaim(ctx context.Context, port int) bool
}

// Installations resolves variant ids to directories.
type Installations interface {
	IsInstalled(id string) bool
	Path(id string) (string, bool)
}

// Deps are the collaborators of a Supervisor.
type Deps struct {
	Installations Installations
	// ActiveVariant returns the id of the variant to run.
	ActiveVariant func() string
	Prober        Prober
	Reclaimer     Reclaimer
	Spawner       Spawner
	Logs          *LogBuffer
	Publisher     EventPublisher
	Logger        zerolog.Logger
	// Sleep waits between reclamation and re-probe; defaults to retry.Sleep.
	Sleep func(ctx context.Context, d time.Duration) bool
}

// StartResult describes a successful start.
type StartResult struct {
	RunID     string
	VariantID string
	Pid       int
	// Ready is false when readiness polling ran out while the child was still
	// alive: the app is assumed to be initializing slowly.
	Ready bool
}

// StopResult describes a completed stop.
type StopResult struct {
	// Forced is set when the grace window elapsed and the child was killed.
	Forced bool
}

// Snapshot is a point-in-time view of the supervisor.
type Snapshot struct {
	State     State
	RunID     string
	VariantID string
	Pid       int
	StartedAt time.Time
}

// Supervisor owns at most one managed child process.
type Supervisor struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger

	mu        sync.Mutex
	state     State
	proc      Process
	exited    chan struct{}
	gen       uint64
	runID     string
	variantID string
	startedAt time.Time
}

// New constructs a Supervisor, applying defaults to cfg and deps.
func New(cfg Config, deps Deps) *Supervisor {
	if deps.Spawner == nil {
		deps.Spawner = ExecSpawner{}
	}
	if deps.Logs == nil {
		deps.Logs = NewLogBuffer(DefaultLogCapacity)
	}
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}
	if deps.Sleep == nil {
		deps.Sleep = retry.Sleep
	}
	if deps.ActiveVariant == nil {
		deps.ActiveVariant = func() string { return "" }
	}
	s := &Supervisor{cfg: cfg.withDefaults(), deps: deps, log: deps.Logger}
	stateGauge.Set(float64(StateStopped))
	return s
}

// Port returns the managed app's port.
func (s *Supervisor) Port() int { return s.cfg.Port }

// Logs returns the shared log buffer.
func (s *Supervisor) Logs() *LogBuffer { return s.deps.Logs }

// SetEventPublisher installs an EventPublisher; nil restores the no-op default.
func (s *Supervisor) SetEventPublisher(p EventPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.deps.Publisher = noopPublisher{}
		return
	}
	s.deps.Publisher = p
}

// Snapshot returns the current state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{State: s.state, RunID: s.runID, VariantID: s.variantID, StartedAt: s.startedAt}
	if s.proc != nil {
		snap.Pid = s.proc.Pid()
	}
	return snap
}

// HasHandle reports whether a child process is owned.
func (s *Supervisor) HasHandle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

func (s *Supervisor) setStateLocked(st State) {
	s.state = st
	stateGauge.Set(float64(st))
}

func (s *Supervisor) publish(name string, fields map[string]any) {
	s.mu.Lock()
	pub, runID, variant := s.deps.Publisher, s.runID, s.variantID
	s.mu.Unlock()
	pub.Publish(Event{Name: name, VariantID: variant, RunID: runID, Fields: fields})
}

func (s *Supervisor) info(msg string) {
	s.deps.Logs.Add(LogInfo, msg)
	s.log.Info().Msg(msg)
}

func (s *Supervisor) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.deps.Logs.Add(LogError, msg)
	s.log.Error().Msg(msg)
}

// Start brings the child up. It is rejected unless the supervisor is
// Stopped. A live port is reclaimed once, then re-probed after a delay; a
// port that is still live fails with ErrPortOccupied. Readiness is polled a
// bounded number of times: exhaustion with the child alive is a degraded
// success (Ready=false), exhaustion after the child exited is a failure.
func (s *Supervisor) Start(ctx context.Context) (StartResult, error) {
	s.mu.Lock()
	if s.state != StateStopped || s.proc != nil {
		s.mu.Unlock()
		startsTotal.WithLabelValues("rejected").Inc()
		return StartResult{}, ErrAlreadyRunning
	}
	s.setStateLocked(StateStarting)
	s.mu.Unlock()

	res, err := s.start(ctx)
	if err != nil {
		s.mu.Lock()
		if s.proc == nil && s.state == StateStarting {
			s.setStateLocked(StateStopped)
		}
		s.mu.Unlock()
		if IsStartFailed(err) {
			startsTotal.WithLabelValues("failed").Inc()
		} else {
			startsTotal.WithLabelValues("rejected").Inc()
		}
		return res, err
	}
	if res.Ready {
		startsTotal.WithLabelValues("ready").Inc()
	} else {
		startsTotal.WithLabelValues("initializing").Inc()
	}
	return res, nil
}

func (s *Supervisor) start(ctx context.Context) (StartResult, error) {
	port := s.cfg.Port
	if s.alive(ctx) {
		s.info(fmt.Sprintf("port %d is in use, attempting to reclaim it", port))
		s.deps.Reclaimer.Reclaim(ctx, port)
		s.deps.Sleep(ctx, s.cfg.ReclaimDelay)
		if s.alive(ctx) {
			s.errorf("port %d is still in use", port)
			return StartResult{}, ErrPortOccupied
		}
	}

	id := s.deps.ActiveVariant()
	if id == "" || !s.deps.Installations.IsInstalled(id) {
		s.errorf("version %q is not installed", id)
		return StartResult{}, ErrNotInstalled(id)
	}
	dir, _ := s.deps.Installations.Path(id)

	s.deps.Reclaimer.Reclaim(ctx, port)
	s.deps.Sleep(ctx, s.cfg.PreSpawnDelay)

	runID := uuid.NewString()
	runLog := s.log.With().Str("run_id", runID).Str("version", id).Logger()
	stdout := executil.NewLineWriter(func(line string) {
		s.deps.Logs.Add(LogStdout, line)
		runLog.Info().Str("stream", LogStdout).Msg(line)
	})
	stderr := executil.NewLineWriter(func(line string) {
		s.deps.Logs.Add(LogStderr, line)
		runLog.Warn().Str("stream", LogStderr).Msg(line)
	})

	s.info(fmt.Sprintf("starting version %s from %s", id, dir))
	proc, err := s.deps.Spawner.Spawn(SpawnSpec{
		Path:   s.cfg.Command,
		Args:   s.cfg.Args,
		Dir:    dir,
		Env:    s.cfg.Env,
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		s.errorf("failed to start: %v", err)
		return StartResult{}, startFailedError{msg: "failed to start: " + err.Error()}
	}

	exited := make(chan struct{})
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.proc = proc
	s.exited = exited
	s.runID = runID
	s.variantID = id
	s.startedAt = time.Now()
	s.mu.Unlock()
	pid := proc.Pid()
	s.publish("spawn_start", map[string]any{"pid": pid, "port": port, "dir": dir})
	go s.watch(proc, gen, exited, runID, id, stdout, stderr)

	res := StartResult{RunID: runID, VariantID: id, Pid: pid}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-exited:
			cancel()
		case <-pollCtx.Done():
		}
	}()
	ready := retry.Until(pollCtx, s.cfg.PollInterval, s.cfg.PollAttempts, func(c context.Context) bool {
		return s.deps.Prober.IsAlive(c, port, s.cfg.ProbePath, s.cfg.ProbeTimeout)
	})

	select {
	case <-exited:
		if !ready {
			s.errorf("process exited during startup, check the logs")
			return res, startFailedError{msg: "process exited during startup, check the logs"}
		}
	default:
	}

	s.mu.Lock()
	if s.gen == gen && s.state == StateStarting {
		s.setStateLocked(StateRunning)
	}
	s.mu.Unlock()

	res.Ready = ready
	if ready {
		s.info(fmt.Sprintf("server ready on port %d", port))
		s.publish("spawn_ready", map[string]any{"pid": pid})
	} else {
		s.info("readiness not confirmed, server is still initializing")
		s.publish("spawn_initializing", map[string]any{"pid": pid})
	}
	return res, nil
}

func (s *Supervisor) alive(ctx context.Context) bool {
	return s.deps.Prober.IsAlive(ctx, s.cfg.Port, s.cfg.ProbePath, s.cfg.ProbeTimeout)
}

// watch waits for the child to exit and clears the handle if it still
// belongs to generation gen. No restart is attempted.
func (s *Supervisor) watch(proc Process, gen uint64, exited chan struct{}, runID, variant string, stdout, stderr *executil.LineWriter) {
	err := proc.Wait()
	stdout.Flush()
	stderr.Flush()
	code := exitCode(err)

	s.mu.Lock()
	current := s.gen == gen && s.proc == proc
	expected := !current || s.state == StateStopping
	if current {
		s.proc = nil
		s.exited = nil
		s.runID = ""
		s.variantID = ""
		s.startedAt = time.Time{}
		s.setStateLocked(StateStopped)
	}
	pub := s.deps.Publisher
	s.mu.Unlock()
	close(exited)

	msg := "process exited with code " + strconv.Itoa(code)
	if expected {
		s.info(msg)
	} else {
		exitsTotal.WithLabelValues("unexpected").Inc()
		s.errorf("%s", msg)
	}
	pub.Publish(Event{Name: "spawn_exit", VariantID: variant, RunID: runID, Fields: map[string]any{"code": code, "expected": expected}})
}

// Stop sends SIGTERM and waits up to the grace window for the child to exit,
// then kills it and declares Stopped without waiting for confirmation.
func (s *Supervisor) Stop(ctx context.Context) (StopResult, error) {
	s.mu.Lock()
	if s.proc == nil {
		s.mu.Unlock()
		return StopResult{}, ErrNotRunning
	}
	if s.state == StateStopping {
		s.mu.Unlock()
		return StopResult{}, ErrStopping
	}
	proc, exited, gen := s.proc, s.exited, s.gen
	s.setStateLocked(StateStopping)
	s.mu.Unlock()

	s.info("stopping server")
	s.publish("stop_start", map[string]any{"pid": proc.Pid()})
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		s.log.Debug().Err(err).Msg("SIGTERM failed")
	}

	forced := false
	t := time.NewTimer(s.cfg.StopGrace)
	defer t.Stop()
	select {
	case <-exited:
	case <-t.C:
		forced = true
	case <-ctx.Done():
		forced = true
	}
	if forced {
		_ = proc.Kill()
	}

	s.mu.Lock()
	if s.gen == gen && s.proc != nil {
		s.proc = nil
		s.exited = nil
		s.runID = ""
		s.variantID = ""
		s.startedAt = time.Time{}
		s.setStateLocked(StateStopped)
	}
	s.mu.Unlock()

	if forced {
		exitsTotal.WithLabelValues("forced").Inc()
		s.info("server force stopped")
	} else {
		exitsTotal.WithLabelValues("stopped").Inc()
		s.info("server stopped")
	}
	s.publish("stop_done", map[string]any{"forced": forced})
	return StopResult{Forced: forced}, nil
}

// Shutdown stops the child if one is owned. Used on launcher exit.
func (s *Supervisor) Shutdown(ctx context.Context) {
	if !s.HasHandle() {
		return
	}
	if _, err := s.Stop(ctx); err != nil {
		s.log.Warn().Err(err).Msg("stop on shutdown")
	}
}
