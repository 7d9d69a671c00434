package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type fakeExitErr struct{ code int }

func (e fakeExitErr) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e fakeExitErr) ExitCode() int { return e.code }

type fakeProcess struct {
	pid        int
	ignoreTerm bool

	exitCh chan struct{}
	once   sync.Once
	code   int

	mu      sync.Mutex
	signals []os.Signal
	killed  bool
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, exitCh: make(chan struct{})}
}

func (p *fakeProcess) exit(code int) {
	p.once.Do(func() {
		p.code = code
		close(p.exitCh)
	})
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) hasExited() bool {
	select {
	case <-p.exitCh:
		return true
	default:
		return false
	}
}

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	p.mu.Unlock()
	if !p.ignoreTerm {
		p.exit(0)
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit(137)
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.exitCh
	if p.code != 0 {
		return fakeExitErr{code: p.code}
	}
	return nil
}

func (p *fakeProcess) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

func (p *fakeProcess) gotSignals() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]os.Signal(nil), p.signals...)
}

type fakeSpawner struct {
	mu         sync.Mutex
	specs      []SpawnSpec
	procs      []*fakeProcess
	err        error
	ignoreTerm bool
	onSpawn    func(spec SpawnSpec, p *fakeProcess)
}

func (f *fakeSpawner) Spawn(spec SpawnSpec) (Process, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	p := newFakeProcess(1000 + len(f.procs))
	p.ignoreTerm = f.ignoreTerm
	f.specs = append(f.specs, spec)
	f.procs = append(f.procs, p)
	hook := f.onSpawn
	f.mu.Unlock()
	if hook != nil {
		hook(spec, p)
	}
	return p, nil
}

func (f *fakeSpawner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.procs)
}

func (f *fakeSpawner) last() *fakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.procs) == 0 {
		return nil
	}
	return f.procs[len(f.procs)-1]
}

// fakeProber reports the port live while a foreign occupant holds it or the
// child function says so.
type fakeProber struct {
	foreign atomic.Bool
	child   func() bool
	calls   atomic.Int32
}

func (p *fakeProber) IsAlive(context.Context, int, string, time.Duration) bool {
	p.calls.Add(1)
	return p.foreign.Load() || (p.child != nil && p.child())
}

type fakeReclaimer struct {
	calls     atomic.Int32
	onReclaim func()
}

func (r *fakeReclaimer) Reclaim(context.Context, int) bool {
	r.calls.Add(1)
	if r.onReclaim != nil {
		r.onReclaim()
		return true
	}
	return false
}

type fakeInstalls map[string]string

func (f fakeInstalls) IsInstalled(id string) bool { _, ok := f[id]; return ok }
func (f fakeInstalls) Path(id string) (string, bool) {
	p, ok := f[id]
	return p, ok
}

var errSpawn = errors.New("exec: \"node\": executable file not found in $PATH")
