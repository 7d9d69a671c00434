package manager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// SpawnSpec describes the child to start.
type SpawnSpec struct {
	Path   string
	Args   []string
	Dir    string
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

// Process is a started child. Wait is called exactly once, by the
// supervisor's exit watcher.
type Process interface {
	Pid() int
	Signal(sig os.Signal) error
	Kill() error
	Wait() error
}

// Spawner starts child processes.
type Spawner interface {
	Spawn(spec SpawnSpec) (Process, error)
}

// ExecSpawner starts children with os/exec. Stdin is /dev/null.
type ExecSpawner struct{}

func (ExecSpawner) Spawn(spec SpawnSpec) (Process, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	// grandchildren inheriting the pipes must not block Wait forever
	cmd.WaitDelay = 2 * time.Second
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct{ cmd *exec.Cmd }

func (p *execProcess) Pid() int                   { return p.cmd.Process.Pid }
func (p *execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
func (p *execProcess) Kill() error                { return p.cmd.Process.Kill() }

// Wait also waits for the output copiers to drain.
func (p *execProcess) Wait() error { return p.cmd.Wait() }

// exitCode extracts a process exit status from a Wait error; -1 when the
// child was terminated by a signal or the status is unknown.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}
