package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Cmd describes one host command invocation.
type Cmd struct {
	Path    string
	Args    []string
	Env     map[string]string // additional env vars
	Dir     string            // working directory
	Timeout time.Duration     // zero means no extra deadline
	// OnLine, when set, receives every complete output line as it arrives.
	OnLine func(stream, line string)
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Result carries the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes host commands. A non-zero exit status is reported as an
// error alongside the captured Result.
type Runner interface {
	Run(ctx context.Context, c Cmd) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	var stdout, stderr bytes.Buffer
	var outW, errW io.Writer = &stdout, &stderr
	var lwOut, lwErr *LineWriter
	if c.OnLine != nil {
		var mu sync.Mutex
		emit := func(stream string) func(string) {
			return func(line string) {
				mu.Lock()
				defer mu.Unlock()
				c.OnLine(stream, line)
			}
		}
		lwOut = NewLineWriter(emit("stdout"))
		lwErr = NewLineWriter(emit("stderr"))
		outW = io.MultiWriter(&stdout, lwOut)
		errW = io.MultiWriter(&stderr, lwErr)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW
	err := cmd.Run()
	if lwOut != nil {
		lwOut.Flush()
		lwErr.Flush()
	}
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, fmt.Errorf("%s: timed out after %s", c.Path, c.Timeout)
		}
		return res, fmt.Errorf("%s: %w", c.Path, err)
	}
	return res, nil
}

// Available reports whether name resolves to an executable on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ErrorText returns the most useful human-readable text for a failed command:
// trimmed stderr when present, else the error itself.
func ErrorText(res Result, err error) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
