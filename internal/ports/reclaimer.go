package ports

import (
	"context"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stlauncher/internal/common/executil"
)

// defaultToolTimeout bounds each host tool invocation.
const defaultToolTimeout = 5 * time.Second

// Strategy is one way of freeing a port. Reclaim reports success; it must not
// panic and should treat a missing host tool as plain failure.
type Strategy struct {
	Name string
	// Tool is the host command the strategy needs. Strategies whose tool is
	// not installed are skipped.
	Tool    string
	Reclaim func(ctx context.Context, port int) bool
}

// Reclaimer tries an ordered list of strategies until one succeeds.
type Reclaimer struct {
	runner     executil.Runner
	available  func(string) bool
	strategies []Strategy
	pattern    string
	selfPID    int
	timeout    time.Duration
	log        zerolog.Logger
}

// Options configures NewReclaimer.
type Options struct {
	Runner executil.Runner
	// Pattern is an extended regular expression matched against full
	// command lines by the last-resort strategy (pgrep -f). Build it with
	// InvocationPattern. Empty disables that strategy.
	Pattern string
	// ToolTimeout bounds each host command; defaults to 5s.
	ToolTimeout time.Duration
	Logger      zerolog.Logger
}

// NewReclaimer builds the default cascade: fuser, lsof, ss, then a command
// line pattern match. The current process is never signalled.
func NewReclaimer(opts Options) *Reclaimer {
	r := &Reclaimer{
		runner:  opts.Runner,
		pattern: opts.Pattern,
		selfPID: os.Getpid(),
		timeout: opts.ToolTimeout,
		log:     opts.Logger,
	}
	if r.runner == nil {
		r.runner = executil.ExecRunner{}
		r.available = executil.Available
	}
	if r.timeout <= 0 {
		r.timeout = defaultToolTimeout
	}
	r.strategies = []Strategy{
		{Name: "fuser", Tool: "fuser", Reclaim: r.viaFuser},
		{Name: "lsof", Tool: "lsof", Reclaim: r.viaLsof},
		{Name: "ss", Tool: "ss", Reclaim: r.viaSS},
	}
	if r.pattern != "" {
		r.strategies = append(r.strategies, Strategy{Name: "pattern", Tool: "pgrep", Reclaim: r.viaPattern})
	}
	return r
}

// InvocationPattern returns a pgrep -f expression that matches processes
// started as the named executable, by bare name or by path, and nothing that
// merely mentions the name in its arguments.
func InvocationPattern(name string) string {
	return `^([^ ]*/)?` + regexp.QuoteMeta(name) + `( |$)`
}

// NewReclaimerWith builds a Reclaimer from an explicit strategy list.
func NewReclaimerWith(logger zerolog.Logger, strategies ...Strategy) *Reclaimer {
	return &Reclaimer{strategies: strategies, selfPID: os.Getpid(), timeout: defaultToolTimeout, log: logger}
}

// Strategies lists strategy names in the order they are tried.
func (r *Reclaimer) Strategies() []string {
	out := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		out[i] = s.Name
	}
	return out
}

// Reclaim tries every strategy in order and returns true on the first that
// reports success. It never returns an error; reclamation is best effort.
func (r *Reclaimer) Reclaim(ctx context.Context, port int) bool {
	for _, s := range r.strategies {
		if r.try(ctx, s, port) {
			r.log.Info().Int("port", port).Str("strategy", s.Name).Msg("port reclaimed")
			reclaimTotal.WithLabelValues(s.Name).Inc()
			return true
		}
		r.log.Debug().Int("port", port).Str("strategy", s.Name).Msg("reclaim strategy failed")
	}
	reclaimTotal.WithLabelValues("none").Inc()
	return false
}

func (r *Reclaimer) try(ctx context.Context, s Strategy, port int) (ok bool) {
	if s.Tool != "" && r.available != nil && !r.available(s.Tool) {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn().Interface("panic", rec).Str("strategy", s.Name).Msg("reclaim strategy panicked")
			ok = false
		}
	}()
	return s.Reclaim(ctx, port)
}

func (r *Reclaimer) run(ctx context.Context, name string, args ...string) (executil.Result, error) {
	return r.runner.Run(ctx, executil.Cmd{Path: name, Args: args, Timeout: r.timeout})
}

func (r *Reclaimer) viaFuser(ctx context.Context, port int) bool {
	_, err := r.run(ctx, "fuser", "-k", strconv.Itoa(port)+"/tcp")
	return err == nil
}

func (r *Reclaimer) viaLsof(ctx context.Context, port int) bool {
	res, err := r.run(ctx, "lsof", "-t", "-i:"+strconv.Itoa(port))
	if err != nil {
		return false
	}
	return r.killPIDs(ctx, parsePIDs(res.Stdout))
}

func (r *Reclaimer) viaSS(ctx context.Context, port int) bool {
	res, err := r.run(ctx, "ss", "-tlnp")
	if err != nil {
		return false
	}
	return r.killPIDs(ctx, parseSSPIDs(res.Stdout, port))
}

func (r *Reclaimer) viaPattern(ctx context.Context, _ int) bool {
	res, err := r.run(ctx, "pgrep", "-f", r.pattern)
	if err != nil {
		return false
	}
	return r.killPIDs(ctx, parsePIDs(res.Stdout))
}

// killPIDs sends SIGKILL to every pid except our own.
func (r *Reclaimer) killPIDs(ctx context.Context, pids []int) bool {
	args := []string{"-9"}
	for _, pid := range pids {
		if pid == r.selfPID {
			continue
		}
		args = append(args, strconv.Itoa(pid))
	}
	if len(args) == 1 {
		return false
	}
	_, err := r.run(ctx, "kill", args...)
	return err == nil
}

// parsePIDs reads one pid per whitespace-separated token, skipping junk.
func parsePIDs(out string) []int {
	var pids []int
	seen := map[int]bool{}
	for _, f := range strings.Fields(out) {
		n, err := strconv.Atoi(f)
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		pids = append(pids, n)
	}
	return pids
}

var ssPIDRe = regexp.MustCompile(`pid=(\d+)`)

// parseSSPIDs extracts owning pids from `ss -tlnp` lines whose local address
// ends in :port.
func parseSSPIDs(out string, port int) []int {
	suffix := ":" + strconv.Itoa(port)
	var pids []int
	seen := map[int]bool{}
	for _, line := range strings.Split(out, "\n") {
		match := false
		for _, f := range strings.Fields(line) {
			if strings.HasSuffix(f, suffix) {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		for _, m := range ssPIDRe.FindAllStringSubmatch(line, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || seen[n] {
				continue
			}
			seen[n] = true
			pids = append(pids, n)
		}
	}
	return pids
}
