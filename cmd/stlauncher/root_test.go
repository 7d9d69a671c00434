package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stlauncher/internal/config"
)

func execRoot(t *testing.T, opts *rootOptions, args ...string) string {
	t.Helper()
	cmd := buildRootCmd(opts, "1.2.3-test")
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd("dev")
	if !root.SilenceUsage || !root.SilenceErrors {
		t.Fatal("expected usage and errors silenced")
	}
	want := map[string]bool{"serve": false, "scan": false, "version": false, "self-update": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
	for _, f := range []string{"config", "addr", "log-level", "log-json"} {
		if root.PersistentFlags().Lookup(f) == nil {
			t.Fatalf("missing persistent flag %q", f)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out := execRoot(t, &rootOptions{}, "version")
	if strings.TrimSpace(out) != "stlauncher version 1.2.3-test" {
		t.Fatalf("out=%q", out)
	}
}

func TestResolve_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "launcher.yaml")
	body := "addr: \":7000\"\napp_port: 8100\nlog_level: debug\ntimeouts:\n  stop_grace_ms: 250\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := &rootOptions{}
	execRoot(t, opts, "--config", cfgPath, "--addr", ":9999", "--log-level", "warn", "version")

	if opts.cfg.Addr != ":9999" || opts.cfg.LogLevel != "warn" {
		t.Fatalf("flags not applied: %+v", opts.cfg)
	}
	if opts.cfg.AppPort != 8100 || opts.cfg.Timeouts.StopGraceMS != 250 {
		t.Fatalf("file values lost: %+v", opts.cfg)
	}
	if opts.cfg.RepoURL != config.DefaultRepoURL || opts.cfg.Timeouts.PollAttempts != 120 {
		t.Fatalf("defaults not applied: %+v", opts.cfg)
	}
}

func TestResolve_BadConfigFails(t *testing.T) {
	cmd := buildRootCmd(&rootOptions{}, "dev")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "version"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestSupervisorConfig(t *testing.T) {
	cfg := config.WithDefaults(config.Config{AppPort: 8123, NodeBin: "/usr/bin/node"})
	sc := supervisorConfig(cfg)
	if sc.Port != 8123 || sc.Command != "/usr/bin/node" {
		t.Fatalf("unexpected: %+v", sc)
	}
	if sc.StopGrace != 5*time.Second || sc.PollInterval != 500*time.Millisecond || sc.PollAttempts != 120 {
		t.Fatalf("timings: %+v", sc)
	}
	if sc.ReclaimDelay != time.Second || sc.PreSpawnDelay != 500*time.Millisecond || sc.ProbeTimeout != 2*time.Second {
		t.Fatalf("delays: %+v", sc)
	}
}

func TestListenPort(t *testing.T) {
	cases := map[string]int{":8080": 8080, "127.0.0.1:9000": 9000, "bogus": 0}
	for addr, want := range cases {
		if got := listenPort(addr); got != want {
			t.Fatalf("listenPort(%q)=%d want %d", addr, got, want)
		}
	}
}

func TestListenWithRetry_ReclaimFreesPort(t *testing.T) {
	holder, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := holder.Addr().String()
	calls := 0
	ln, err := listenWithRetry(context.Background(), addr, 3, 10*time.Millisecond, func(context.Context) {
		calls++
		_ = holder.Close()
	})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	if calls != 1 {
		t.Fatalf("reclaim calls=%d", calls)
	}
}

func TestListenWithRetry_GivesUp(t *testing.T) {
	holder, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer holder.Close()
	calls := 0
	_, err = listenWithRetry(context.Background(), holder.Addr().String(), 3, time.Millisecond, func(context.Context) { calls++ })
	if err == nil {
		t.Fatal("expected listen failure")
	}
	if calls != 3 {
		t.Fatalf("reclaim calls=%d, want 3", calls)
	}
}

func TestSelfUpdate_DevVersion(t *testing.T) {
	for _, v := range []string{"", "dev"} {
		err := runSelfUpdate(context.Background(), &bytes.Buffer{}, v, "owner/repo")
		if !errors.Is(err, errDevVersion) {
			t.Fatalf("version %q: err=%v", v, err)
		}
	}
	if err := runSelfUpdate(context.Background(), &bytes.Buffer{}, "1.0.0", ""); err == nil || !strings.Contains(err.Error(), "no release repository") {
		t.Fatalf("err=%v", err)
	}
}

func TestScanCommand_ListsLocalAndCatalog(t *testing.T) {
	home := t.TempDir()
	st := filepath.Join(home, "SillyTavern")
	if err := os.MkdirAll(filepath.Join(st, "node_modules", "express"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(st, "package.json"), []byte(`{"name":"sillytavern","version":"1.12.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(st, "server.js"), []byte("// entry"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(home, "launcher.json")
	cfgBody := `{"home_dir":"` + home + `","versions_dir":"` + filepath.Join(home, "st-versions") +
		`","settings_file":"` + filepath.Join(home, "config.json") + `","log_level":"error"}`
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatal(err)
	}

	out := execRoot(t, &rootOptions{}, "--config", cfgPath, "scan")
	if !strings.Contains(out, "local_SillyTavern") || !strings.Contains(out, "Local: SillyTavern (v1.12.0)") {
		t.Fatalf("discovered install missing:\n%s", out)
	}
	if !strings.Contains(out, "1.13.5") || !strings.Contains(out, filepath.Join(home, "st-versions", "1.13.5")) {
		t.Fatalf("catalog entry missing:\n%s", out)
	}
	if !strings.Contains(out, "\n1 installed\n") {
		t.Fatalf("installed count missing:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		if len(f) < 5 || f[0] == "ID" {
			continue
		}
		if active := f[len(f)-2]; active != "no" {
			t.Fatalf("%s marked active without a persisted choice:\n%s", f[0], out)
		}
	}
}
