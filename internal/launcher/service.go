// Package launcher composes the supervisor, the installation registry, the
// persisted settings and the aggregator into the operations exposed by the
// control endpoint.
package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stlauncher/internal/aggregator"
	"stlauncher/internal/common/fsutil"
	"stlauncher/internal/config"
	"stlauncher/internal/manager"
	"stlauncher/internal/registry"
	"stlauncher/pkg/types"
)

const (
	versionPath    = "/version"
	versionTimeout = 2 * time.Second
)

var (
	// ErrLocalMissing is returned when a discovered id is no longer present.
	ErrLocalMissing = errors.New("local installation not found")
	// ErrInstallInProgress rejects a second install of the same variant.
	ErrInstallInProgress = errors.New("install already in progress")
)

// Supervisor is the subset of manager.Supervisor the service drives.
type Supervisor interface {
	Start(ctx context.Context) (manager.StartResult, error)
	Stop(ctx context.Context) (manager.StopResult, error)
	Snapshot() manager.Snapshot
	HasHandle() bool
	Port() int
}

// Prober queries the managed app over HTTP.
type Prober interface {
	IsAlive(ctx context.Context, port int, path string, timeout time.Duration) bool
	FetchJSON(ctx context.Context, port int, path string, timeout time.Duration, v any) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store      *config.Store
	Registry   *registry.Registry
	Supervisor Supervisor
	Aggregator *aggregator.Service
	Prober     Prober
	Logs       *manager.LogBuffer
	Logger     zerolog.Logger
}

// Service implements the control operations.
type Service struct {
	store *config.Store
	reg   *registry.Registry
	sup   Supervisor
	agg   *aggregator.Service
	probe Prober
	logs  *manager.LogBuffer
	log   zerolog.Logger

	mu         sync.Mutex
	installing map[string]bool
}

// New builds a Service.
func New(d Deps) *Service {
	if d.Logs == nil {
		d.Logs = manager.NewLogBuffer(manager.DefaultLogCapacity)
	}
	return &Service{
		store:      d.Store,
		reg:        d.Registry,
		sup:        d.Supervisor,
		agg:        d.Aggregator,
		probe:      d.Prober,
		logs:       d.Logs,
		log:        d.Logger,
		installing: map[string]bool{},
	}
}

// ActiveVariantFunc returns the resolver handed to the supervisor: the
// persisted active variant, or the registry's default when none is set.
func ActiveVariantFunc(store *config.Store, reg *registry.Registry) func() string {
	return func() string {
		st, _ := store.Load()
		if st.ActiveVersion != "" {
			return st.ActiveVersion
		}
		return reg.DefaultID()
	}
}

func (s *Service) settings() config.Settings {
	st, err := s.store.Load()
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.store.Path()).Msg("settings unreadable, using defaults")
	}
	return st
}

func (s *Service) activeVariant() string {
	if id := s.settings().ActiveVersion; id != "" {
		return id
	}
	return s.reg.DefaultID()
}

func (s *Service) info(msg string) { s.logs.Add(manager.LogInfo, msg); s.log.Info().Msg(msg) }
func (s *Service) logError(msg string) { s.logs.Add(manager.LogError, msg); s.log.Error().Msg(msg) }

// Status probes the managed app and reports what the launcher knows about it.
func (s *Service) Status(ctx context.Context) types.StatusResponse {
	port := s.sup.Port()
	out := types.StatusResponse{Port: port, Version: json.RawMessage("null")}
	out.Running = s.probe.IsAlive(ctx, port, versionPath, versionTimeout)
	if out.Running {
		var v json.RawMessage
		if err := s.probe.FetchJSON(ctx, port, versionPath, versionTimeout, &v); err == nil && len(v) > 0 {
			out.Version = v
		}
	}
	if id := s.settings().ActiveVersion; id != "" {
		out.ActiveVersion = &id
	}
	snap := s.sup.Snapshot()
	out.ManagedByLauncher = s.sup.HasHandle()
	out.State = snap.State.String()
	out.RunID = snap.RunID
	return out
}

// Start brings the managed app up.
func (s *Service) Start(ctx context.Context) (types.StartResponse, error) {
	res, err := s.sup.Start(ctx)
	if err != nil {
		return types.StartResponse{}, err
	}
	out := types.StartResponse{ResultResponse: types.ResultResponse{Success: true, Message: "server started"}}
	if !res.Ready {
		out.Message = "server started (initializing)"
		out.Initializing = true
	}
	return out, nil
}

// Stop shuts the managed app down.
func (s *Service) Stop(ctx context.Context) (types.StopResponse, error) {
	res, err := s.sup.Stop(ctx)
	if err != nil {
		return types.StopResponse{}, err
	}
	out := types.StopResponse{ResultResponse: types.ResultResponse{Success: true, Message: "server stopped"}}
	if res.Forced {
		out.Message = "server force stopped"
		out.Forced = true
	}
	return out, nil
}

// Versions lists discovered installs followed by the catalog. Only a
// persisted choice is marked active, matching Status.
func (s *Service) Versions() []types.VersionInfo {
	return s.reg.List(s.settings().ActiveVersion)
}

// Rescan repeats the local discovery and returns the refreshed list.
func (s *Service) Rescan() types.RescanResponse {
	found := s.reg.ScanLocal()
	return types.RescanResponse{
		ResultResponse: types.ResultResponse{Success: true, Message: fmt.Sprintf("found %d local installs", len(found))},
		Count:          len(found),
		Versions:       s.Versions(),
	}
}

// AutoSelect makes the first discovered install active when no variant has
// been chosen yet. It reports the selected id.
func (s *Service) AutoSelect() (string, bool) {
	disc := s.reg.Discovered()
	if len(disc) == 0 || s.settings().ActiveVersion != "" {
		return "", false
	}
	id := disc[0].ID
	if _, err := s.store.Update(func(st *config.Settings) {
		if st.ActiveVersion == "" {
			st.ActiveVersion = id
		}
	}); err != nil {
		s.log.Warn().Err(err).Msg("persist auto-selected version")
		return "", false
	}
	s.info("auto-selected local installation " + id)
	return id, true
}

// Switch makes id the active variant. Between two catalog variants the
// previous variant's data directory is copied over first; a failed copy
// leaves the active variant unchanged.
func (s *Service) Switch(id string) (string, error) {
	v, ok := s.reg.Lookup(id)
	if !ok {
		if strings.HasPrefix(id, registry.DiscoveredPrefix) {
			return "", ErrLocalMissing
		}
		return "", fmt.Errorf("%w: %s", registry.ErrUnknownVariant, id)
	}
	if !s.reg.IsInstalled(id) {
		return "", fmt.Errorf("%w, install it first: %s", registry.ErrNotInstalled, id)
	}

	old := s.settings().ActiveVersion
	migrated := false
	if old != "" && old != id && !v.Local {
		if prev, ok := s.reg.Lookup(old); ok && !prev.Local {
			s.info(fmt.Sprintf("migrating data from %s to %s", old, id))
			copied, err := registry.Migrate(prev.Path, v.Path)
			if err != nil {
				s.logError("data migration failed: " + err.Error())
				return "", fmt.Errorf("data migration failed: %w", err)
			}
			if copied {
				s.info("data migration complete")
			}
			migrated = copied
		}
	}

	if _, err := s.store.Update(func(st *config.Settings) { st.ActiveVersion = id }); err != nil {
		return "", fmt.Errorf("save settings: %w", err)
	}
	s.info("switched to version " + id)
	if migrated {
		return fmt.Sprintf("switched to %s, data synchronized", id), nil
	}
	return "switched to " + id, nil
}

// Install installs a catalog variant. Installs of the same variant do not
// overlap.
func (s *Service) Install(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	if s.installing[id] {
		s.mu.Unlock()
		return "", ErrInstallInProgress
	}
	s.installing[id] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.installing, id)
		s.mu.Unlock()
	}()

	s.info("installing version " + id)
	if err := s.reg.Install(ctx, id); err != nil {
		s.logError("install failed: " + err.Error())
		return "", err
	}
	s.info("version " + id + " installed")
	return "installed " + id, nil
}

// Uninstall removes a catalog variant. The active variant and anything
// while the server is owned by the launcher are refused.
func (s *Service) Uninstall(id string) (string, error) {
	if err := s.reg.Uninstall(id, s.activeVariant(), s.sup.HasHandle()); err != nil {
		return "", err
	}
	s.info("version " + id + " uninstalled")
	return "uninstalled " + id, nil
}

// Settings reports the persisted flags and the aggregator state.
func (s *Service) Settings() types.SettingsResponse {
	st := s.settings()
	return types.SettingsResponse{
		SpeedOptimization: st.SpeedOptimization,
		APIAggregation:    st.APIAggregation,
		Aggregator:        s.agg.Status(),
	}
}

// SetSpeedOptimization edits the active variant's app config and persists
// the flag on success. It takes effect on the next start.
func (s *Service) SetSpeedOptimization(enable bool) (string, error) {
	id := s.activeVariant()
	path, ok := s.reg.Path(id)
	if !ok || !fsutil.IsDir(path) {
		return "", fmt.Errorf("%w: %s", registry.ErrNotInstalled, id)
	}
	if err := registry.SetSpeedOptimization(path, enable); err != nil {
		s.logError("speed optimisation failed: " + err.Error())
		return "", err
	}
	if _, err := s.store.Update(func(st *config.Settings) { st.SpeedOptimization = enable }); err != nil {
		return "", fmt.Errorf("save settings: %w", err)
	}
	state := "disabled"
	if enable {
		state = "enabled"
	}
	s.info("speed optimisation " + state + " for " + id)
	return "speed optimisation " + state + ", restart the server to apply", nil
}

// StartAggregation fetches keys and persists the aggregation flag.
func (s *Service) StartAggregation(ctx context.Context, req types.AggregatorStartRequest) (types.AggregatorStartResponse, error) {
	res, err := s.agg.Start(ctx, req.Token, req.UserInfo)
	if err != nil {
		return types.AggregatorStartResponse{}, err
	}
	st := s.agg.Status()
	out := types.AggregatorStartResponse{
		ResultResponse: types.ResultResponse{Success: true, Message: "aggregation started"},
		KeysCount:      res.KeysCount,
		Port:           st.Port,
		Endpoint:       aggregator.Endpoint,
	}
	if res.AlreadyRunning {
		out.Message = "aggregation already running"
		return out, nil
	}
	if _, err := s.store.Update(func(st *config.Settings) { st.APIAggregation = true }); err != nil {
		s.log.Warn().Err(err).Msg("persist aggregation flag")
	}
	return out, nil
}

// StopAggregation clears the pool and persists the flag.
func (s *Service) StopAggregation() string {
	was := s.agg.Stop()
	if _, err := s.store.Update(func(st *config.Settings) { st.APIAggregation = false }); err != nil {
		s.log.Warn().Err(err).Msg("persist aggregation flag")
	}
	if !was {
		return "aggregation not running"
	}
	return "aggregation stopped"
}

// AggregatorStatus reports the key pool state.
func (s *Service) AggregatorStatus() types.AggregatorStatus { return s.agg.Status() }

// Logs returns the buffered log entries, oldest first.
func (s *Service) Logs() []types.LogEntry { return s.logs.Entries() }

// ClearLogs empties the log buffer.
func (s *Service) ClearLogs() { s.logs.Clear() }

// Shutdown stops the managed app if the launcher owns it.
func (s *Service) Shutdown(ctx context.Context) {
	if !s.sup.HasHandle() {
		return
	}
	if _, err := s.sup.Stop(ctx); err != nil && !errors.Is(err, manager.ErrNotRunning) {
		s.log.Warn().Err(err).Msg("stop managed server on shutdown")
	}
}
