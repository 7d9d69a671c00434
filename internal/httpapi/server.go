package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stlauncher/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status(ctx context.Context) types.StatusResponse
	Start(ctx context.Context) (types.StartResponse, error)
	Stop(ctx context.Context) (types.StopResponse, error)
	Logs() []types.LogEntry
	ClearLogs()
	Versions() []types.VersionInfo
	Rescan() types.RescanResponse
	Switch(id string) (string, error)
	Install(ctx context.Context, id string) (string, error)
	Uninstall(id string) (string, error)
	Settings() types.SettingsResponse
	SetSpeedOptimization(enable bool) (string, error)
	StartAggregation(ctx context.Context, req types.AggregatorStartRequest) (types.AggregatorStartResponse, error)
	StopAggregation() string
	AggregatorStatus() types.AggregatorStatus
}

// Options configures NewMux.
type Options struct {
	// PublicDir holds the control panel assets served at /. Empty disables it.
	PublicDir string
	// Proxy serves /v1 and everything below it. Nil answers 503.
	Proxy http.Handler
}

var errMalformed = errors.New("invalid JSON body")

func NewMux(svc Service, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	h := &handlers{svc: svc}
	r.Route("/api", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Content-Type-Options", "nosniff")
				next.ServeHTTP(w, r)
			})
		})
		r.Get("/status", h.status)
		r.Post("/start", h.start)
		r.Post("/stop", h.stop)
		r.Get("/logs", h.logs)
		r.Post("/clear-logs", h.clearLogs)
		r.Get("/versions", h.versions)
		r.Post("/versions/rescan", h.rescan)
		r.Post("/versions/switch", h.switchVersion)
		r.Post("/versions/install", h.install)
		r.Post("/versions/uninstall", h.uninstall)
		r.Get("/settings", h.settings)
		r.Post("/settings/speed-optimization", h.speedOptimization)
		r.Post("/aggregator/start", h.aggregatorStart)
		r.Post("/aggregator/stop", h.aggregatorStop)
		r.Get("/aggregator/status", h.aggregatorStatus)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		})
	})

	proxy := opts.Proxy
	if proxy == nil {
		proxy = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusServiceUnavailable, "aggregator not running")
		})
	}
	r.Handle("/v1", proxy)
	r.Handle("/v1/*", proxy)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	if opts.PublicDir != "" {
		r.Get("/*", staticHandler(opts.PublicDir))
	}
	return r
}

// staticHandler serves the control panel. Unknown paths are a plain 404.
func staticHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		clean := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if fi, err := os.Stat(clean); err != nil || (fi.IsDir() && !hasIndex(clean)) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		fs.ServeHTTP(w, r)
	}
}

func hasIndex(dir string) bool {
	fi, err := os.Stat(filepath.Join(dir, "index.html"))
	return err == nil && !fi.IsDir()
}

type handlers struct {
	svc Service
}

// decodeBody reads a JSON request body into v. An empty body leaves v zero.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errMalformed
	}
	return nil
}

// decodeVersion extracts the required version field.
func decodeVersion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req types.VersionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	id := strings.TrimSpace(req.Version)
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "version is required")
		return "", false
	}
	return id, true
}

// status godoc
// @Summary      Managed server status
// @Tags         server
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /api/status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	writeJSON(w, h.svc.Status(ctx))
}

// start godoc
// @Summary      Start the managed server
// @Tags         server
// @Produce      json
// @Success      200  {object}  types.StartResponse
// @Router       /api/start [post]
func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Start(detached())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, res)
}

// stop godoc
// @Summary      Stop the managed server
// @Tags         server
// @Produce      json
// @Success      200  {object}  types.StopResponse
// @Router       /api/stop [post]
func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Stop(detached())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, res)
}

// logs godoc
// @Summary      Buffered log lines, oldest first
// @Tags         server
// @Produce      json
// @Success      200  {object}  types.LogsResponse
// @Router       /api/logs [get]
func (h *handlers) logs(w http.ResponseWriter, r *http.Request) {
	entries := h.svc.Logs()
	if entries == nil {
		entries = []types.LogEntry{}
	}
	writeJSON(w, types.LogsResponse{Logs: entries})
}

// clearLogs godoc
// @Summary      Clear the log buffer
// @Tags         server
// @Produce      json
// @Success      200  {object}  types.ResultResponse
// @Router       /api/clear-logs [post]
func (h *handlers) clearLogs(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearLogs()
	writeJSON(w, types.ResultResponse{Success: true})
}

// versions godoc
// @Summary      List installed and installable versions
// @Tags         versions
// @Produce      json
// @Success      200  {object}  types.VersionsResponse
// @Router       /api/versions [get]
func (h *handlers) versions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.VersionsResponse{Versions: h.svc.Versions()})
}

// rescan godoc
// @Summary      Rescan local installations
// @Tags         versions
// @Produce      json
// @Success      200  {object}  types.RescanResponse
// @Router       /api/versions/rescan [post]
func (h *handlers) rescan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Rescan())
}

// switchVersion godoc
// @Summary      Switch the active version
// @Tags         versions
// @Accept       json
// @Produce      json
// @Param        body  body      types.VersionRequest  true  "Target version"
// @Success      200   {object}  types.ResultResponse
// @Failure      400   {object}  types.ErrorResponse
// @Router       /api/versions/switch [post]
func (h *handlers) switchVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeVersion(w, r)
	if !ok {
		return
	}
	msg, err := h.svc.Switch(id)
	writeResult(w, msg, err)
}

// install godoc
// @Summary      Install a catalog version
// @Tags         versions
// @Accept       json
// @Produce      json
// @Param        body  body      types.VersionRequest  true  "Version to install"
// @Success      200   {object}  types.ResultResponse
// @Failure      400   {object}  types.ErrorResponse
// @Router       /api/versions/install [post]
func (h *handlers) install(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeVersion(w, r)
	if !ok {
		return
	}
	msg, err := h.svc.Install(detached(), id)
	writeResult(w, msg, err)
}

// uninstall godoc
// @Summary      Uninstall a catalog version
// @Tags         versions
// @Accept       json
// @Produce      json
// @Param        body  body      types.VersionRequest  true  "Version to remove"
// @Success      200   {object}  types.ResultResponse
// @Failure      400   {object}  types.ErrorResponse
// @Router       /api/versions/uninstall [post]
func (h *handlers) uninstall(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeVersion(w, r)
	if !ok {
		return
	}
	msg, err := h.svc.Uninstall(id)
	writeResult(w, msg, err)
}

// settings godoc
// @Summary      Persisted flags and aggregator state
// @Tags         settings
// @Produce      json
// @Success      200  {object}  types.SettingsResponse
// @Router       /api/settings [get]
func (h *handlers) settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Settings())
}

// speedOptimization godoc
// @Summary      Toggle speed optimisation for the active version
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body      types.SpeedOptimizationRequest  true  "Desired state"
// @Success      200   {object}  types.ResultResponse
// @Failure      400   {object}  types.ErrorResponse
// @Router       /api/settings/speed-optimization [post]
func (h *handlers) speedOptimization(w http.ResponseWriter, r *http.Request) {
	var req types.SpeedOptimizationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := h.svc.SetSpeedOptimization(req.Enable)
	writeResult(w, msg, err)
}

// aggregatorStart godoc
// @Summary      Start API key aggregation
// @Tags         aggregator
// @Accept       json
// @Produce      json
// @Param        body  body      types.AggregatorStartRequest  true  "Account credentials"
// @Success      200   {object}  types.AggregatorStartResponse
// @Failure      400   {object}  types.ErrorResponse
// @Router       /api/aggregator/start [post]
func (h *handlers) aggregatorStart(w http.ResponseWriter, r *http.Request) {
	var req types.AggregatorStartRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.StartAggregation(detached(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, res)
}

// aggregatorStop godoc
// @Summary      Stop API key aggregation
// @Tags         aggregator
// @Produce      json
// @Success      200  {object}  types.ResultResponse
// @Router       /api/aggregator/stop [post]
func (h *handlers) aggregatorStop(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.svc.StopAggregation(), nil)
}

// aggregatorStatus godoc
// @Summary      Key pool state
// @Tags         aggregator
// @Produce      json
// @Success      200  {object}  types.AggregatorStatus
// @Router       /api/aggregator/status [get]
func (h *handlers) aggregatorStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.AggregatorStatus())
}
