package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"stlauncher/pkg/types"
)

type mockService struct {
	mu sync.Mutex

	status   types.StatusResponse
	startErr error
	logs     []types.LogEntry
	versions []types.VersionInfo
	switchTo string
	opErr    error
	speed    *bool
	aggReq   types.AggregatorStartRequest
	cleared  bool
}

func (m *mockService) Status(ctx context.Context) types.StatusResponse { return m.status }
func (m *mockService) Start(ctx context.Context) (types.StartResponse, error) {
	if m.startErr != nil {
		return types.StartResponse{}, m.startErr
	}
	return types.StartResponse{ResultResponse: types.ResultResponse{Success: true, Message: "server started"}}, nil
}
func (m *mockService) Stop(ctx context.Context) (types.StopResponse, error) {
	return types.StopResponse{ResultResponse: types.ResultResponse{Success: true, Message: "server stopped"}}, nil
}
func (m *mockService) Logs() []types.LogEntry { return m.logs }
func (m *mockService) ClearLogs() {
	m.mu.Lock()
	m.cleared = true
	m.mu.Unlock()
}
func (m *mockService) Versions() []types.VersionInfo { return m.versions }
func (m *mockService) Rescan() types.RescanResponse {
	return types.RescanResponse{ResultResponse: types.ResultResponse{Success: true}, Count: len(m.versions), Versions: m.versions}
}
func (m *mockService) Switch(id string) (string, error) {
	m.switchTo = id
	if m.opErr != nil {
		return "", m.opErr
	}
	return "switched to " + id, nil
}
func (m *mockService) Install(ctx context.Context, id string) (string, error) {
	return "installed " + id, m.opErr
}
func (m *mockService) Uninstall(id string) (string, error) { return "uninstalled " + id, m.opErr }
func (m *mockService) Settings() types.SettingsResponse {
	return types.SettingsResponse{SpeedOptimization: true}
}
func (m *mockService) SetSpeedOptimization(enable bool) (string, error) {
	m.speed = &enable
	return "ok", nil
}
func (m *mockService) StartAggregation(ctx context.Context, req types.AggregatorStartRequest) (types.AggregatorStartResponse, error) {
	m.aggReq = req
	if m.opErr != nil {
		return types.AggregatorStartResponse{}, m.opErr
	}
	return types.AggregatorStartResponse{ResultResponse: types.ResultResponse{Success: true}, KeysCount: 2, Port: 8080, Endpoint: "/v1"}, nil
}
func (m *mockService) StopAggregation() string { return "aggregation stopped" }
func (m *mockService) AggregatorStatus() types.AggregatorStatus {
	return types.AggregatorStatus{Running: true, KeysCount: 2}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) types.ResultResponse {
	t.Helper()
	var res types.ResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v body=%q", err, w.Body.String())
	}
	return res
}

func TestStatusHandler_NullVersion(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{Port: 8000, State: "stopped", Version: json.RawMessage("null")}}
	w := do(t, NewMux(svc, Options{}), http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if v, ok := body["version"]; !ok || v != nil {
		t.Fatalf("version=%v present=%v", v, ok)
	}
	if v, ok := body["activeVersion"]; !ok || v != nil {
		t.Fatalf("activeVersion=%v present=%v", v, ok)
	}
	if body["port"].(float64) != 8000 {
		t.Fatalf("port=%v", body["port"])
	}
}

func TestStartHandler_FailureIsResult(t *testing.T) {
	svc := &mockService{startErr: errors.New("port 8000 is already in use")}
	w := do(t, NewMux(svc, Options{}), http.MethodPost, "/api/start", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	res := decodeResult(t, w)
	if res.Success || res.Message != "port 8000 is already in use" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestStartStopHandlers_Success(t *testing.T) {
	h := NewMux(&mockService{}, Options{})
	if res := decodeResult(t, do(t, h, http.MethodPost, "/api/start", "")); !res.Success || res.Message != "server started" {
		t.Fatalf("start: %+v", res)
	}
	if res := decodeResult(t, do(t, h, http.MethodPost, "/api/stop", "")); !res.Success || res.Message != "server stopped" {
		t.Fatalf("stop: %+v", res)
	}
}

func TestSwitchHandler(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, Options{})

	w := do(t, h, http.MethodPost, "/api/versions/switch", `{"version":" 1.13.5 "}`)
	res := decodeResult(t, w)
	if !res.Success || svc.switchTo != "1.13.5" {
		t.Fatalf("res=%+v switchTo=%q", res, svc.switchTo)
	}

	svc.opErr = errors.New("unknown version: nope")
	res = decodeResult(t, do(t, h, http.MethodPost, "/api/versions/switch", `{"version":"nope"}`))
	if res.Success || res.Message != "unknown version: nope" {
		t.Fatalf("unexpected: %+v", res)
	}
}

func TestVersionHandlers_BadRequests(t *testing.T) {
	h := NewMux(&mockService{}, Options{})
	cases := []struct {
		path, body, want string
	}{
		{"/api/versions/switch", `{"version":`, "invalid JSON body"},
		{"/api/versions/install", `{}`, "version is required"},
		{"/api/versions/uninstall", "", "version is required"},
	}
	for _, c := range cases {
		w := do(t, h, http.MethodPost, c.path, c.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", c.path, w.Code)
		}
		var er types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("json: %v", err)
		}
		if er.Error != c.want || er.Code != http.StatusBadRequest {
			t.Fatalf("%s: %+v", c.path, er)
		}
	}
}

func TestInstallUninstallHandlers(t *testing.T) {
	h := NewMux(&mockService{}, Options{})
	if res := decodeResult(t, do(t, h, http.MethodPost, "/api/versions/install", `{"version":"1.12.14"}`)); res.Message != "installed 1.12.14" {
		t.Fatalf("install: %+v", res)
	}
	if res := decodeResult(t, do(t, h, http.MethodPost, "/api/versions/uninstall", `{"version":"1.12.14"}`)); res.Message != "uninstalled 1.12.14" {
		t.Fatalf("uninstall: %+v", res)
	}
}

func TestLogsHandler_EmptyIsArray(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, Options{})
	w := do(t, h, http.MethodGet, "/api/logs", "")
	if strings.TrimSpace(w.Body.String()) != `{"logs":[]}` {
		t.Fatalf("body=%q", w.Body.String())
	}
	if res := decodeResult(t, do(t, h, http.MethodPost, "/api/clear-logs", "")); !res.Success {
		t.Fatalf("clear: %+v", res)
	}
	if !svc.cleared {
		t.Fatal("ClearLogs not called")
	}
}

func TestSpeedOptimizationHandler(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, Options{})
	do(t, h, http.MethodPost, "/api/settings/speed-optimization", `{"enable":true}`)
	if svc.speed == nil || !*svc.speed {
		t.Fatalf("speed=%v", svc.speed)
	}
	w := do(t, h, http.MethodGet, "/api/settings", "")
	if !strings.Contains(w.Body.String(), `"speedOptimization":true`) {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestAggregatorHandlers(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, Options{})
	w := do(t, h, http.MethodPost, "/api/aggregator/start", `{"token":"tok","userInfo":{"uid":42,"userEmail":"a@b.c"}}`)
	var res types.AggregatorStartResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !res.Success || res.KeysCount != 2 || res.Endpoint != "/v1" {
		t.Fatalf("unexpected: %+v", res)
	}
	if svc.aggReq.Token != "tok" || svc.aggReq.UserInfo == nil || svc.aggReq.UserInfo.UserEmail != "a@b.c" {
		t.Fatalf("request not relayed: %+v", svc.aggReq)
	}

	svc.opErr = errors.New("account not bound")
	if r := decodeResult(t, do(t, h, http.MethodPost, "/api/aggregator/start", `{}`)); r.Success || r.Message != "account not bound" {
		t.Fatalf("unexpected: %+v", r)
	}

	if r := decodeResult(t, do(t, h, http.MethodPost, "/api/aggregator/stop", "")); !r.Success || r.Message != "aggregation stopped" {
		t.Fatalf("stop: %+v", r)
	}
	if w := do(t, h, http.MethodGet, "/api/aggregator/status", ""); !strings.Contains(w.Body.String(), `"keysCount":2`) {
		t.Fatalf("status body=%q", w.Body.String())
	}
}

func TestAPINotFoundAndMethod(t *testing.T) {
	h := NewMux(&mockService{}, Options{})
	w := do(t, h, http.MethodGet, "/api/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"error":"Not found"}` {
		t.Fatalf("body=%q", w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/api/start", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestProxyMount(t *testing.T) {
	w := do(t, NewMux(&mockService{}, Options{}), http.MethodPost, "/v1/chat/completions", `{}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("default proxy status=%d", w.Code)
	}

	var seen []string
	proxy := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.RequestURI())
		w.WriteHeader(http.StatusTeapot)
	})
	h := NewMux(&mockService{}, Options{Proxy: proxy})
	do(t, h, http.MethodGet, "/v1", "")
	do(t, h, http.MethodGet, "/v1/models?x=1", "")
	if len(seen) != 2 || seen[0] != "/v1" || seen[1] != "/v1/models?x=1" {
		t.Fatalf("seen=%v", seen)
	}
}

func TestStaticAndHealthz(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>panel</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewMux(&mockService{}, Options{PublicDir: dir})

	w := do(t, h, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "panel") {
		t.Fatalf("index status=%d body=%q", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/missing.js", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing status=%d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestCORSHeader(t *testing.T) {
	h := NewMux(&mockService{}, Options{})
	req := httptest.NewRequest(http.MethodGet, "/api/versions", nil)
	req.Header.Set("Origin", "http://example.test")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin=%q", got)
	}
}
