package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverPort(t *testing.T, ts *httptest.Server) int {
	t.Helper()
	return ts.Listener.Addr().(*net.TCPAddr).Port
}

func TestIsAlive(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/version":
			w.WriteHeader(http.StatusOK)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer ts.Close()
	port := serverPort(t, ts)
	p := NewProber()
	ctx := context.Background()

	assert.True(t, p.IsAlive(ctx, port, "/version", time.Second))
	assert.True(t, p.IsAlive(ctx, port, "version", time.Second))
	assert.False(t, p.IsAlive(ctx, port, "/other", time.Second), "204 is not alive")
	assert.False(t, p.IsAlive(ctx, port, "/slow", 20*time.Millisecond), "timeout is not alive")
}

func TestIsAliveConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	assert.False(t, NewProber().IsAlive(context.Background(), port, "/version", 200*time.Millisecond))
}

func TestFetchJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/version" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"agent":"SillyTavern:1.13.5:x","pkgVersion":"1.13.5"}`))
	}))
	defer ts.Close()
	port := serverPort(t, ts)
	p := NewProber()

	var v map[string]any
	require.NoError(t, p.FetchJSON(context.Background(), port, "/version", time.Second, &v))
	assert.Equal(t, "1.13.5", v["pkgVersion"])

	assert.Error(t, p.FetchJSON(context.Background(), port, "/missing", time.Second, &v))
}
