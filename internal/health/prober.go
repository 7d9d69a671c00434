// Package health issues single-shot HTTP liveness probes against a local port.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Prober checks whether an HTTP server answers on a local port.
type Prober struct {
	// Host is the address probed; defaults to 127.0.0.1.
	Host string
	// Client performs the request. Its own Timeout is left at zero; every
	// call carries a context deadline instead.
	Client *http.Client
}

// NewProber creates a prober for the loopback interface.
func NewProber() *Prober {
	return &Prober{Host: "127.0.0.1", Client: &http.Client{}}
}

func (p *Prober) url(port int, path string) string {
	host := p.Host
	if host == "" {
		host = "127.0.0.1"
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return "http://" + host + ":" + strconv.Itoa(port) + path
}

func (p *Prober) client() *http.Client {
	if p.Client == nil {
		return http.DefaultClient
	}
	return p.Client
}

// IsAlive issues one GET and reports whether it returned 200 within timeout.
// Non-200 responses, connection errors and timeouts all yield false.
func (p *Prober) IsAlive(ctx context.Context, port int, path string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(port, path), nil)
	if err != nil {
		return false
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode == http.StatusOK
}

// FetchJSON performs one GET and decodes a 200 JSON body into v.
func (p *Prober) FetchJSON(ctx context.Context, port int, path string, timeout time.Duration, v any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(port, path), nil)
	if err != nil {
		return err
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d %s", path, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(v)
}
