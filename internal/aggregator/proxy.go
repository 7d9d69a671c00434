package aggregator

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stlauncher/pkg/types"
)

// Proxy returns the handler serving Endpoint. Mount it so that the inbound
// request URI (path and query) is the one to forward.
func (s *Service) Proxy() http.Handler {
	return http.HandlerFunc(s.serveProxy)
}

func (s *Service) serveProxy(w http.ResponseWriter, r *http.Request) {
	if !s.running.Load() {
		writeProxyError(w, http.StatusServiceUnavailable, ErrNotRunning.Error())
		return
	}
	key, ok := s.pool.Next()
	if !ok {
		writeProxyError(w, http.StatusServiceUnavailable, ErrNotRunning.Error())
		return
	}

	target := strings.TrimRight(s.opts.UpstreamBaseURL, "/") + r.URL.RequestURI()
	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		writeProxyError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body != nil {
		req.ContentLength = r.ContentLength
	}
	// Only the content type crosses over; every other inbound header is dropped.
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	req.Header.Set("Authorization", "Bearer "+key.Key)

	started := time.Now()
	resp, err := s.client.Do(req)
	upstreamDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		upstreamTotal.WithLabelValues("error").Inc()
		if r.Context().Err() != nil {
			// the caller went away; the key is not at fault
			s.log.Debug().Err(err).Msg("proxy request cancelled")
			return
		}
		s.quarantine(key.Key)
		writeProxyError(w, http.StatusBadGateway, "proxy request failed: "+err.Error())
		return
	}
	defer resp.Body.Close()
	upstreamTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		s.quarantine(key.Key)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(resp.StatusCode)
	if r.Method == http.MethodHead {
		return
	}
	copyFlushing(w, resp.Body)
}

func (s *Service) quarantine(key string) {
	if !s.pool.Quarantine(key) {
		return
	}
	msg := "API key " + keyPrefix(key) + "... unavailable, skipping"
	s.opts.Logs.Add("error", msg)
	s.log.Warn().Str("key", keyPrefix(key)).Msg("key quarantined")
}

// copyFlushing relays the body, flushing after each chunk so streamed
// completions reach the caller as they arrive.
func copyFlushing(w http.ResponseWriter, src io.Reader) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32<<10)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

func writeProxyError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: code})
}

func keyPrefix(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
