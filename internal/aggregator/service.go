package aggregator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"stlauncher/pkg/types"
)

// Endpoint is the local path prefix served by the Proxy.
const Endpoint = "/v1"

const defaultHeaderTimeout = 120 * time.Second

// LogSink receives operator-visible log lines. manager.LogBuffer satisfies it.
type LogSink interface {
	Add(typ, msg string)
}

type nopSink struct{}

func (nopSink) Add(string, string) {}

// Options configures a Service.
type Options struct {
	// AccountBaseURL is the account endpoint that lists keys.
	AccountBaseURL string
	// UpstreamBaseURL is prefixed to the inbound request URI when proxying.
	UpstreamBaseURL string
	// Port is the launcher's own port, reported in status.
	Port int
	// Client is used for both the account and upstream calls. Nil builds
	// a client whose transport bounds the wait for response headers.
	Client       *http.Client
	FetchTimeout time.Duration
	Logs         LogSink
	Logger       zerolog.Logger
}

// StartResult describes a successful Start.
type StartResult struct {
	KeysCount int
	// AlreadyRunning is set when Start found a populated pool and did nothing.
	AlreadyRunning bool
}

// Service owns the key pool and its lifecycle.
type Service struct {
	opts    Options
	pool    *KeyPool
	account *AccountClient
	client  *http.Client
	log     zerolog.Logger

	// lifecycle serializes Start and Stop; the proxy never takes it.
	lifecycle sync.Mutex
	running   atomic.Bool
	token     string
	info      *types.AccountInfo
}

// New creates a stopped Service.
func New(opts Options) *Service {
	if opts.Logs == nil {
		opts.Logs = nopSink{}
	}
	client := opts.Client
	if client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = defaultHeaderTimeout
		client = &http.Client{Transport: tr}
	}
	return &Service{
		opts:    opts,
		pool:    NewKeyPool(),
		account: &AccountClient{BaseURL: opts.AccountBaseURL, Client: client, Timeout: opts.FetchTimeout},
		client:  client,
		log:     opts.Logger,
	}
}

// Pool exposes the key pool.
func (s *Service) Pool() *KeyPool { return s.pool }

// Running reports whether aggregation is active.
func (s *Service) Running() bool { return s.running.Load() }

// Start fetches the account's keys and begins serving. It is a no-op when
// already running with a non-empty pool. On failure the previous state is
// left untouched.
func (s *Service) Start(ctx context.Context, token string, info *types.AccountInfo) (StartResult, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.running.Load() && s.pool.Len() > 0 {
		return StartResult{KeysCount: s.pool.Len(), AlreadyRunning: true}, nil
	}
	if token == "" || info == nil {
		return StartResult{}, ErrAccountNotBound
	}
	keys, err := s.account.FetchKeys(ctx, token, *info)
	if err != nil {
		s.log.Warn().Err(err).Msg("fetch keys")
		return StartResult{}, err
	}
	s.pool.Replace(keys)
	s.token = token
	acct := *info
	s.info = &acct
	s.running.Store(true)

	s.opts.Logs.Add("info", fmt.Sprintf("API aggregation started with %d usable keys", len(keys)))
	s.log.Info().Int("keys", len(keys)).Msg("aggregation started")
	return StartResult{KeysCount: len(keys)}, nil
}

// Stop clears the pool and the cached account. It reports whether
// aggregation was running; stopping twice is not an error.
func (s *Service) Stop() bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if !s.running.Load() {
		return false
	}
	s.running.Store(false)
	s.pool.Clear()
	s.token = ""
	s.info = nil
	s.opts.Logs.Add("info", "API aggregation stopped")
	s.log.Info().Msg("aggregation stopped")
	return true
}

// Status reports the pool state.
func (s *Service) Status() types.AggregatorStatus {
	keys, failed := s.pool.Counts()
	st := types.AggregatorStatus{
		Running:         s.running.Load(),
		Port:            s.opts.Port,
		KeysCount:       keys,
		FailedKeysCount: failed,
	}
	if st.Running {
		st.Endpoint = Endpoint
	}
	return st
}
