package manager

import (
	"sync"
	"time"

	"stlauncher/pkg/types"
)

// Log entry types.
const (
	LogInfo   = "info"
	LogError  = "error"
	LogStdout = "stdout"
	LogStderr = "stderr"
)

// LogBuffer is a fixed-capacity ring of LogEntry records; the oldest entry is
// evicted once capacity is exceeded. Safe for concurrent use.
type LogBuffer struct {
	mu    sync.Mutex
	buf   []types.LogEntry
	start int
	n     int
	now   func() time.Time
}

// NewLogBuffer creates a buffer holding at most capacity entries
// (DefaultLogCapacity when capacity <= 0).
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogBuffer{buf: make([]types.LogEntry, capacity), now: time.Now}
}

// Add appends an entry.
func (b *LogBuffer) Add(typ, msg string) {
	e := types.LogEntry{Timestamp: b.now(), Message: msg, Type: typ}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := len(b.buf)
	if b.n < c {
		b.buf[(b.start+b.n)%c] = e
		b.n++
		return
	}
	b.buf[b.start] = e
	b.start = (b.start + 1) % c
}

// Entries returns a copy of the buffered entries, oldest first.
func (b *LogBuffer) Entries() []types.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.LogEntry, b.n)
	for i := 0; i < b.n; i++ {
		out[i] = b.buf[(b.start+i)%len(b.buf)]
	}
	return out
}

// Len returns the number of buffered entries.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Clear drops every entry.
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.buf {
		b.buf[i] = types.LogEntry{}
	}
	b.start, b.n = 0, 0
}
