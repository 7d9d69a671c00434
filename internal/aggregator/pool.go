package aggregator

import "sync"

// KeyRecord is one upstream credential and its last known balance.
type KeyRecord struct {
	Key     string
	Balance float64
}

// KeyPool rotates over keys, skipping quarantined ones. The quarantine set
// only ever holds keys that are in the pool.
type KeyPool struct {
	mu     sync.Mutex
	keys   []KeyRecord
	failed map[string]struct{}
	cursor int
}

// NewKeyPool returns an empty pool.
func NewKeyPool() *KeyPool {
	return &KeyPool{failed: map[string]struct{}{}}
}

// Replace installs keys, clearing the quarantine and resetting the cursor.
func (p *KeyPool) Replace(keys []KeyRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append([]KeyRecord(nil), keys...)
	p.failed = map[string]struct{}{}
	p.cursor = 0
	poolKeys.Set(float64(len(p.keys)))
	poolQuarantined.Set(0)
}

// Next returns the next usable key. The cursor advances before selection,
// so with a fresh pool of k1,k2,k3 the sequence is k2,k3,k1. When every key
// is quarantined the quarantine is cleared and the first key is returned.
func (p *KeyPool) Next() (KeyRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return KeyRecord{}, false
	}
	available := make([]KeyRecord, 0, len(p.keys))
	for _, k := range p.keys {
		if _, bad := p.failed[k.Key]; !bad {
			available = append(available, k)
		}
	}
	if len(available) == 0 {
		p.failed = map[string]struct{}{}
		poolQuarantined.Set(0)
		poolResets.Inc()
		return p.keys[0], true
	}
	p.cursor = (p.cursor + 1) % len(available)
	return available[p.cursor], true
}

// Quarantine marks key as unusable. Keys not in the pool are ignored.
// It reports whether the key was newly quarantined.
func (p *KeyPool) Quarantine(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.failed[key]; dup {
		return false
	}
	for _, k := range p.keys {
		if k.Key == key {
			p.failed[key] = struct{}{}
			poolQuarantined.Set(float64(len(p.failed)))
			return true
		}
	}
	return false
}

// Clear empties the pool and the quarantine.
func (p *KeyPool) Clear() { p.Replace(nil) }

// Counts returns the pool size and the number of quarantined keys.
func (p *KeyPool) Counts() (keys, quarantined int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys), len(p.failed)
}

// Len returns the pool size.
func (p *KeyPool) Len() int {
	n, _ := p.Counts()
	return n
}
