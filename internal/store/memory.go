package store

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value    string
	set      map[string]struct{}
	expireAt time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// MemoryStore is an in-process Store with lazy expiry. It backs tests and
// single-instance deployments; expiry follows the injected clock.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]*memEntry
	down    error
}

// NewMemoryStore builds an empty store. A nil clock uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, entries: make(map[string]*memEntry)}
}

// SetUnavailable makes every subsequent call fail with ErrUnavailable until
// called again with false.
func (m *MemoryStore) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if down {
		m.down = unavailable("memory", context.DeadlineExceeded)
		return
	}
	m.down = nil
}

// lookup returns a live entry, evicting it when expired. Caller holds mu.
func (m *MemoryStore) lookup(key string) *memEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *MemoryStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return m.down
	}
	m.entries[key] = &memEntry{value: value, expireAt: m.deadline(ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return "", false, m.down
	}
	e := m.lookup(key)
	if e == nil || e.set != nil {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return m.down
	}
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return false, m.down
	}
	return m.lookup(key) != nil, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return false, m.down
	}
	e := m.lookup(key)
	if e == nil {
		return false, nil
	}
	if ttl <= 0 {
		delete(m.entries, key)
		return true, nil
	}
	e.expireAt = m.deadline(ttl)
	return true, nil
}

func (m *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return 0, m.down
	}
	e := m.lookup(key)
	if e == nil {
		return KeyMissing, nil
	}
	if e.expireAt.IsZero() {
		return NoExpiry, nil
	}
	return e.expireAt.Sub(m.now()), nil
}

func (m *MemoryStore) SetAdd(_ context.Context, key, member string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return m.down
	}
	e := m.lookup(key)
	if e == nil || e.set == nil {
		e = &memEntry{set: make(map[string]struct{})}
		m.entries[key] = e
	}
	e.set[member] = struct{}{}
	if ttl > 0 {
		next := m.deadline(ttl)
		if e.expireAt.IsZero() || next.After(e.expireAt) {
			e.expireAt = next
		}
	}
	return nil
}

func (m *MemoryStore) SetMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return nil, m.down
	}
	e := m.lookup(key)
	if e == nil || e.set == nil {
		return []string{}, nil
	}
	out := make([]string, 0, len(e.set))
	for member := range e.set {
		out = append(out, member)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) SetRemove(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return m.down
	}
	e := m.lookup(key)
	if e == nil || e.set == nil {
		return nil
	}
	for _, member := range members {
		delete(e.set, member)
	}
	if len(e.set) == 0 {
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryStore) SetSize(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return 0, m.down
	}
	e := m.lookup(key)
	if e == nil || e.set == nil {
		return 0, nil
	}
	return int64(len(e.set)), nil
}

func (m *MemoryStore) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return 0, m.down
	}
	e := m.lookup(key)
	if e == nil {
		e = &memEntry{value: "0"}
		m.entries[key] = e
	}
	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *MemoryStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return nil, m.down
	}
	var keys []string
	for k := range m.entries {
		if m.lookup(k) == nil {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.down
}
