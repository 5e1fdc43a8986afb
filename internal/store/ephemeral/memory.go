package ephemeral

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store used by tests and single-node setups.
// Scan returns all matching keys in one batch with a zero cursor.
type Memory struct {
	mu     sync.Mutex
	keys   map[string]string
	sets   map[string]map[string]struct{}
	hashes map[string]map[string]string
	subs   map[string][]*memorySubscription
}

func NewMemory() *Memory {
	return &Memory{
		keys:   make(map[string]string),
		sets:   make(map[string]map[string]struct{}),
		hashes: make(map[string]map[string]string),
		subs:   make(map[string][]*memorySubscription),
	}
}

// SeedKey creates a plain key, standing in for entries written by
// collaborators outside this process (e.g. outstanding pairing ids).
func (m *Memory) SeedKey(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = value
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return true, nil
	}
	if s, ok := m.sets[key]; ok && len(s) > 0 {
		return true, nil
	}
	if h, ok := m.hashes[key]; ok && len(h) > 0 {
		return true, nil
	}
	return false, nil
}

func (m *Memory) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	for _, member := range members {
		s[member] = struct{}{}
	}
	return nil
}

func (m *Memory) SCard(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sets[key])), nil
}

func (m *Memory) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) HSet(ctx context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *Memory) HMGet(ctx context.Context, key string, fields ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(fields))
	h := m.hashes[key]
	for i, f := range fields {
		out[i] = h[f]
	}
	return out, nil
}

func (m *Memory) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	appendMatches := func(key string) {
		if globMatch(match, key) {
			out = append(out, key)
		}
	}
	for key := range m.keys {
		appendMatches(key)
	}
	for key := range m.sets {
		appendMatches(key)
	}
	for key := range m.hashes {
		appendMatches(key)
	}
	sort.Strings(out)
	return out, 0, nil
}

type memorySubscription struct {
	store   *Memory
	channel string
	out     chan []byte
	once    sync.Once
}

func (m *Memory) Publish(ctx context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	subs := append([]*memorySubscription(nil), m.subs[channel]...)
	m.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub.out <- append([]byte(nil), payload...):
		default:
			// slow subscriber, message dropped: one-shot semantics
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &memorySubscription{store: m, channel: channel, out: make(chan []byte, 4)}
	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], sub)
	m.mu.Unlock()
	return sub, nil
}

func (s *memorySubscription) Messages() <-chan []byte { return s.out }

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.store.mu.Lock()
		subs := s.store.subs[s.channel]
		for i, sub := range subs {
			if sub == s {
				s.store.subs[s.channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.store.mu.Unlock()
		close(s.out)
	})
	return nil
}

func (m *Memory) Close() error { return nil }

// globMatch implements the redis MATCH subset used here: '*' for any run
// and '?' for exactly one character.
func globMatch(pattern, s string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if globMatch(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		return len(s) > 0 && globMatch(pattern[1:], s[1:])
	default:
		return len(s) > 0 && s[0] == pattern[0] && globMatch(pattern[1:], s[1:])
	}
}
