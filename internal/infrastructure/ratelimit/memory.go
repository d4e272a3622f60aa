package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count int
	start time.Time
}

// Memory is a per-key fixed-window counter held in process memory. The first
// request from a key opens a window; requests past max inside it are denied
// until the window elapses.
type Memory struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string]*bucket
	now     func() time.Time
}

func NewMemory(max int, windowSize time.Duration) *Memory {
	return &Memory{
		max:     max,
		window:  windowSize,
		entries: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Admit records a request from key and reports whether it is allowed. A
// denied request does not extend the window.
func (m *Memory) Admit(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.entries[key]
	if !ok || now.Sub(w.start) >= m.window {
		m.entries[key] = &bucket{count: 1, start: now}
		return m.max > 0, nil
	}
	if w.count >= m.max {
		return false, nil
	}
	w.count++
	return true, nil
}

// Run evicts elapsed windows every interval until ctx is cancelled.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for k, w := range m.entries {
		if now.Sub(w.start) >= m.window {
			delete(m.entries, k)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
