package store

import (
	"context"
	"sync"
	"time"

	"github.com/jdstemmler/poker/internal/errs"
)

// Memory is an in-process Store used by tests and single-node runs
// without Redis.
type Memory struct {
	mu      sync.RWMutex
	lobbies map[string][]byte
	engines map[string][]byte
	metrics map[string][]MetricEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		lobbies: make(map[string][]byte),
		engines: make(map[string][]byte),
		metrics: make(map[string][]MetricEntry),
	}
}

func (m *Memory) SaveLobby(_ context.Context, code string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobbies[code] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) LoadLobby(_ context.Context, code string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.lobbies[code]
	if !ok {
		return nil, errs.Newf(errs.NotFound, "game %s not found", code)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) SaveEngine(_ context.Context, code string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engines[code] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) LoadEngine(_ context.Context, code string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.engines[code]
	if !ok {
		return nil, errs.Newf(errs.NotFound, "engine for game %s not found", code)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lobbies, code)
	delete(m.engines, code)
	return nil
}

func (m *Memory) ListCodes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codes := make([]string, 0, len(m.lobbies))
	for code := range m.lobbies {
		codes = append(codes, code)
	}
	return codes, nil
}

func (m *Memory) RecordMetric(_ context.Context, metric string, entry MetricEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Unix(entry.At, 0).Add(-MetricRetention).Unix()
	kept := m.metrics[metric][:0]
	for _, e := range m.metrics[metric] {
		if e.At >= cutoff {
			kept = append(kept, e)
		}
	}
	m.metrics[metric] = append(kept, entry)
	return nil
}

func (m *Memory) CountMetric(_ context.Context, metric string, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.metrics[metric] {
		if e.At >= since.Unix() {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }
