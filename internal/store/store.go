// Package store persists game state and operational metrics. Games are
// stored as two JSON documents per code: the lobby record under
// game:{code} and the engine snapshot under engine:{code}.
package store

import (
	"context"
	"time"
)

// Metric names. Each is a time-ordered set of MetricEntry values kept
// for 90 days.
const (
	MetricCreated   = "created"
	MetricCompleted = "completed"
	MetricCleaned   = "cleaned"
)

// MetricRetention bounds how far back metric entries are kept.
const MetricRetention = 90 * 24 * time.Hour

// MetricEntry is one recorded game event.
type MetricEntry struct {
	Code string `json:"code"`
	IP   string `json:"ip,omitempty"`
	At   int64  `json:"at"` // unix seconds
}

// Store is the persistence boundary. Load operations return a NotFound
// error kind when the code is unknown; infrastructure failures surface
// as Transient.
type Store interface {
	SaveLobby(ctx context.Context, code string, data []byte) error
	LoadLobby(ctx context.Context, code string) ([]byte, error)
	SaveEngine(ctx context.Context, code string, data []byte) error
	LoadEngine(ctx context.Context, code string) ([]byte, error)

	// Delete removes both documents for a code. Deleting an unknown
	// code is not an error.
	Delete(ctx context.Context, code string) error

	// ListCodes returns every code with a lobby document.
	ListCodes(ctx context.Context) ([]string, error)

	RecordMetric(ctx context.Context, metric string, entry MetricEntry) error
	CountMetric(ctx context.Context, metric string, since time.Time) (int64, error)

	Close() error
}
