package session

import (
	"context"
	"time"

	"github.com/jdstemmler/poker/internal/protocol"
	"github.com/jdstemmler/poker/internal/store"
)

// Staleness horizons for the background sweep. Lobby and active games
// are kept a day past their last activity; finished games linger three
// so players can review results.
const (
	sweepInterval  = 30 * time.Minute
	staleActive    = 24 * time.Hour
	staleCompleted = 72 * time.Hour
)

// RunSweeper deletes abandoned games on a fixed cadence until ctx is
// canceled.
func (m *Manager) RunSweeper(ctx context.Context) error {
	err := m.clock.TickerFunc(ctx, m.sweepEvery, func() error {
		m.sweep(ctx)
		return nil
	}, "sweeper").Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Manager) sweep(ctx context.Context) {
	codes, err := m.store.ListCodes(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("listing games for sweep")
		return
	}
	var removed int
	for _, code := range codes {
		if m.sweepGame(ctx, code) {
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info().Int("removed", removed).Msg("swept stale games")
	}
}

func (m *Manager) sweepGame(ctx context.Context, code string) bool {
	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return false
	}
	defer unlock()

	lobby, err := m.loadLobby(ctx, code)
	if err != nil {
		return false
	}
	horizon := staleActive
	if lobby.Status == protocol.StatusEnded {
		horizon = staleCompleted
	}
	idle := m.now().Sub(time.Unix(lobby.LastActivity, 0))
	if idle < horizon {
		return false
	}

	if err := m.store.Delete(ctx, code); err != nil {
		m.logger.Warn().Err(err).Str("game", code).Msg("deleting stale game")
		return false
	}
	m.unmarkActive(code)
	if err := m.store.RecordMetric(ctx, store.MetricCleaned, store.MetricEntry{
		Code: code, At: m.now().Unix(),
	}); err != nil {
		m.logger.Warn().Err(err).Str("game", code).Msg("recording cleaned metric")
	}
	m.logger.Info().Str("game", code).Str("status", lobby.Status).
		Dur("idle", idle).Msg("stale game removed")
	return true
}
