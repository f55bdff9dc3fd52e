package session

import (
	"context"
	"time"

	"github.com/jdstemmler/poker/internal/engine"
	"github.com/jdstemmler/poker/internal/errs"
	"github.com/jdstemmler/poker/internal/protocol"
	"github.com/jdstemmler/poker/internal/store"
)

// tickInterval is the resolution of turn and auto-deal deadlines.
const tickInterval = time.Second

// RunTimers drives the per-second deadline scan over every active game
// until ctx is canceled.
func (m *Manager) RunTimers(ctx context.Context) error {
	err := m.clock.TickerFunc(ctx, m.tickEvery, func() error {
		m.tick(ctx)
		return nil
	}, "timers").Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Manager) tick(ctx context.Context) {
	now := m.now()
	for _, code := range m.activeCodes() {
		m.tickGame(ctx, code, now)
	}
}

func (m *Manager) tickGame(ctx context.Context, code string, now time.Time) {
	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return
	}
	lobby, eng, changed, ended, err := m.tickLocked(ctx, code, now)
	unlock()
	if err != nil {
		if errs.IsKind(err, errs.NotFound) {
			// Swept or deleted out from under the driver.
			m.unmarkActive(code)
			return
		}
		m.logger.Warn().Err(err).Str("game", code).Msg("timer tick")
		return
	}
	if ended {
		m.unmarkActive(code)
		m.logger.Info().Str("game", code).Msg("game over")
		m.broadcastLobby(lobby)
	}
	if changed {
		m.broadcastEngine(eng)
	}
}

func (m *Manager) tickLocked(ctx context.Context, code string, now time.Time) (lobby *Lobby, eng *engine.Engine, changed, ended bool, err error) {
	eng, err = m.loadEngine(ctx, code)
	if err != nil {
		return nil, nil, false, false, err
	}
	if eng.Paused || eng.GameOver {
		return nil, eng, false, false, nil
	}

	switch {
	case !eng.ActionDeadline.IsZero() && !now.Before(eng.ActionDeadline):
		playerID, action, ok := eng.TimeoutAction()
		if !ok {
			return nil, eng, false, false, nil
		}
		if actErr := eng.ProcessAction(playerID, action, 0); actErr != nil {
			return nil, nil, false, false, actErr
		}
		m.logger.Info().Str("game", code).Str("player", playerID).
			Str("action", string(action)).Msg("turn clock expired")
		changed = true

	case !eng.AutoDealDeadline.IsZero() && !now.Before(eng.AutoDealDeadline):
		if dealErr := eng.StartHand(); dealErr != nil {
			// Cannot deal (for example everyone else is busted awaiting
			// rebuys): disarm so the driver does not spin on it.
			eng.AutoDealDeadline = time.Time{}
			m.logger.Debug().Err(dealErr).Str("game", code).Msg("auto-deal skipped")
		}
		changed = true

	default:
		return nil, eng, false, false, nil
	}

	if err = m.saveEngine(ctx, eng); err != nil {
		return nil, nil, false, false, err
	}
	if !eng.GameOver {
		// Timer-driven actions are not player activity: an abandoned
		// auto-deal game must still age out of the sweeper.
		return nil, eng, changed, false, nil
	}

	lobby, err = m.loadLobby(ctx, code)
	if err != nil {
		return nil, nil, false, false, err
	}
	if lobby.Status != protocol.StatusEnded {
		ended = true
		lobby.Status = protocol.StatusEnded
		lobby.LastActivity = now.Unix()
		if metricErr := m.store.RecordMetric(ctx, store.MetricCompleted, store.MetricEntry{
			Code: code, At: now.Unix(),
		}); metricErr != nil {
			m.logger.Warn().Err(metricErr).Str("game", code).Msg("recording completed metric")
		}
		if err = m.saveLobby(ctx, lobby); err != nil {
			return nil, nil, false, false, err
		}
	}
	return lobby, eng, changed, ended, nil
}
