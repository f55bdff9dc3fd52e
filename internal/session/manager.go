// Package session coordinates every mutation of a game: it owns the
// per-game locks, the load-modify-save cycle against the store, the
// background timers, and the fan-out of fresh state to connected
// clients. Engine operations run only inside the critical section and
// never block while they hold it.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jdstemmler/poker/internal/engine"
	"github.com/jdstemmler/poker/internal/errs"
	"github.com/jdstemmler/poker/internal/gamecode"
	"github.com/jdstemmler/poker/internal/protocol"
	"github.com/jdstemmler/poker/internal/registry"
	"github.com/jdstemmler/poker/internal/store"
)

// codeAttempts bounds collision retries when minting a room code.
const codeAttempts = 5

// Manager is the session coordinator.
type Manager struct {
	store    store.Store
	registry *registry.Registry
	codes    *gamecode.Generator
	locks    *keyedMutex
	clock    quartz.Clock
	logger   zerolog.Logger

	tickEvery  time.Duration
	sweepEvery time.Duration

	mu     sync.Mutex
	active map[string]bool
}

// Options wires a Manager. Store is required; nil Clock means real
// time, nil Codes means crypto-random room codes, zero intervals mean
// the defaults.
type Options struct {
	Store         store.Store
	Registry      *registry.Registry
	Clock         quartz.Clock
	Logger        zerolog.Logger
	Codes         *gamecode.Generator
	TickInterval  time.Duration
	SweepInterval time.Duration
}

// NewManager builds a coordinator from its collaborators.
func NewManager(opts Options) *Manager {
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	codes := opts.Codes
	if codes == nil {
		codes = gamecode.NewGenerator(nil)
	}
	tickEvery := opts.TickInterval
	if tickEvery <= 0 {
		tickEvery = tickInterval
	}
	sweepEvery := opts.SweepInterval
	if sweepEvery <= 0 {
		sweepEvery = sweepInterval
	}
	return &Manager{
		store:      opts.Store,
		registry:   opts.Registry,
		codes:      codes,
		locks:      newKeyedMutex(),
		clock:      clock,
		logger:     opts.Logger.With().Str("component", "session").Logger(),
		tickEvery:  tickEvery,
		sweepEvery: sweepEvery,
		active:     make(map[string]bool),
	}
}

func (m *Manager) now() time.Time { return m.clock.Now() }

func (m *Manager) markActive(code string) {
	m.mu.Lock()
	m.active[code] = true
	m.mu.Unlock()
}

func (m *Manager) unmarkActive(code string) {
	m.mu.Lock()
	delete(m.active, code)
	m.mu.Unlock()
}

func (m *Manager) activeCodes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.active))
	for code := range m.active {
		codes = append(codes, code)
	}
	return codes
}

// RecoverActive re-arms the timer driver for games that were mid-play
// when the process last stopped.
func (m *Manager) RecoverActive(ctx context.Context) error {
	codes, err := m.store.ListCodes(ctx)
	if err != nil {
		return err
	}
	for _, code := range codes {
		lobby, err := m.loadLobby(ctx, code)
		if err != nil {
			continue
		}
		if lobby.Status == protocol.StatusActive {
			m.markActive(code)
		}
	}
	m.logger.Info().Int("games", len(m.activeCodes())).Msg("recovered active games")
	return nil
}

// -- persistence helpers ---------------------------------------------

func (m *Manager) loadLobby(ctx context.Context, code string) (*Lobby, error) {
	data, err := m.store.LoadLobby(ctx, code)
	if err != nil {
		return nil, err
	}
	var lobby Lobby
	if err := json.Unmarshal(data, &lobby); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "decoding lobby record")
	}
	return &lobby, nil
}

func (m *Manager) saveLobby(ctx context.Context, lobby *Lobby) error {
	data, err := json.Marshal(lobby)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "encoding lobby record")
	}
	return m.store.SaveLobby(ctx, lobby.Code, data)
}

func (m *Manager) loadEngine(ctx context.Context, code string) (*engine.Engine, error) {
	data, err := m.store.LoadEngine(ctx, code)
	if err != nil {
		return nil, err
	}
	return engine.Restore(data, m.clock)
}

func (m *Manager) saveEngine(ctx context.Context, eng *engine.Engine) error {
	data, err := eng.Snapshot()
	if err != nil {
		return err
	}
	return m.store.SaveEngine(ctx, eng.GameCode, data)
}

// -- broadcast helpers (always called after the lock is released) ----

func (m *Manager) broadcastLobby(lobby *Lobby) {
	if m.registry == nil {
		return
	}
	frame, err := protocol.Encode(protocol.TypeLobbyState, lobby.toWire())
	if err != nil {
		m.logger.Warn().Err(err).Str("game", lobby.Code).Msg("encoding lobby state")
		return
	}
	m.registry.BroadcastAll(lobby.Code, frame)
}

func (m *Manager) broadcastEngine(eng *engine.Engine) {
	if m.registry == nil {
		return
	}
	spectator, err := protocol.Encode(protocol.TypeGameState, eng.SpectatorView())
	if err != nil {
		m.logger.Warn().Err(err).Str("game", eng.GameCode).Msg("encoding game state")
		return
	}
	m.registry.Broadcast(eng.GameCode, func(playerID string) []byte {
		frame, err := protocol.Encode(protocol.TypeGameState, eng.View(playerID))
		if err != nil {
			m.logger.Warn().Err(err).Str("game", eng.GameCode).Str("player", playerID).
				Msg("encoding player view")
			return nil
		}
		return frame
	}, spectator)
}

// -- operations ------------------------------------------------------

// CreateParams describe a new game and its creator.
type CreateParams struct {
	Name      string
	PIN       string
	Settings  engine.Settings
	CreatorIP string
}

// CreateResult identifies the new game and the creator's seat.
type CreateResult struct {
	Code     string
	PlayerID string
	Lobby    protocol.LobbyState
}

// Create mints a room code and persists a fresh lobby with the creator
// as its first player.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	if err := validateName(params.Name); err != nil {
		return nil, err
	}
	if err := validatePIN(params.PIN); err != nil {
		return nil, err
	}
	if err := validateSettings(params.Settings); err != nil {
		return nil, err
	}

	var code string
	for attempt := 0; ; attempt++ {
		code = m.codes.Generate()
		_, err := m.store.LoadLobby(ctx, code)
		if errs.IsKind(err, errs.NotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if attempt+1 >= codeAttempts {
			return nil, errs.New(errs.Internal, "could not allocate a free room code")
		}
	}

	now := m.now().Unix()
	playerID := uuid.NewString()
	lobby := &Lobby{
		Code:     code,
		Status:   protocol.StatusLobby,
		Settings: params.Settings,
		Players: []*LobbyPlayer{{
			ID:        playerID,
			Name:      strings.TrimSpace(params.Name),
			PINHash:   hashPIN(params.PIN),
			IsCreator: true,
			JoinedAt:  now,
		}},
		CreatorID:    playerID,
		CreatedAt:    now,
		LastActivity: now,
		CreatorIP:    params.CreatorIP,
	}

	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return nil, err
	}
	err = m.saveLobby(ctx, lobby)
	unlock()
	if err != nil {
		return nil, err
	}

	if err := m.store.RecordMetric(ctx, store.MetricCreated, store.MetricEntry{
		Code: code, IP: params.CreatorIP, At: now,
	}); err != nil {
		m.logger.Warn().Err(err).Str("game", code).Msg("recording created metric")
	}
	m.logger.Info().Str("game", code).Msg("game created")
	return &CreateResult{Code: code, PlayerID: playerID, Lobby: lobby.toWire()}, nil
}

// JoinResult reports the seat a join or reconnect landed on.
type JoinResult struct {
	PlayerID    string
	Reconnected bool
	Lobby       protocol.LobbyState
}

// Join adds a player to a lobby. A name already on the roster with a
// matching PIN is a reconnect and succeeds in any game status; a wrong
// PIN on an existing name is rejected.
func (m *Manager) Join(ctx context.Context, code, name, pin string) (*JoinResult, error) {
	code = gamecode.Normalize(code)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePIN(pin); err != nil {
		return nil, err
	}

	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return nil, err
	}

	lobby, result, err := m.joinLocked(ctx, code, name, pin)
	unlock()
	if err != nil {
		return nil, err
	}
	if !result.Reconnected {
		m.broadcastLobby(lobby)
	}
	return result, nil
}

func (m *Manager) joinLocked(ctx context.Context, code, name, pin string) (*Lobby, *JoinResult, error) {
	lobby, err := m.loadLobby(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	if existing := lobby.playerByName(name); existing != nil {
		if !pinMatches(pin, existing.PINHash) {
			return nil, nil, errs.New(errs.Unauthorized, "name is taken and the PIN does not match")
		}
		lobby.LastActivity = m.now().Unix()
		if err := m.saveLobby(ctx, lobby); err != nil {
			return nil, nil, err
		}
		m.logger.Info().Str("game", code).Str("player", existing.ID).Msg("player reconnected")
		return lobby, &JoinResult{PlayerID: existing.ID, Reconnected: true, Lobby: lobby.toWire()}, nil
	}

	if lobby.Status != protocol.StatusLobby {
		return nil, nil, errs.New(errs.InvalidState, "game has already started")
	}
	if len(lobby.Players) >= lobby.Settings.MaxPlayers {
		return nil, nil, errs.New(errs.Conflict, "game is full")
	}

	now := m.now().Unix()
	player := &LobbyPlayer{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		PINHash:  hashPIN(pin),
		JoinedAt: now,
	}
	lobby.Players = append(lobby.Players, player)
	lobby.LastActivity = now
	if err := m.saveLobby(ctx, lobby); err != nil {
		return nil, nil, err
	}

	m.logger.Info().Str("game", code).Str("player", player.ID).Msg("player joined")
	return lobby, &JoinResult{PlayerID: player.ID, Lobby: lobby.toWire()}, nil
}

// ToggleReady flips a lobby player's ready flag.
func (m *Manager) ToggleReady(ctx context.Context, code, playerID, pin string) (bool, error) {
	code = gamecode.Normalize(code)
	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return false, err
	}

	lobby, err := m.loadLobby(ctx, code)
	if err != nil {
		unlock()
		return false, err
	}
	player, err := lobby.authenticate(playerID, pin)
	if err != nil {
		unlock()
		return false, err
	}
	if lobby.Status != protocol.StatusLobby {
		unlock()
		return false, errs.New(errs.InvalidState, "game has already started")
	}
	player.Ready = !player.Ready
	lobby.LastActivity = m.now().Unix()
	err = m.saveLobby(ctx, lobby)
	unlock()
	if err != nil {
		return false, err
	}

	m.broadcastLobby(lobby)
	return player.Ready, nil
}

// Start moves a lobby to active play: it builds the engine with the
// roster in join order and persists the first snapshot. Creator only;
// needs at least two players, all ready.
func (m *Manager) Start(ctx context.Context, code, playerID, pin string) error {
	code = gamecode.Normalize(code)
	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return err
	}

	lobby, eng, err := m.startLocked(ctx, code, playerID, pin)
	unlock()
	if err != nil {
		return err
	}

	m.markActive(code)
	m.logger.Info().Str("game", code).Int("players", len(lobby.Players)).Msg("game started")
	m.broadcastLobby(lobby)
	m.broadcastEngine(eng)
	return nil
}

func (m *Manager) startLocked(ctx context.Context, code, playerID, pin string) (*Lobby, *engine.Engine, error) {
	lobby, err := m.loadLobby(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	player, err := lobby.authenticate(playerID, pin)
	if err != nil {
		return nil, nil, err
	}
	if !player.IsCreator {
		return nil, nil, errs.New(errs.Unauthorized, "only the creator can start the game")
	}
	if lobby.Status != protocol.StatusLobby {
		return nil, nil, errs.New(errs.InvalidState, "game has already started")
	}
	if len(lobby.Players) < minTablePlayers {
		return nil, nil, errs.Newf(errs.InvalidState, "need at least %d players", minTablePlayers)
	}
	for _, p := range lobby.Players {
		if !p.Ready {
			return nil, nil, errs.Newf(errs.InvalidState, "%s is not ready", p.Name)
		}
	}

	seats := make([]engine.NewSeat, 0, len(lobby.Players))
	for _, p := range lobby.Players {
		seats = append(seats, engine.NewSeat{
			PlayerID:  p.ID,
			Name:      p.Name,
			PINHash:   p.PINHash,
			IsCreator: p.IsCreator,
		})
	}
	eng := engine.New(code, seats, lobby.Settings, m.clock)
	eng.ArmAutoDeal()

	lobby.Status = protocol.StatusActive
	lobby.LastActivity = m.now().Unix()
	if err := m.saveEngine(ctx, eng); err != nil {
		return nil, nil, err
	}
	if err := m.saveLobby(ctx, lobby); err != nil {
		return nil, nil, err
	}
	return lobby, eng, nil
}

// mutateEngine runs one authenticated engine operation under the game
// lock, persists the result, and reports whether the game just ended.
func (m *Manager) mutateEngine(
	ctx context.Context, code, playerID, pin string,
	bumpActivity bool,
	op func(lobby *Lobby, eng *engine.Engine) error,
) error {
	code = gamecode.Normalize(code)
	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return err
	}

	lobby, eng, ended, err := m.mutateEngineLocked(ctx, code, playerID, pin, bumpActivity, op)
	unlock()
	if err != nil {
		return err
	}

	if ended {
		m.unmarkActive(code)
		m.logger.Info().Str("game", code).Msg("game over")
		m.broadcastLobby(lobby)
	}
	m.broadcastEngine(eng)
	return nil
}

func (m *Manager) mutateEngineLocked(
	ctx context.Context, code, playerID, pin string,
	bumpActivity bool,
	op func(lobby *Lobby, eng *engine.Engine) error,
) (lobby *Lobby, eng *engine.Engine, ended bool, err error) {
	lobby, err = m.loadLobby(ctx, code)
	if err != nil {
		return nil, nil, false, err
	}
	if _, err = lobby.authenticate(playerID, pin); err != nil {
		return nil, nil, false, err
	}
	eng, err = m.loadEngine(ctx, code)
	if err != nil {
		return nil, nil, false, err
	}

	if err = op(lobby, eng); err != nil {
		return nil, nil, false, err
	}

	// Terminal transition: flip the lobby and record the completion
	// inside the same critical section so it happens exactly once.
	if eng.GameOver && lobby.Status != protocol.StatusEnded {
		ended = true
		lobby.Status = protocol.StatusEnded
		if metricErr := m.store.RecordMetric(ctx, store.MetricCompleted, store.MetricEntry{
			Code: code, At: m.now().Unix(),
		}); metricErr != nil {
			m.logger.Warn().Err(metricErr).Str("game", code).Msg("recording completed metric")
		}
	}

	if bumpActivity || ended {
		lobby.LastActivity = m.now().Unix()
	}
	if err = m.saveEngine(ctx, eng); err != nil {
		return nil, nil, false, err
	}
	if err = m.saveLobby(ctx, lobby); err != nil {
		return nil, nil, false, err
	}
	return lobby, eng, ended, nil
}

// Deal starts the next hand. Creator only; auto-deal covers the table
// between hands when enabled.
func (m *Manager) Deal(ctx context.Context, code, playerID, pin string) error {
	return m.mutateEngine(ctx, code, playerID, pin, true, func(lobby *Lobby, eng *engine.Engine) error {
		if playerID != lobby.CreatorID {
			return errs.New(errs.Unauthorized, "only the creator can deal")
		}
		return eng.StartHand()
	})
}

// Action applies one betting decision for the authenticated player.
func (m *Manager) Action(ctx context.Context, code, playerID, pin, action string, amount int) error {
	act, err := engine.ParseAction(action)
	if err != nil {
		return err
	}
	return m.mutateEngine(ctx, code, playerID, pin, true, func(_ *Lobby, eng *engine.Engine) error {
		return eng.ProcessAction(playerID, act, amount)
	})
}

// Rebuy requests a stack top-up for a busted player.
func (m *Manager) Rebuy(ctx context.Context, code, playerID, pin string) error {
	return m.mutateEngine(ctx, code, playerID, pin, true, func(_ *Lobby, eng *engine.Engine) error {
		return eng.RequestRebuy(playerID)
	})
}

// CancelRebuy withdraws a queued rebuy.
func (m *Manager) CancelRebuy(ctx context.Context, code, playerID, pin string) error {
	return m.mutateEngine(ctx, code, playerID, pin, false, func(_ *Lobby, eng *engine.Engine) error {
		return eng.CancelRebuy(playerID)
	})
}

// ShowCards voluntarily reveals the player's hole cards.
func (m *Manager) ShowCards(ctx context.Context, code, playerID, pin string) error {
	return m.mutateEngine(ctx, code, playerID, pin, false, func(_ *Lobby, eng *engine.Engine) error {
		return eng.ShowCards(playerID)
	})
}

// SetPaused pauses or resumes the table. Creator only.
func (m *Manager) SetPaused(ctx context.Context, code, playerID, pin string, paused bool) error {
	return m.mutateEngine(ctx, code, playerID, pin, false, func(lobby *Lobby, eng *engine.Engine) error {
		if playerID != lobby.CreatorID {
			return errs.New(errs.Unauthorized, "only the creator can pause")
		}
		return eng.SetPaused(paused)
	})
}

// Leave removes a player from a lobby that has not started. A creator
// leaving hands the game to the longest-seated remaining player; the
// last player leaving deletes the game.
func (m *Manager) Leave(ctx context.Context, code, playerID, pin string) error {
	code = gamecode.Normalize(code)
	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return err
	}

	lobby, deleted, err := m.leaveLocked(ctx, code, playerID, pin)
	unlock()
	if err != nil {
		return err
	}

	if m.registry != nil {
		m.registry.Unregister(code, playerID, nil)
	}
	if deleted {
		m.logger.Info().Str("game", code).Msg("empty lobby deleted")
		return nil
	}
	m.broadcastLobby(lobby)
	return nil
}

func (m *Manager) leaveLocked(ctx context.Context, code, playerID, pin string) (*Lobby, bool, error) {
	lobby, err := m.loadLobby(ctx, code)
	if err != nil {
		return nil, false, err
	}
	player, err := lobby.authenticate(playerID, pin)
	if err != nil {
		return nil, false, err
	}
	if lobby.Status != protocol.StatusLobby {
		return nil, false, errs.New(errs.InvalidState, "cannot leave a running game")
	}

	remaining := lobby.Players[:0]
	for _, p := range lobby.Players {
		if p.ID != playerID {
			remaining = append(remaining, p)
		}
	}
	lobby.Players = remaining

	if len(lobby.Players) == 0 {
		if err := m.store.Delete(ctx, code); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	if player.IsCreator {
		heir := lobby.Players[0]
		for _, p := range lobby.Players[1:] {
			if p.JoinedAt < heir.JoinedAt {
				heir = p
			}
		}
		heir.IsCreator = true
		lobby.CreatorID = heir.ID
		m.logger.Info().Str("game", code).Str("player", heir.ID).Msg("creator hand-off")
	}
	lobby.LastActivity = m.now().Unix()
	if err := m.saveLobby(ctx, lobby); err != nil {
		return nil, false, err
	}
	return lobby, false, nil
}

// State returns the engine view for one viewer. Unknown viewers get
// the spectator filtering.
func (m *Manager) State(ctx context.Context, code, viewerID string) (engine.EngineView, error) {
	code = gamecode.Normalize(code)
	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return engine.EngineView{}, err
	}
	defer unlock()

	eng, err := m.loadEngine(ctx, code)
	if err != nil {
		return engine.EngineView{}, err
	}
	return eng.View(viewerID), nil
}

// LobbyState returns the sanitized lobby record.
func (m *Manager) LobbyState(ctx context.Context, code string) (protocol.LobbyState, error) {
	code = gamecode.Normalize(code)
	lobby, err := m.loadLobby(ctx, code)
	if err != nil {
		return protocol.LobbyState{}, err
	}
	return lobby.toWire(), nil
}

// Authenticate verifies a player's PIN without mutating anything, for
// the WebSocket attach path.
func (m *Manager) Authenticate(ctx context.Context, code, playerID, pin string) error {
	code = gamecode.Normalize(code)
	lobby, err := m.loadLobby(ctx, code)
	if err != nil {
		return err
	}
	_, err = lobby.authenticate(playerID, pin)
	return err
}

// MarkConnected records a player's socket presence on the lobby
// roster. Unknown ids (spectators) are ignored.
func (m *Manager) MarkConnected(ctx context.Context, code, playerID string, connected bool) {
	code = gamecode.Normalize(code)
	unlock, err := m.locks.Lock(ctx, code)
	if err != nil {
		return
	}

	lobby, err := m.loadLobby(ctx, code)
	if err != nil {
		unlock()
		return
	}
	player := lobby.player(playerID)
	if player == nil || player.Connected == connected {
		unlock()
		return
	}
	player.Connected = connected
	err = m.saveLobby(ctx, lobby)
	unlock()
	if err != nil {
		m.logger.Warn().Err(err).Str("game", code).Msg("saving connected flag")
		return
	}
	m.broadcastLobby(lobby)
}

// GameSummary is one row of the operator game listing.
type GameSummary struct {
	Code      string `json:"code"`
	Status    string `json:"status"`
	Players   int    `json:"players"`
	CreatedAt int64  `json:"created_at"`
}

// ListGames enumerates every stored game.
func (m *Manager) ListGames(ctx context.Context) ([]GameSummary, error) {
	codes, err := m.store.ListCodes(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]GameSummary, 0, len(codes))
	for _, code := range codes {
		lobby, err := m.loadLobby(ctx, code)
		if err != nil {
			continue
		}
		summaries = append(summaries, GameSummary{
			Code:      lobby.Code,
			Status:    lobby.Status,
			Players:   len(lobby.Players),
			CreatedAt: lobby.CreatedAt,
		})
	}
	return summaries, nil
}

// MetricWindows are the reporting horizons for Metrics.
var MetricWindows = []time.Duration{24 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour}

// MetricsSummary counts game events per reporting window.
type MetricsSummary struct {
	Created   map[string]int64 `json:"created"`
	Completed map[string]int64 `json:"completed"`
	Cleaned   map[string]int64 `json:"cleaned"`
}

func windowLabel(d time.Duration) string {
	switch {
	case d <= 24*time.Hour:
		return "24h"
	case d <= 7*24*time.Hour:
		return "7d"
	default:
		return "30d"
	}
}

// Metrics builds the created/completed/cleaned counts for the standard
// windows.
func (m *Manager) Metrics(ctx context.Context) (MetricsSummary, error) {
	summary := MetricsSummary{
		Created:   make(map[string]int64),
		Completed: make(map[string]int64),
		Cleaned:   make(map[string]int64),
	}
	now := m.now()
	for _, window := range MetricWindows {
		since := now.Add(-window)
		label := windowLabel(window)
		for metric, dest := range map[string]map[string]int64{
			store.MetricCreated:   summary.Created,
			store.MetricCompleted: summary.Completed,
			store.MetricCleaned:   summary.Cleaned,
		} {
			n, err := m.store.CountMetric(ctx, metric, since)
			if err != nil {
				return MetricsSummary{}, err
			}
			dest[label] = n
		}
	}
	return summary, nil
}
