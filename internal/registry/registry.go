// Package registry tracks the live connections for each game and fans
// server frames out to them. It knows nothing about websockets; any
// transport satisfying Conn can attach.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/jdstemmler/poker/internal/protocol"
)

// Conn is one attached client. Send must be safe for concurrent use
// and should fail fast once the peer is gone.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Role distinguishes seated players from watchers.
type Role int

const (
	RolePlayer Role = iota
	RoleSpectator
)

const (
	heartbeatInterval = 25 * time.Second

	// maxPingFailures consecutive undelivered pings drop the client.
	maxPingFailures = 2
)

type entry struct {
	conn     Conn
	role     Role
	failures int
}

type game struct {
	players    map[string]*entry
	spectators map[string]*entry
}

// Registry is the per-process connection table.
type Registry struct {
	logger    zerolog.Logger
	clock     quartz.Clock
	heartbeat time.Duration

	mu    sync.RWMutex
	games map[string]*game
}

// Option adjusts registry construction.
type Option func(*Registry)

// WithHeartbeat overrides the ping cadence.
func WithHeartbeat(d time.Duration) Option {
	return func(r *Registry) { r.heartbeat = d }
}

// New creates an empty registry. Pass nil for the real clock.
func New(logger zerolog.Logger, clock quartz.Clock, opts ...Option) *Registry {
	if clock == nil {
		clock = quartz.NewReal()
	}
	r := &Registry{
		logger:    logger.With().Str("component", "registry").Logger(),
		clock:     clock,
		heartbeat: heartbeatInterval,
		games:     make(map[string]*game),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register attaches a connection. An existing connection for the same
// id is closed first: the newest connection wins. Everyone attached to
// the game is told the roster changed.
func (r *Registry) Register(code, id string, role Role, conn Conn) {
	r.mu.Lock()
	g := r.games[code]
	if g == nil {
		g = &game{players: make(map[string]*entry), spectators: make(map[string]*entry)}
		r.games[code] = g
	}
	set := g.players
	if role == RoleSpectator {
		set = g.spectators
	}
	old := set[id]
	set[id] = &entry{conn: conn, role: role}
	r.mu.Unlock()

	if old != nil {
		// Superseded by the reconnect.
		_ = old.conn.Close()
		r.logger.Debug().Str("game", code).Str("id", id).Msg("connection superseded")
	}
	r.logger.Debug().Str("game", code).Str("id", id).Int("role", int(role)).Msg("registered")
	r.emitConnectionInfo(code)
}

// Unregister detaches a connection. The conn must match the current
// entry, so a superseded connection's teardown cannot evict its
// replacement. Pass nil to force removal.
func (r *Registry) Unregister(code, id string, conn Conn) {
	r.mu.Lock()
	g := r.games[code]
	removed := false
	if g != nil {
		for _, set := range []map[string]*entry{g.players, g.spectators} {
			if e, ok := set[id]; ok && (conn == nil || e.conn == conn) {
				delete(set, id)
				removed = true
			}
		}
		if len(g.players) == 0 && len(g.spectators) == 0 {
			delete(r.games, code)
		}
	}
	r.mu.Unlock()

	if removed {
		r.logger.Debug().Str("game", code).Str("id", id).Msg("unregistered")
		r.emitConnectionInfo(code)
	}
}

// snapshot copies the current entries so sends happen without the lock.
func (r *Registry) snapshot(code string) (players map[string]Conn, spectators map[string]Conn) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g := r.games[code]
	if g == nil {
		return nil, nil
	}
	players = make(map[string]Conn, len(g.players))
	for id, e := range g.players {
		players[id] = e.conn
	}
	spectators = make(map[string]Conn, len(g.spectators))
	for id, e := range g.spectators {
		spectators[id] = e.conn
	}
	return players, spectators
}

// Broadcast sends a per-player frame to each seated player and the
// spectator frame to watchers. A nil per-player result skips that
// player. A slow or dead client only loses its own frame.
func (r *Registry) Broadcast(code string, perPlayer func(playerID string) []byte, spectator []byte) {
	players, spectators := r.snapshot(code)
	for id, conn := range players {
		if frame := perPlayer(id); frame != nil {
			r.send(code, id, conn, frame)
		}
	}
	if spectator == nil {
		return
	}
	for id, conn := range spectators {
		r.send(code, id, conn, spectator)
	}
}

// BroadcastAll sends one frame to every connection in a game.
func (r *Registry) BroadcastAll(code string, frame []byte) {
	players, spectators := r.snapshot(code)
	for id, conn := range players {
		r.send(code, id, conn, frame)
	}
	for id, conn := range spectators {
		r.send(code, id, conn, frame)
	}
}

func (r *Registry) send(code, id string, conn Conn, frame []byte) {
	if err := conn.Send(frame); err != nil {
		r.logger.Debug().Err(err).Str("game", code).Str("id", id).Msg("send failed")
	}
}

// ConnectionInfo describes the current roster for a game.
func (r *Registry) ConnectionInfo(code string) protocol.ConnectionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info := protocol.ConnectionInfo{ConnectedPlayers: []string{}}
	g := r.games[code]
	if g == nil {
		return info
	}
	for id := range g.players {
		info.ConnectedPlayers = append(info.ConnectedPlayers, id)
	}
	sort.Strings(info.ConnectedPlayers)
	info.SpectatorCount = len(g.spectators)
	return info
}

func (r *Registry) emitConnectionInfo(code string) {
	frame, err := protocol.Encode(protocol.TypeConnectionInfo, r.ConnectionInfo(code))
	if err != nil {
		r.logger.Warn().Err(err).Str("game", code).Msg("encoding connection info")
		return
	}
	r.BroadcastAll(code, frame)
}

// RecordPong clears the failure count for a client that answered a
// heartbeat.
func (r *Registry) RecordPong(code, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.games[code]
	if g == nil {
		return
	}
	if e, ok := g.players[id]; ok {
		e.failures = 0
	}
	if e, ok := g.spectators[id]; ok {
		e.failures = 0
	}
}

// Run drives the heartbeat until the context is canceled.
func (r *Registry) Run(ctx context.Context) error {
	waiter := r.clock.TickerFunc(ctx, r.heartbeat, func() error {
		r.pingAll()
		return nil
	}, "heartbeat")
	return waiter.Wait()
}

type pingTarget struct {
	code string
	id   string
	conn Conn
}

// pingAll sends one ping to every connection, evicting clients whose
// last maxPingFailures pings could not be delivered. Sends happen
// outside the lock so a peer stuck at its write deadline cannot stall
// registration or broadcasts for the rest of the process.
func (r *Registry) pingAll() {
	ping := protocol.Ping()

	r.mu.RLock()
	var targets []pingTarget
	for code, g := range r.games {
		for _, set := range []map[string]*entry{g.players, g.spectators} {
			for id, e := range set {
				targets = append(targets, pingTarget{code: code, id: id, conn: e.conn})
			}
		}
	}
	r.mu.RUnlock()

	failed := make([]bool, len(targets))
	for i, tgt := range targets {
		failed[i] = tgt.conn.Send(ping) != nil
	}

	var stale []pingTarget
	r.mu.Lock()
	for i, tgt := range targets {
		e := r.lookup(tgt.code, tgt.id)
		if e == nil || e.conn != tgt.conn {
			// Superseded or unregistered while the ping was in flight.
			continue
		}
		if failed[i] {
			e.failures++
			if e.failures >= maxPingFailures {
				stale = append(stale, tgt)
			}
			continue
		}
		e.failures = 0
	}
	r.mu.Unlock()

	for _, s := range stale {
		r.logger.Info().Str("game", s.code).Str("id", s.id).Msg("dropping unresponsive client")
		_ = s.conn.Close()
		r.Unregister(s.code, s.id, s.conn)
	}
}

// lookup finds the entry for id in code. Caller holds mu.
func (r *Registry) lookup(code, id string) *entry {
	g, ok := r.games[code]
	if !ok {
		return nil
	}
	if e, ok := g.players[id]; ok {
		return e
	}
	return g.spectators[id]
}
