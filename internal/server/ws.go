package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jdstemmler/poker/internal/errs"
	"github.com/jdstemmler/poker/internal/gamecode"
	"github.com/jdstemmler/poker/internal/protocol"
	"github.com/jdstemmler/poker/internal/registry"
)

// maxFrameBytes bounds client frames; clients only ever send pongs.
const maxFrameBytes = 1024

// wsConn adapts a gorilla connection to the registry's Conn interface.
// gorilla allows a single concurrent writer, so Send serializes and a
// slow client hits the write deadline instead of stalling broadcasts.
type wsConn struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error { return c.conn.Close() }

// handleWS attaches one client to a game's push channel. Players
// authenticate with ?pin=; the literal id "spectator" gets a read-only
// attachment under a generated id.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	code := gamecode.Normalize(r.PathValue("code"))
	viewerID := r.PathValue("pid")

	role := registry.RolePlayer
	if viewerID == "spectator" {
		role = registry.RoleSpectator
		viewerID = "spec-" + uuid.NewString()
		if _, err := s.manager.LobbyState(r.Context(), code); err != nil {
			s.writeError(w, err)
			return
		}
	} else {
		if err := s.manager.Authenticate(r.Context(), code, viewerID, r.URL.Query().Get("pin")); err != nil {
			s.writeError(w, err)
			return
		}
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure.
		s.logger.Debug().Err(err).Str("game", code).Msg("websocket upgrade")
		return
	}
	raw.SetReadLimit(maxFrameBytes)
	conn := &wsConn{conn: raw, timeout: s.sendTimeout}

	s.registry.Register(code, viewerID, role, conn)
	s.metrics.wsClients.Inc()
	s.logger.Info().Str("game", code).Str("viewer", viewerID).
		Bool("spectator", role == registry.RoleSpectator).Msg("client attached")

	if role == registry.RolePlayer {
		s.manager.MarkConnected(r.Context(), code, viewerID, true)
	}
	s.pushCurrentState(r.Context(), code, viewerID, conn)

	defer func() {
		s.registry.Unregister(code, viewerID, conn)
		s.metrics.wsClients.Dec()
		if role == registry.RolePlayer {
			// The request context is gone once the socket drops.
			s.manager.MarkConnected(context.Background(), code, viewerID, false)
		}
		s.logger.Info().Str("game", code).Str("viewer", viewerID).Msg("client detached")
	}()

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			return
		}
		s.metrics.wsFrames.Inc()
		env, err := protocol.Decode(data)
		if err != nil {
			s.logger.Debug().Err(err).Str("game", code).Msg("bad client frame")
			continue
		}
		if env.Type == protocol.TypePong {
			s.registry.RecordPong(code, viewerID)
		}
	}
}

// pushCurrentState sends the lobby record and, once play has begun,
// the viewer's engine view so reconnecting clients render immediately.
func (s *Server) pushCurrentState(ctx context.Context, code, viewerID string, conn *wsConn) {
	lobby, err := s.manager.LobbyState(ctx, code)
	if err != nil {
		s.logger.Debug().Err(err).Str("game", code).Msg("loading lobby for attach push")
		return
	}
	if frame, err := protocol.Encode(protocol.TypeLobbyState, lobby); err == nil {
		_ = conn.Send(frame)
	}

	if lobby.Status == protocol.StatusLobby {
		return
	}
	view, err := s.manager.State(ctx, code, viewerID)
	if err != nil {
		if !errs.IsKind(err, errs.NotFound) {
			s.logger.Warn().Err(err).Str("game", code).Msg("loading state for attach push")
		}
		return
	}
	if frame, err := protocol.Encode(protocol.TypeGameState, view); err == nil {
		_ = conn.Send(frame)
	}
}
