package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/jdstemmler/poker/internal/engine"
	"github.com/jdstemmler/poker/internal/errs"
	"github.com/jdstemmler/poker/internal/session"
)

// httpStatus maps error kinds to response codes.
func httpStatus(err error) int {
	switch errs.KindOf(err) {
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Unauthorized:
		return http.StatusUnauthorized
	case errs.InvalidState, errs.Conflict:
		return http.StatusConflict
	case errs.InvalidArgument:
		return http.StatusBadRequest
	case errs.Transient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("writing response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Warn().Err(err).Msg("internal error")
	}
	s.writeJSON(w, status, map[string]string{
		"error": errs.KindOf(err).String(),
		"message": func() string {
			if status == http.StatusInternalServerError {
				return "internal error"
			}
			return err.Error()
		}(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, errs.Wrap(errs.InvalidArgument, err, "decoding request body"))
		return false
	}
	return true
}

// playerRequest is the common credential envelope of mutation bodies.
type playerRequest struct {
	PlayerID string `json:"player_id"`
	PIN      string `json:"pin"`
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string          `json:"name"`
		PIN      string          `json:"pin"`
		Settings engine.Settings `json:"settings"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.manager.Create(r.Context(), session.CreateParams{
		Name:      req.Name,
		PIN:       req.PIN,
		Settings:  req.Settings,
		CreatorIP: clientIP(r),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"code":      result.Code,
		"player_id": result.PlayerID,
		"lobby":     result.Lobby,
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		PIN  string `json:"pin"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.manager.Join(r.Context(), r.PathValue("code"), req.Name, req.PIN)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"player_id":   result.PlayerID,
		"reconnected": result.Reconnected,
		"lobby":       result.Lobby,
	})
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	state, err := s.manager.LobbyState(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	view, err := s.manager.State(r.Context(), r.PathValue("code"), r.PathValue("pid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if !s.decode(w, r, &req) {
		return
	}
	ready, err := s.manager.ToggleReady(r.Context(), r.PathValue("code"), req.PlayerID, req.PIN)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ready": ready})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.playerOp(w, r, s.manager.Start)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		playerRequest
		Action string `json:"action"`
		Amount int    `json:"amount"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	err := s.manager.Action(r.Context(), r.PathValue("code"), req.PlayerID, req.PIN, req.Action, req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeal(w http.ResponseWriter, r *http.Request) {
	s.playerOp(w, r, s.manager.Deal)
}

func (s *Server) handleRebuy(w http.ResponseWriter, r *http.Request) {
	s.playerOp(w, r, s.manager.Rebuy)
}

func (s *Server) handleCancelRebuy(w http.ResponseWriter, r *http.Request) {
	s.playerOp(w, r, s.manager.CancelRebuy)
}

func (s *Server) handleShowCards(w http.ResponseWriter, r *http.Request) {
	s.playerOp(w, r, s.manager.ShowCards)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.playerOp(w, r, s.manager.Leave)
}

// playerOp runs a coordinator operation that needs only credentials.
func (s *Server) playerOp(
	w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, code, playerID, pin string) error,
) {
	var req playerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := op(r.Context(), r.PathValue("code"), req.PlayerID, req.PIN); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		playerRequest
		Paused bool `json:"paused"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	err := s.manager.SetPaused(r.Context(), r.PathValue("code"), req.PlayerID, req.PIN, req.Paused)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	games, err := s.manager.ListGames(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.manager.Metrics(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}
