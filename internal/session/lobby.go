package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/jdstemmler/poker/internal/engine"
	"github.com/jdstemmler/poker/internal/errs"
	"github.com/jdstemmler/poker/internal/protocol"
)

// Validation bounds for player input and game settings.
const (
	maxNameLength    = 20
	minStartingChips = 100
	maxStartingChips = 100000
	minTablePlayers  = 2
	maxTablePlayers  = 50
	maxTurnTimeout   = 300 // seconds
	maxLevelDuration = 120 // minutes
)

// LobbyPlayer is one seat reservation in the persisted lobby record.
// PINHash is sha256 hex of the player's 4-digit PIN.
type LobbyPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PINHash   string `json:"pin_hash"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	IsCreator bool   `json:"is_creator"`
	JoinedAt  int64  `json:"joined_at"`
}

// Lobby is the persisted game record under game:{code}.
type Lobby struct {
	Code         string          `json:"code"`
	Status       string          `json:"status"`
	Settings     engine.Settings `json:"settings"`
	Players      []*LobbyPlayer  `json:"players"`
	CreatorID    string          `json:"creator_id"`
	CreatedAt    int64           `json:"created_at"`
	LastActivity int64           `json:"last_activity"`
	CreatorIP    string          `json:"creator_ip,omitempty"`
}

func (l *Lobby) player(id string) *LobbyPlayer {
	for _, p := range l.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (l *Lobby) playerByName(name string) *LobbyPlayer {
	for _, p := range l.Players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// authenticate verifies a player's PIN against the lobby roster.
func (l *Lobby) authenticate(playerID, pin string) (*LobbyPlayer, error) {
	p := l.player(playerID)
	if p == nil {
		return nil, errs.Newf(errs.NotFound, "player not in game %s", l.Code)
	}
	if !pinMatches(pin, p.PINHash) {
		return nil, errs.New(errs.Unauthorized, "invalid PIN")
	}
	return p, nil
}

// toWire strips credentials for broadcast.
func (l *Lobby) toWire() protocol.LobbyState {
	players := make([]protocol.LobbyPlayer, 0, len(l.Players))
	for _, p := range l.Players {
		players = append(players, protocol.LobbyPlayer{
			ID:        p.ID,
			Name:      p.Name,
			Ready:     p.Ready,
			Connected: p.Connected,
			IsCreator: p.IsCreator,
		})
	}
	return protocol.LobbyState{
		Code:      l.Code,
		Status:    l.Status,
		Settings:  l.Settings,
		Players:   players,
		CreatorID: l.CreatorID,
		CreatedAt: l.CreatedAt * 1000, // unix millis on the wire
	}
}

// hashPIN is the canonical PIN digest stored in the lobby record.
func hashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

func pinMatches(pin, hash string) bool {
	digest := hashPIN(pin)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(hash)) == 1
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.New(errs.InvalidArgument, "name is required")
	}
	if len(name) > maxNameLength {
		return errs.Newf(errs.InvalidArgument, "name exceeds %d characters", maxNameLength)
	}
	return nil
}

func validatePIN(pin string) error {
	if len(pin) != 4 {
		return errs.New(errs.InvalidArgument, "PIN must be exactly 4 digits")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return errs.New(errs.InvalidArgument, "PIN must be exactly 4 digits")
		}
	}
	return nil
}

func validateSettings(s engine.Settings) error {
	if s.StartingChips < minStartingChips || s.StartingChips > maxStartingChips {
		return errs.Newf(errs.InvalidArgument,
			"starting chips must be between %d and %d", minStartingChips, maxStartingChips)
	}
	if s.MaxPlayers < minTablePlayers || s.MaxPlayers > maxTablePlayers {
		return errs.Newf(errs.InvalidArgument,
			"max players must be between %d and %d", minTablePlayers, maxTablePlayers)
	}
	if s.TurnTimeout < 0 || s.TurnTimeout > maxTurnTimeout {
		return errs.Newf(errs.InvalidArgument, "turn timeout must be 0-%d seconds", maxTurnTimeout)
	}
	if s.BlindLevelDuration < 0 || s.BlindLevelDuration > maxLevelDuration {
		return errs.Newf(errs.InvalidArgument,
			"blind level duration must be 0-%d minutes", maxLevelDuration)
	}
	if s.BlindLevelDuration == 0 {
		if s.SmallBlind <= 0 || s.BigBlind <= 0 {
			return errs.New(errs.InvalidArgument, "fixed games need positive blinds")
		}
		if s.BigBlind < s.SmallBlind {
			return errs.New(errs.InvalidArgument, "big blind below small blind")
		}
		if s.BigBlind > s.StartingChips {
			return errs.New(errs.InvalidArgument, "big blind exceeds starting stack")
		}
	}
	if s.MaxRebuys < 0 || s.RebuyCutoffMinutes < 0 || s.TargetGameMinutes < 0 {
		return errs.New(errs.InvalidArgument, "negative settings value")
	}
	return nil
}
