package protocol

import "github.com/jdstemmler/poker/internal/engine"

// Game status values carried in lobby state.
const (
	StatusLobby  = "lobby"
	StatusActive = "active"
	StatusEnded  = "ended"
)

// LobbyPlayer is one roster entry as clients see it. PIN hashes never
// leave the server.
type LobbyPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	IsCreator bool   `json:"is_creator"`
}

// LobbyState is the wire view of a game outside of hand play.
type LobbyState struct {
	Code      string          `json:"code"`
	Status    string          `json:"status"`
	Settings  engine.Settings `json:"settings"`
	Players   []LobbyPlayer   `json:"players"`
	CreatorID string          `json:"creator_id"`
	CreatedAt int64           `json:"created_at"`
}
