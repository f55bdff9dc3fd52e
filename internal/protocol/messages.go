// Package protocol defines the JSON wire format between the server and
// its WebSocket clients. Every frame is an Envelope; the data payload
// depends on the type.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Server -> client frame types.
const (
	TypeGameState      = "game_state"
	TypeLobbyState     = "lobby_state"
	TypeConnectionInfo = "connection_info"
	TypePing           = "ping"
	TypeError          = "error"
)

// Client -> server frame types.
const (
	TypePong = "pong"
)

// Envelope is the outer frame for every message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ConnectionInfo reports who is attached to a game.
type ConnectionInfo struct {
	ConnectedPlayers []string `json:"connected_players"`
	SpectatorCount   int      `json:"spectator_count"`
}

// ErrorInfo is the payload of an error frame.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode wraps a payload in an envelope of the given type.
func Encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", msgType, err)
		}
		env.Data = data
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", msgType, err)
	}
	return out, nil
}

// MustEncode is Encode for payloads that cannot fail to serialize.
func MustEncode(msgType string, payload any) []byte {
	out, err := Encode(msgType, payload)
	if err != nil {
		panic(err)
	}
	return out
}

// Ping returns the heartbeat frame.
func Ping() []byte {
	return MustEncode(TypePing, nil)
}

// Decode parses an incoming frame.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("frame missing type")
	}
	return env, nil
}
