package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEnvelope(t *testing.T) {
	t.Parallel()
	raw, err := Encode(TypeConnectionInfo, ConnectionInfo{
		ConnectedPlayers: []string{"alice", "bob"},
		SpectatorCount:   3,
	})
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeConnectionInfo, env.Type)

	var info ConnectionInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, []string{"alice", "bob"}, info.ConnectedPlayers)
	assert.Equal(t, 3, info.SpectatorCount)
}

func TestPingFrame(t *testing.T) {
	t.Parallel()
	env, err := Decode(Ping())
	require.NoError(t, err)
	assert.Equal(t, TypePing, env.Type)
	assert.Empty(t, env.Data)
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	t.Parallel()
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"data":{}}`))
	assert.Error(t, err, "type is mandatory")
}

func TestDecodeClientPong(t *testing.T) {
	t.Parallel()
	env, err := Decode([]byte(`{"type":"pong"}`))
	require.NoError(t, err)
	assert.Equal(t, TypePong, env.Type)
}
