package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdstemmler/poker/internal/protocol"
	"github.com/jdstemmler/poker/internal/registry"
	"github.com/jdstemmler/poker/internal/session"
	"github.com/jdstemmler/poker/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	clock := quartz.NewMock(t)
	reg := registry.New(zerolog.Nop(), clock)
	manager := session.NewManager(session.Options{
		Store:    store.NewMemory(),
		Registry: reg,
		Clock:    clock,
		Logger:   zerolog.Nop(),
	})
	srv := New(DefaultConfig(), manager, reg, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) (int, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func getJSON(t *testing.T, ts *httptest.Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func createGame(t *testing.T, ts *httptest.Server) (code, aliceID, bobID string) {
	t.Helper()
	status, created := postJSON(t, ts, "/api/games", map[string]any{
		"name": "alice",
		"pin":  "1111",
		"settings": map[string]any{
			"starting_chips": 1000,
			"small_blind":    10,
			"big_blind":      20,
			"max_players":    4,
		},
	})
	require.Equal(t, http.StatusCreated, status)
	code = created["code"].(string)
	aliceID = created["player_id"].(string)

	status, joined := postJSON(t, ts, "/api/games/"+code+"/join", map[string]any{
		"name": "bob", "pin": "2222",
	})
	require.Equal(t, http.StatusOK, status)
	bobID = joined["player_id"].(string)
	return code, aliceID, bobID
}

func TestCreateJoinStartFlow(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	code, aliceID, bobID := createGame(t, ts)

	status, lobby := getJSON(t, ts, "/api/games/"+code)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "lobby", lobby["status"])
	assert.Len(t, lobby["players"], 2)

	for id, pin := range map[string]string{aliceID: "1111", bobID: "2222"} {
		status, ready := postJSON(t, ts, "/api/games/"+code+"/ready", map[string]any{
			"player_id": id, "pin": pin,
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, ready["ready"])
	}

	status, _ = postJSON(t, ts, "/api/games/"+code+"/start", map[string]any{
		"player_id": aliceID, "pin": "1111",
	})
	require.Equal(t, http.StatusOK, status)

	status, view := getJSON(t, ts, "/api/games/"+code+"/state/"+aliceID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, code, view["game_code"])
	assert.Len(t, view["players"], 2)

	status, _ = postJSON(t, ts, "/api/games/"+code+"/deal", map[string]any{
		"player_id": aliceID, "pin": "1111",
	})
	require.Equal(t, http.StatusOK, status)
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	code, aliceID, bobID := createGame(t, ts)

	// Unknown game.
	status, body := getJSON(t, ts, "/api/games/ZZZZZZ")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])

	// Wrong PIN.
	status, body = postJSON(t, ts, "/api/games/"+code+"/ready", map[string]any{
		"player_id": aliceID, "pin": "0000",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])

	// Creator-only operation.
	status, _ = postJSON(t, ts, "/api/games/"+code+"/start", map[string]any{
		"player_id": bobID, "pin": "2222",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	// Engine state rejection: no hand running.
	status, body = postJSON(t, ts, "/api/games/"+code+"/action", map[string]any{
		"player_id": aliceID, "pin": "1111", "action": "fold",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_state", body["error"])

	// Malformed action tag.
	status, _ = postJSON(t, ts, "/api/games/"+code+"/action", map[string]any{
		"player_id": aliceID, "pin": "1111", "action": "jam",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Malformed body.
	resp, err := http.Post(ts.URL+"/api/games", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthzAndMetrics(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, body := getJSON(t, ts, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	// A request so the counters have a sample.
	createGame(t, ts)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), "poker_http_requests_total")
}

func TestListAndMetricsSummary(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	code, _, _ := createGame(t, ts)

	status, body := getJSON(t, ts, "/api/games")
	require.Equal(t, http.StatusOK, status)
	games := body["games"].([]any)
	require.Len(t, games, 1)
	assert.Equal(t, code, games[0].(map[string]any)["code"])

	status, summary := getJSON(t, ts, "/api/metrics/summary")
	require.Equal(t, http.StatusOK, status)
	created := summary["created"].(map[string]any)
	assert.EqualValues(t, 1, created["24h"])
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.Decode(data)
	require.NoError(t, err)
	return env
}

func TestWebSocketAttachPushesState(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	code, aliceID, _ := createGame(t, ts)

	conn := dialWS(t, ts, "/ws/"+code+"/"+aliceID+"?pin=1111")

	// Attach order: connection_info from the registry, then the lobby
	// snapshot.
	types := map[string]bool{}
	for i := 0; i < 2; i++ {
		types[readFrame(t, conn).Type] = true
	}
	assert.True(t, types[protocol.TypeConnectionInfo])
	assert.True(t, types[protocol.TypeLobbyState])

	// A lobby mutation reaches the attached socket.
	status, _ := postJSON(t, ts, "/api/games/"+code+"/ready", map[string]any{
		"player_id": aliceID, "pin": "1111",
	})
	require.Equal(t, http.StatusOK, status)
	env := readFrame(t, conn)
	assert.Equal(t, protocol.TypeLobbyState, env.Type)
}

func TestWebSocketRejectsBadPIN(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	code, aliceID, _ := createGame(t, ts)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + code + "/" + aliceID + "?pin=0000"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketSpectatorAttach(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	code, _, _ := createGame(t, ts)

	conn := dialWS(t, ts, "/ws/"+code+"/spectator")
	types := map[string]bool{}
	for i := 0; i < 2; i++ {
		types[readFrame(t, conn).Type] = true
	}
	assert.True(t, types[protocol.TypeLobbyState])
}
