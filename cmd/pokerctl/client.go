package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jdstemmler/poker/internal/engine"
	"github.com/jdstemmler/poker/internal/protocol"
	"github.com/jdstemmler/poker/internal/session"
)

// apiClient is a thin REST client for the daemon.
type apiClient struct {
	base   string
	http   *http.Client
	logger *log.Logger
}

func newClient(cli *CLI) *apiClient {
	logger := log.New(os.Stderr)
	if cli.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return &apiClient{
		base:   strings.TrimRight(cli.Server, "/"),
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// wsURL converts the REST base URL into the WebSocket attach URL.
func (c *apiClient) wsURL(code, viewerID, pin string) string {
	base := strings.Replace(c.base, "http", "ws", 1)
	url := fmt.Sprintf("%s/ws/%s/%s", base, code, viewerID)
	if pin != "" {
		url += "?pin=" + pin
	}
	return url
}

// apiError is the daemon's error body.
type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reaching daemon at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type createResponse struct {
	Code     string              `json:"code"`
	PlayerID string              `json:"player_id"`
	Lobby    protocol.LobbyState `json:"lobby"`
}

func (c *apiClient) create(name, pin string, settings engine.Settings) (*createResponse, error) {
	var out createResponse
	err := c.do(http.MethodPost, "/api/games", map[string]any{
		"name": name, "pin": pin, "settings": settings,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type joinResponse struct {
	PlayerID    string              `json:"player_id"`
	Reconnected bool                `json:"reconnected"`
	Lobby       protocol.LobbyState `json:"lobby"`
}

func (c *apiClient) join(code, name, pin string) (*joinResponse, error) {
	var out joinResponse
	err := c.do(http.MethodPost, "/api/games/"+code+"/join", map[string]any{
		"name": name, "pin": pin,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) list() ([]session.GameSummary, error) {
	var out struct {
		Games []session.GameSummary `json:"games"`
	}
	if err := c.do(http.MethodGet, "/api/games", nil, &out); err != nil {
		return nil, err
	}
	return out.Games, nil
}

func (c *apiClient) metrics() (*session.MetricsSummary, error) {
	var out session.MetricsSummary
	if err := c.do(http.MethodGet, "/api/metrics/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
