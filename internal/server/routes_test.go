package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-ts/impostor-backend/internal"
	"github.com/luca-ts/impostor-backend/internal/config"
	"github.com/luca-ts/impostor-backend/internal/game"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	words := []internal.WordPair{{Word: "volcano", Hint: "mountain"}}
	engine := game.NewEngine(words, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Run(ctx)

	return NewServer(config.Config{Port: "0", AllowedOrigin: "*"}, engine)
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.RegisterRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHelloHandlerReportsServerId(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.RegisterRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, srv.engine.ServerId(), body["serverId"])
}

func TestListLobbiesHandlerEmpty(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.RegisterRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lobbies", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body internal.LobbyListData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Lobbies)
}

func TestWebSocketOriginCheck(t *testing.T) {
	words := []internal.WordPair{{Word: "volcano", Hint: "mountain"}}
	engine := game.NewEngine(words, nil)
	srv := NewServer(config.Config{Port: "0", AllowedOrigin: "https://game.example"}, engine)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, srv.checkOrigin(req), "non-browser clients send no Origin header")

	req.Header.Set("Origin", "https://game.example")
	assert.True(t, srv.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, srv.checkOrigin(req))

	wildcard := NewServer(config.Config{Port: "0", AllowedOrigin: "*"}, engine)
	assert.True(t, wildcard.checkOrigin(req))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.RegisterRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/lobbies", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
