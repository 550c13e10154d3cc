package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luca-ts/impostor-backend/internal"
)

var testWords = []internal.WordPair{
	{Word: "volcano", Hint: "mountain"},
	{Word: "penguin", Hint: "animal"},
	{Word: "guitar", Hint: "instrument"},
}

// fakeConn records every message the engine sends on it.
type fakeConn struct {
	open bool
	sent []internal.Message[any]
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true}
}

func (c *fakeConn) Send(v any) error {
	msg, ok := v.(internal.Message[any])
	if !ok {
		panic("fakeConn: unexpected payload type")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Open() bool { return c.open }
func (c *fakeConn) Close()     { c.open = false }

// lastEvent returns the most recent message of the given type, or nil.
func (c *fakeConn) lastEvent(eventType string) *internal.Message[any] {
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].Type == eventType {
			return &c.sent[i]
		}
	}
	return nil
}

func (c *fakeConn) countEvents(eventType string) int {
	n := 0
	for _, msg := range c.sent {
		if msg.Type == eventType {
			n++
		}
	}
	return n
}

// joinPlayer attaches a fresh socket and joins it to the lobby as a player.
func joinPlayer(t *testing.T, e *Engine, lobbyId, playerId, name string) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	e.attachConn(conn)
	e.dispatch(conn, internal.Inbound{
		Type:     internal.ActionJoinLobby,
		PlayerId: playerId,
		Name:     name,
		LobbyId:  lobbyId,
	})
	require.NotNil(t, conn.lastEvent(internal.EventLobbyAssigned))
	return conn
}

// startThreePlayerGame joins alice, bob and carol and starts the game.
// Returns the lobby and the conns keyed by player id.
func startThreePlayerGame(t *testing.T, e *Engine) (*internal.Lobby, map[string]*fakeConn) {
	t.Helper()
	conns := map[string]*fakeConn{
		"p1": joinPlayer(t, e, "GAME", "p1", "alice"),
		"p2": joinPlayer(t, e, "GAME", "p2", "bob"),
		"p3": joinPlayer(t, e, "GAME", "p3", "carol"),
	}
	lobby := e.registry.Get("GAME")
	require.NotNil(t, lobby)

	e.dispatch(conns["p1"], internal.Inbound{Type: internal.ActionStartGame})
	require.Equal(t, internal.PhaseRound1, lobby.Phase)
	return lobby, conns
}

// submitCurrent submits a word from whichever player holds the turn.
func submitCurrent(t *testing.T, e *Engine, lobby *internal.Lobby, conns map[string]*fakeConn, word string) {
	t.Helper()
	current := lobby.CurrentPlayer()
	require.NotNil(t, current)
	e.dispatch(conns[current.Id], internal.Inbound{Type: internal.ActionSubmitWord, Word: word})
}

// playBothRounds submits one word per connected player per round.
func playBothRounds(t *testing.T, e *Engine, lobby *internal.Lobby, conns map[string]*fakeConn) {
	t.Helper()
	for lobby.Phase == internal.PhaseRound1 || lobby.Phase == internal.PhaseRound2 {
		submitCurrent(t, e, lobby, conns, "clue")
	}
	require.Equal(t, internal.PhaseVoting, lobby.Phase)
}
