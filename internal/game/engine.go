package game

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/luca-ts/impostor-backend/internal"
)

// =============================================================================
// ENGINE - COOPERATIVE EVENT LOOP
// =============================================================================

// GameRecord is the snapshot handed to the archive after a game ends.
type GameRecord struct {
	LobbyId    string
	SecretWord string
	Hint       string
	Winner     internal.Winner
	Reason     internal.EndReason
	Roles      map[string]internal.Role
	Votes      map[string]string
	EndedAt    time.Time
}

// RecordFunc archives a finished game. It runs on its own goroutine and its
// errors never reach lobby processing.
type RecordFunc func(ctx context.Context, rec GameRecord) error

// session tracks what the engine knows about one live socket. The epoch is
// the one the connection believed it had when it attached; a mismatch with
// the participant's current epoch marks the socket as superseded.
type session struct {
	conn     internal.Conn
	playerId string
	lobbyId  string
	epoch    int64
}

// Engine owns every lobby and processes exactly one inbound action or timer
// callback at a time. All state mutation happens on the Run goroutine, so
// lobby data needs no locking.
type Engine struct {
	serverId string
	words    []internal.WordPair
	registry *Registry
	sessions map[internal.Conn]*session

	commands chan func()
	rng      *rand.Rand
	record   RecordFunc

	// Last published public directory, for change detection.
	lastDirectory []internal.LobbySummary
}

func NewEngine(words []internal.WordPair, record RecordFunc) *Engine {
	return &Engine{
		serverId: uuid.NewString(),
		words:    words,
		registry: NewRegistry(),
		sessions: make(map[internal.Conn]*session),
		commands: make(chan func(), 256),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		record:   record,
	}
}

func (e *Engine) ServerId() string { return e.serverId }

// PublicDirectory returns the joinable-lobby list. Must be called from the
// engine loop (wrap in Do from other goroutines).
func (e *Engine) PublicDirectory() []internal.LobbySummary {
	return e.registry.ListPublic()
}

// Run processes commands until ctx is cancelled. The cleanup sweep shares
// the loop, so it can never race an inbound action.
func (e *Engine) Run(ctx context.Context) {
	sweeper := time.NewTicker(internal.SweepInterval)
	defer sweeper.Stop()

	log.Printf("[Engine.Run] serverId=%s: event loop started", e.serverId)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Engine.Run] serverId=%s: event loop stopped", e.serverId)
			return
		case fn := <-e.commands:
			fn()
		case <-sweeper.C:
			e.sweep(time.Now())
		}
	}
}

// Do enqueues fn onto the engine loop.
func (e *Engine) Do(fn func()) {
	e.commands <- fn
}

// =============================================================================
// TRANSPORT ENTRY POINTS
// =============================================================================

// Register is called by the transport once per new connection.
func (e *Engine) Register(conn internal.Conn) {
	e.Do(func() { e.attachConn(conn) })
}

// Unregister is called by the transport when a connection closes.
func (e *Engine) Unregister(conn internal.Conn) {
	e.Do(func() { e.handleDisconnect(conn) })
}

// HandleMessage is called by the transport with a parsed inbound action.
func (e *Engine) HandleMessage(conn internal.Conn, msg internal.Inbound) {
	e.Do(func() { e.dispatch(conn, msg) })
}

func (e *Engine) attachConn(conn internal.Conn) {
	e.sessions[conn] = &session{conn: conn}
	e.send(conn, internal.EventServerHello, internal.ServerHelloData{ServerId: e.serverId})
	e.send(conn, internal.EventLobbyList, internal.LobbyListData{Lobbies: e.registry.ListPublic()})
}

// dispatch validates an action against the session, resolves it to a lobby
// and participant, and routes it. Actions from superseded sockets are
// dropped without a reply.
func (e *Engine) dispatch(conn internal.Conn, msg internal.Inbound) {
	sess, ok := e.sessions[conn]
	if !ok {
		return
	}

	switch msg.Type {
	case internal.ActionPing:
		e.send(conn, internal.EventPong, struct{}{})
		return
	case internal.ActionGetLobbyList:
		e.send(conn, internal.EventLobbyList, internal.LobbyListData{Lobbies: e.registry.ListPublic()})
		return
	case internal.ActionJoinLobby:
		e.handleJoinLobby(sess, msg)
		return
	case internal.ActionJoinSpectator:
		e.handleJoinSpectator(sess, msg)
		return
	}

	// Everything below acts on the lobby the session already belongs to.
	lobby, part := e.resolve(sess)
	if lobby == nil || part == nil {
		return
	}
	if part.Epoch != sess.epoch {
		// Superseded by a fresher reconnect.
		log.Printf("[Engine.dispatch] lobby=%s: dropping %q from stale socket of %s", lobby.Id, msg.Type, part.Name)
		return
	}

	switch msg.Type {
	case internal.ActionExitLobby:
		e.handleExitLobby(sess, lobby, part)
	case internal.ActionToggleImpostorGuess:
		e.handleToggleImpostorGuess(lobby, part, msg.Enabled)
	case internal.ActionStartGame:
		e.handleStartGame(lobby, part)
	case internal.ActionSubmitWord:
		e.handleSubmitWord(lobby, part, msg.Word)
	case internal.ActionVote:
		e.handleVote(lobby, part, msg.Vote)
	case internal.ActionImpostorGuess:
		e.handleImpostorGuess(lobby, part, msg.Guess)
	case internal.ActionRestart:
		e.handleRestart(lobby, part)
	default:
		e.send(conn, internal.EventError, internal.ErrorData{Message: "unknown action"})
	}
}

func (e *Engine) resolve(sess *session) (*internal.Lobby, *internal.Participant) {
	if sess.lobbyId == "" {
		return nil, nil
	}
	lobby := e.registry.Get(sess.lobbyId)
	if lobby == nil {
		return nil, nil
	}
	return lobby, lobby.FindParticipant(sess.playerId)
}

// handleDisconnect reconciles a closed socket with its participant, leaving
// the seat occupied for the grace window.
func (e *Engine) handleDisconnect(conn internal.Conn) {
	sess, ok := e.sessions[conn]
	if !ok {
		return
	}
	delete(e.sessions, conn)

	lobby, part := e.resolve(sess)
	if lobby == nil || part == nil {
		return
	}
	if part.Epoch != sess.epoch {
		// A newer socket took over the seat; nothing to reconcile.
		return
	}

	now := time.Now()
	part.MarkDisconnected(now)
	log.Printf("[Engine.handleDisconnect] lobby=%s: %s disconnected (epoch=%d)", lobby.Id, part.Name, part.Epoch)

	e.broadcastLobbyUpdate(lobby)
	e.onRosterChanged(lobby, now)
	e.publishDirectoryIfChanged()
}
