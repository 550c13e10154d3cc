package game

import (
	"log"
	"time"

	"github.com/luca-ts/impostor-backend/internal"
	"github.com/luca-ts/impostor-backend/internal/utils"
)

// =============================================================================
// IDENTITY & PRESENCE RECONCILIATION
// =============================================================================

const lobbyCodeLength = 4

// handleJoinLobby resolves a join request to a fresh seat, a returning
// player, or a mid-game reconnect. Unknown ids joining a running game are
// redirected to spectator admission.
func (e *Engine) handleJoinLobby(sess *session, msg internal.Inbound) {
	playerId := msg.PlayerId
	name := utils.SanitizeName(msg.Name, internal.MaxNameLength)
	if playerId == "" || name == "" {
		e.send(sess.conn, internal.EventError, internal.ErrorData{Message: "a player id and name are required"})
		return
	}

	now := time.Now()
	lobbyId := msg.LobbyId
	if lobbyId == "" {
		lobbyId = e.freshLobbyCode()
	}

	// A client may be a member of only one lobby at a time.
	e.removeFromAllLobbies(playerId, lobbyId, now)

	lobby := e.registry.Get(lobbyId)
	if lobby == nil {
		lobby = e.registry.Create(lobbyId, now)
	}

	existing := lobby.FindParticipant(playerId)
	if lobby.Phase == internal.PhaseLobby || lobby.Phase == internal.PhaseResults {
		if existing != nil {
			// Returning player; a spectator asking to play takes a seat.
			if existing.IsSpectator {
				lobby.RemoveSpectator(existing.Id)
				existing.IsSpectator = false
				existing.WantsToJoinNextGame = false
				lobby.Players = append(lobby.Players, existing)
			}
			e.attachParticipant(sess, lobby, existing, now)
			return
		}
		if len(lobby.Players) >= internal.MaxPlayersPerLobby {
			e.send(sess.conn, internal.EventError, internal.ErrorData{Message: "lobby is full"})
			return
		}
		part := e.newParticipant(lobby, playerId, name, false, now)
		lobby.Players = append(lobby.Players, part)
		if lobby.OwnerId == "" {
			lobby.OwnerId = part.Id
		}
		e.attachParticipant(sess, lobby, part, now)
		return
	}

	// Game in progress: known ids reconnect, unknown ids spectate.
	if existing != nil {
		e.attachParticipant(sess, lobby, existing, now)
		return
	}
	e.admitSpectator(sess, lobby, playerId, name, now)
}

// handleJoinSpectator admits a watcher into an existing lobby.
func (e *Engine) handleJoinSpectator(sess *session, msg internal.Inbound) {
	playerId := msg.PlayerId
	name := utils.SanitizeName(msg.Name, internal.MaxNameLength)
	if playerId == "" || name == "" {
		e.send(sess.conn, internal.EventError, internal.ErrorData{Message: "a player id and name are required"})
		return
	}

	now := time.Now()
	lobby := e.registry.Get(msg.LobbyId)
	if lobby == nil {
		e.send(sess.conn, internal.EventError, internal.ErrorData{Message: "lobby not found"})
		return
	}

	e.removeFromAllLobbies(playerId, lobby.Id, now)

	if existing := lobby.FindParticipant(playerId); existing != nil {
		e.attachParticipant(sess, lobby, existing, now)
		return
	}
	e.admitSpectator(sess, lobby, playerId, name, now)
}

func (e *Engine) admitSpectator(sess *session, lobby *internal.Lobby, playerId, name string, now time.Time) {
	part := e.newParticipant(lobby, playerId, name, true, now)
	lobby.Spectators = append(lobby.Spectators, part)
	e.attachParticipant(sess, lobby, part, now)
}

func (e *Engine) newParticipant(lobby *internal.Lobby, playerId, name string, spectator bool, now time.Time) *internal.Participant {
	return &internal.Participant{
		Id:          playerId,
		Name:        utils.DedupeName(name, lobby.NameTaken),
		IsSpectator: spectator,
		Status:      internal.StatusDisconnectedPending,
		JoinedAt:    now,
	}
}

// attachParticipant binds the session's socket to the seat, superseding any
// previous socket, and brings the client up to date.
func (e *Engine) attachParticipant(sess *session, lobby *internal.Lobby, part *internal.Participant, now time.Time) {
	epoch := part.Attach(sess.conn)
	sess.playerId = part.Id
	sess.lobbyId = lobby.Id
	sess.epoch = epoch

	log.Printf("[Engine.attachParticipant] lobby=%s: %s attached (spectator=%v epoch=%d)",
		lobby.Id, part.Name, part.IsSpectator, epoch)

	e.send(sess.conn, internal.EventLobbyAssigned, internal.LobbyAssignedData{
		LobbyId:             lobby.Id,
		IsSpectator:         part.IsSpectator,
		PlayerName:          part.Name,
		IsOwner:             lobby.OwnerId == part.Id,
		ImpostorGuessOption: lobby.ImpostorGuessOption,
	})

	e.broadcastLobbyUpdate(lobby)
	e.sendStateSnapshot(lobby, part)
	e.onRosterChanged(lobby, now)
	e.publishDirectoryIfChanged()
}

// handleExitLobby removes the participant at their own request.
func (e *Engine) handleExitLobby(sess *session, lobby *internal.Lobby, part *internal.Participant) {
	now := time.Now()
	e.removeFromLobby(lobby, part)
	sess.playerId = ""
	sess.lobbyId = ""

	e.send(sess.conn, internal.EventLobbyExited, struct{}{})
	log.Printf("[Engine.handleExitLobby] lobby=%s: %s left", lobby.Id, part.Name)

	if lobby.IsEmpty() {
		e.closeLobby(lobby, "")
	} else {
		e.broadcastLobbyUpdate(lobby)
		e.onRosterChanged(lobby, now)
	}
	e.publishDirectoryIfChanged()
}

// removeFromAllLobbies enforces single-lobby membership before any join.
func (e *Engine) removeFromAllLobbies(playerId, exceptLobbyId string, now time.Time) {
	for _, lobby := range e.registry.All() {
		if lobby.Id == exceptLobbyId {
			continue
		}
		part := lobby.FindParticipant(playerId)
		if part == nil {
			continue
		}
		if part.Connected() {
			e.sendTo(part, internal.EventLobbyExited, struct{}{})
		}
		e.removeFromLobby(lobby, part)
		log.Printf("[Engine.removeFromAllLobbies] lobby=%s: removed %s (joined elsewhere)", lobby.Id, part.Name)

		if lobby.IsEmpty() {
			e.closeLobby(lobby, "")
			continue
		}
		e.broadcastLobbyUpdate(lobby)
		e.onRosterChanged(lobby, now)
	}
}

// freshLobbyCode draws codes until one misses the registry.
func (e *Engine) freshLobbyCode() string {
	for {
		code := utils.GenerateCode(lobbyCodeLength, e.rng)
		if !e.registry.Has(code) {
			return code
		}
	}
}
