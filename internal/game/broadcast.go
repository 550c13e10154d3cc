package game

import (
	"context"
	"log"
	"time"

	"github.com/luca-ts/impostor-backend/internal"
)

// =============================================================================
// OUTBOUND FAN-OUT
// =============================================================================

// send writes one typed event to a socket. Send errors are logged and
// otherwise ignored; a broken socket announces itself through Unregister.
func (e *Engine) send(conn internal.Conn, eventType string, data any) {
	if conn == nil || !conn.Open() {
		return
	}
	if err := conn.Send(internal.Message[any]{Type: eventType, Data: data}); err != nil {
		log.Printf("[Engine.send] failed to send %q: %v", eventType, err)
	}
}

// sendTo delivers an event to a participant's current socket, if any.
func (e *Engine) sendTo(part *internal.Participant, eventType string, data any) {
	if part.Connected() {
		e.send(part.Conn, eventType, data)
	}
}

// broadcastLobby fans an event out to every connected participant in the
// lobby, spectators included.
func (e *Engine) broadcastLobby(lobby *internal.Lobby, eventType string, data any) {
	for _, p := range lobby.Players {
		e.sendTo(p, eventType, data)
	}
	for _, s := range lobby.Spectators {
		e.sendTo(s, eventType, data)
	}
}

// broadcastLobbyUpdate publishes the current roster snapshot.
func (e *Engine) broadcastLobbyUpdate(lobby *internal.Lobby) {
	data := internal.LobbyUpdateData{
		Players:             participantSummaries(lobby.Players),
		Spectators:          participantSummaries(lobby.Spectators),
		Phase:               lobby.Phase,
		ImpostorGuessOption: lobby.ImpostorGuessOption,
	}
	if owner := lobby.Owner(); owner != nil {
		data.Owner = owner.Name
	}
	e.broadcastLobby(lobby, internal.EventLobbyUpdate, data)
}

func participantSummaries(parts []*internal.Participant) []internal.ParticipantSummary {
	out := make([]internal.ParticipantSummary, 0, len(parts))
	for _, p := range parts {
		out = append(out, internal.ParticipantSummary{Name: p.Name, Connected: p.Connected()})
	}
	return out
}

// broadcastTurnUpdate publishes round progress plus whose turn it is and
// when that turn expires.
func (e *Engine) broadcastTurnUpdate(lobby *internal.Lobby, timedOut bool) {
	e.broadcastLobby(lobby, internal.EventTurnUpdate, e.turnUpdateData(lobby, timedOut))
}

func (e *Engine) turnUpdateData(lobby *internal.Lobby, timedOut bool) internal.TurnUpdateData {
	data := internal.TurnUpdateData{
		Phase:           lobby.Phase,
		Round1:          lobby.Round1,
		Round2:          lobby.Round2,
		TimeoutOccurred: timedOut,
	}
	if current := lobby.CurrentPlayer(); current != nil {
		data.CurrentPlayer = current.Name
	}
	if !lobby.TurnDeadline.IsZero() {
		data.TurnEndsAt = lobby.TurnDeadline.UnixMilli()
	}
	return data
}

// broadcastRestartUpdate publishes ready-up progress during results.
func (e *Engine) broadcastRestartUpdate(lobby *internal.Lobby) {
	total := lobby.RoledPlayerCount()
	ready := 0
	for _, p := range lobby.Players {
		if p.Role != internal.RoleNone && lobby.RestartReady[p.Id] {
			ready++
		}
	}
	wanting := 0
	for _, s := range lobby.Spectators {
		if s.WantsToJoinNextGame {
			wanting++
		}
	}
	e.broadcastLobby(lobby, internal.EventRestartUpdate, internal.RestartUpdateData{
		ReadyCount:              ready,
		TotalPlayers:            total,
		SpectatorsWantingToJoin: wanting,
	})
}

// =============================================================================
// RECONNECT RESYNC
// =============================================================================

// sendStateSnapshot replays enough events to bring a freshly attached socket
// up to the lobby's current phase, so reconnecting mid-game lands on the
// right screen instead of the lobby.
func (e *Engine) sendStateSnapshot(lobby *internal.Lobby, part *internal.Participant) {
	switch lobby.Phase {
	case internal.PhaseRound1, internal.PhaseRound2:
		e.sendGameStart(lobby, part)
		e.sendTo(part, internal.EventTurnUpdate, e.turnUpdateData(lobby, false))
	case internal.PhaseVoting:
		e.sendGameStart(lobby, part)
		e.sendTo(part, internal.EventTurnUpdate, e.turnUpdateData(lobby, false))
		names := make([]string, 0, len(lobby.Players))
		for _, p := range lobby.Players {
			if p.Role != internal.RoleNone {
				names = append(names, p.Name)
			}
		}
		e.sendTo(part, internal.EventStartVoting, internal.StartVotingData{Players: names})
	case internal.PhaseImpostorGuess:
		e.sendGameStart(lobby, part)
		data := internal.ImpostorGuessPhaseData{
			Ejected:    lobby.LastEjected,
			IsImpostor: part.Role == internal.RoleImpostor,
		}
		if !lobby.GuessDeadline.IsZero() {
			data.GuessEndsAt = lobby.GuessDeadline.UnixMilli()
		}
		e.sendTo(part, internal.EventImpostorGuessPhase, data)
	case internal.PhaseResults:
		e.broadcastRestartUpdate(lobby)
	}
}

// =============================================================================
// LOBBY DIRECTORY
// =============================================================================

// publishDirectoryIfChanged pushes the public lobby list to every socket,
// but only when it differs from the last published snapshot.
func (e *Engine) publishDirectoryIfChanged() {
	current := e.registry.ListPublic()
	if directoriesEqual(e.lastDirectory, current) {
		return
	}
	e.lastDirectory = current
	for conn := range e.sessions {
		e.send(conn, internal.EventLobbyList, internal.LobbyListData{Lobbies: current})
	}
}

func directoriesEqual(a, b []internal.LobbySummary) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// RESULT ARCHIVING
// =============================================================================

// archiveGame hands the finished game to the archive store, when one is
// configured. Runs off the engine loop; a failed insert only logs.
func (e *Engine) archiveGame(lobby *internal.Lobby, winner internal.Winner, reason internal.EndReason, votes map[string]string) {
	if e.record == nil {
		return
	}
	rec := GameRecord{
		LobbyId:    lobby.Id,
		SecretWord: lobby.Word,
		Hint:       lobby.Hint,
		Winner:     winner,
		Reason:     reason,
		Roles:      e.roleReveal(lobby),
		Votes:      votes,
		EndedAt:    time.Now(),
	}
	record := e.record
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := record(ctx, rec); err != nil {
			log.Printf("[Engine.archiveGame] lobby=%s: failed to archive game: %v", rec.LobbyId, err)
		}
	}()
}
