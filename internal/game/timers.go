package game

import (
	"log"
	"time"

	"github.com/luca-ts/impostor-backend/internal"
)

// =============================================================================
// TIMER SUBSYSTEM
// =============================================================================
//
// Each deadline family keeps at most one pending timer per lobby: arming
// always replaces the previous timer of the same family. Deadlines are
// stored as absolute timestamps so clients compute remaining time without
// caring about round-trip latency. Callbacks re-enter the engine loop and
// validate TimerSeq, so a timer that lost the race to a phase transition
// becomes a no-op.

// armTurnTimer starts the per-turn deadline for the current player.
// TurnPlayerId records who the clock belongs to, so a roster removal that
// shifts the rotation under a pending timer can be detected.
func (e *Engine) armTurnTimer(lobby *internal.Lobby) {
	e.cancelTurnTimer(lobby)
	lobby.TimerSeq++
	seq := lobby.TimerSeq
	lobby.TurnDeadline = time.Now().Add(internal.TurnDuration)
	if current := lobby.CurrentPlayer(); current != nil {
		lobby.TurnPlayerId = current.Id
	}

	lobbyId := lobby.Id
	lobby.TurnTimer = time.AfterFunc(internal.TurnDuration, func() {
		e.Do(func() { e.onTurnTimeout(lobbyId, seq) })
	})
}

func (e *Engine) cancelTurnTimer(lobby *internal.Lobby) {
	if lobby.TurnTimer != nil {
		lobby.TurnTimer.Stop()
		lobby.TurnTimer = nil
	}
	lobby.TurnDeadline = time.Time{}
	lobby.TurnPlayerId = ""
	lobby.TimerSeq++
}

// armGuessTimer starts the impostor-guess deadline.
func (e *Engine) armGuessTimer(lobby *internal.Lobby) {
	e.cancelGuessTimer(lobby)
	lobby.TimerSeq++
	seq := lobby.TimerSeq
	lobby.GuessDeadline = time.Now().Add(internal.ImpostorGuessDuration)

	lobbyId := lobby.Id
	lobby.GuessTimer = time.AfterFunc(internal.ImpostorGuessDuration, func() {
		e.Do(func() { e.onGuessTimeout(lobbyId, seq) })
	})
}

func (e *Engine) cancelGuessTimer(lobby *internal.Lobby) {
	if lobby.GuessTimer != nil {
		lobby.GuessTimer.Stop()
		lobby.GuessTimer = nil
	}
	lobby.GuessDeadline = time.Time{}
	lobby.TimerSeq++
}

// =============================================================================
// DISCONNECT GRACE PERIODS
// =============================================================================

// checkGrace maintains the two abandonment windows: impostor gone, and
// fewer than MinPlayersToStart connected. Each is a last-observed
// timestamp; a condition persisting past DisconnectGrace force-ends the
// game. Called from the sweep and from every connect/disconnect event.
func (e *Engine) checkGrace(lobby *internal.Lobby, now time.Time) {
	if !lobby.Phase.InGame() {
		e.clearGraceWindows(lobby)
		return
	}

	impostor := lobby.Impostor()
	if impostor == nil || !impostor.Connected() {
		if lobby.ImpostorMissingSince.IsZero() {
			lobby.ImpostorMissingSince = now
			log.Printf("[Engine.checkGrace] lobby=%s: impostor offline, grace window open", lobby.Id)
		} else if now.Sub(lobby.ImpostorMissingSince) > internal.DisconnectGrace {
			e.forceEndGame(lobby, internal.ReasonImpostorLeft)
			return
		}
	} else {
		lobby.ImpostorMissingSince = time.Time{}
	}

	if lobby.ConnectedPlayerCount() < internal.MinPlayersToStart {
		if lobby.BelowMinSince.IsZero() {
			lobby.BelowMinSince = now
			log.Printf("[Engine.checkGrace] lobby=%s: below %d connected players, grace window open",
				lobby.Id, internal.MinPlayersToStart)
		} else if now.Sub(lobby.BelowMinSince) > internal.DisconnectGrace {
			e.forceEndGame(lobby, internal.ReasonNotEnoughPlayers)
		}
	} else {
		lobby.BelowMinSince = time.Time{}
	}
}

func (e *Engine) clearGraceWindows(lobby *internal.Lobby) {
	lobby.ImpostorMissingSince = time.Time{}
	lobby.BelowMinSince = time.Time{}
}
