package game

import (
	"log"
	"time"

	"github.com/luca-ts/impostor-backend/internal"
	"github.com/luca-ts/impostor-backend/internal/utils"
)

// =============================================================================
// GAME PHASE STATE MACHINE
// =============================================================================

// startVotingDelay gives clients a beat to render the final round2 word
// before the voting screen appears.
const startVotingDelay = 1500 * time.Millisecond

// handleToggleImpostorGuess flips the house rule. Owner only, lobby phase
// only; anything else is silently ignored.
func (e *Engine) handleToggleImpostorGuess(lobby *internal.Lobby, part *internal.Participant, enabled bool) {
	if lobby.OwnerId != part.Id || lobby.Phase != internal.PhaseLobby {
		return
	}
	lobby.ImpostorGuessOption = enabled
	log.Printf("[Engine.handleToggleImpostorGuess] lobby=%s: impostor guess option=%v", lobby.Id, enabled)
	e.broadcastLobbyUpdate(lobby)
	e.publishDirectoryIfChanged()
}

// handleStartGame begins a game at the owner's request.
func (e *Engine) handleStartGame(lobby *internal.Lobby, part *internal.Participant) {
	if lobby.OwnerId != part.Id || lobby.Phase != internal.PhaseLobby {
		return
	}
	if lobby.ConnectedPlayerCount() < internal.MinPlayersToStart {
		e.sendTo(part, internal.EventError, internal.ErrorData{Message: "at least 3 connected players are needed to start"})
		return
	}
	e.beginGame(lobby)
}

// beginGame assigns roles, draws a word pair, and enters round1. Callers
// have already verified the player count.
func (e *Engine) beginGame(lobby *internal.Lobby) {
	lobby.ResetGame()

	pair := lobby.Pool.Draw(e.words, e.rng)
	lobby.Word = pair.Word
	lobby.Hint = pair.Hint

	// Every player gets a role; the impostor is drawn among the connected.
	connected := make([]*internal.Participant, 0, len(lobby.Players))
	for _, p := range lobby.Players {
		p.Role = internal.RoleCivilian
		if p.Connected() {
			connected = append(connected, p)
		}
	}
	impostor := connected[e.rng.Intn(len(connected))]
	impostor.Role = internal.RoleImpostor

	lobby.Phase = internal.PhaseRound1
	lobby.Turn = lobby.FirstConnectedPlayer()

	log.Printf("[Engine.beginGame] lobby=%s: game started, %d players, impostor=%s",
		lobby.Id, len(lobby.Players), impostor.Name)

	for _, p := range lobby.Players {
		e.sendGameStart(lobby, p)
	}
	for _, s := range lobby.Spectators {
		e.sendGameStart(lobby, s)
	}

	e.armTurnTimer(lobby)
	e.broadcastTurnUpdate(lobby, false)
	e.publishDirectoryIfChanged()
}

// sendGameStart delivers the per-participant view of the new game: the
// impostor sees only the hint, everyone else sees the word.
func (e *Engine) sendGameStart(lobby *internal.Lobby, p *internal.Participant) {
	data := internal.GameStartData{Role: p.Role, PlayerName: p.Name}
	if p.Role == internal.RoleImpostor {
		data.Hint = lobby.Hint
	} else {
		data.Word = lobby.Word
	}
	e.sendTo(p, internal.EventGameStart, data)
}

// handleSubmitWord records the current-turn player's word. Submissions from
// anyone else are silently ignored.
func (e *Engine) handleSubmitWord(lobby *internal.Lobby, part *internal.Participant, word string) {
	current := lobby.CurrentPlayer()
	if current == nil || current.Id != part.Id {
		return
	}
	word = utils.SanitizeWord(word, internal.MaxWordLength)
	if word == "" {
		// Sanitation left nothing; no state change, the turn timer keeps running.
		return
	}
	e.recordSubmission(lobby, part.Name, word, false)
}

// recordSubmission appends an entry to the active round and advances the
// machine: next connected player, or the next phase when the round's entry
// count reaches the connected-player count.
func (e *Engine) recordSubmission(lobby *internal.Lobby, playerName, word string, timedOut bool) {
	entry := internal.SubmissionEntry{PlayerName: playerName, Word: word}
	switch lobby.Phase {
	case internal.PhaseRound1:
		lobby.Round1 = append(lobby.Round1, entry)
	case internal.PhaseRound2:
		lobby.Round2 = append(lobby.Round2, entry)
	default:
		return
	}
	e.cancelTurnTimer(lobby)

	if len(lobby.CurrentRound()) >= lobby.ConnectedPlayerCount() {
		e.completeRound(lobby, timedOut)
		return
	}

	next := lobby.NextConnectedAfter(lobby.Turn)
	if next == -1 {
		// Nobody connected to take the turn; a later trigger retries.
		log.Printf("[Engine.recordSubmission] lobby=%s: no connected player to rotate to", lobby.Id)
		return
	}
	lobby.Turn = next
	e.armTurnTimer(lobby)
	e.broadcastTurnUpdate(lobby, timedOut)
}

// completeRound moves round1→round2 or round2→voting.
func (e *Engine) completeRound(lobby *internal.Lobby, timedOut bool) {
	e.cancelTurnTimer(lobby)

	if lobby.Phase == internal.PhaseRound1 {
		lobby.Phase = internal.PhaseRound2
		lobby.Turn = lobby.FirstConnectedPlayer()
		if lobby.Turn == -1 {
			lobby.Turn = 0
			e.broadcastTurnUpdate(lobby, timedOut)
			return
		}
		e.armTurnTimer(lobby)
		e.broadcastTurnUpdate(lobby, timedOut)
		return
	}

	e.enterVoting(lobby, timedOut)
}

// enterVoting switches the lobby to the voting phase. The startVoting event
// follows after a short delay.
func (e *Engine) enterVoting(lobby *internal.Lobby, timedOut bool) {
	lobby.Phase = internal.PhaseVoting
	for _, p := range lobby.Players {
		p.Vote = ""
	}
	e.broadcastTurnUpdate(lobby, timedOut)

	names := make([]string, 0, len(lobby.Players))
	for _, p := range lobby.Players {
		if p.Role != internal.RoleNone {
			names = append(names, p.Name)
		}
	}
	lobbyId := lobby.Id
	time.AfterFunc(startVotingDelay, func() {
		e.Do(func() {
			l := e.registry.Get(lobbyId)
			if l == nil || l.Phase != internal.PhaseVoting {
				return
			}
			e.broadcastLobby(l, internal.EventStartVoting, internal.StartVotingData{Players: names})
		})
	})
	log.Printf("[Engine.enterVoting] lobby=%s: both rounds complete, voting open", lobby.Id)
}

// onTurnTimeout force-skips the current player with an empty submission.
func (e *Engine) onTurnTimeout(lobbyId string, seq int64) {
	lobby := e.registry.Get(lobbyId)
	if lobby == nil || lobby.TimerSeq != seq {
		return
	}
	if lobby.Phase != internal.PhaseRound1 && lobby.Phase != internal.PhaseRound2 {
		return
	}
	current := lobby.CurrentPlayer()
	if current == nil {
		return
	}
	log.Printf("[Engine.onTurnTimeout] lobby=%s: %s ran out of time", lobby.Id, current.Name)
	e.recordSubmission(lobby, current.Name, "", true)
}

// forceEndGame ends a game early with no winner (abandonment paths).
func (e *Engine) forceEndGame(lobby *internal.Lobby, reason internal.EndReason) {
	log.Printf("[Engine.forceEndGame] lobby=%s: game ended early (%s)", lobby.Id, reason)

	e.cancelTurnTimer(lobby)
	e.cancelGuessTimer(lobby)
	e.clearGraceWindows(lobby)

	data := internal.GameEndEarlyData{
		Roles:      e.roleReveal(lobby),
		SecretWord: lobby.Word,
		Hint:       lobby.Hint,
		Winner:     internal.WinnerNone,
		Reason:     reason,
	}
	lobby.Phase = internal.PhaseResults
	e.broadcastLobby(lobby, internal.EventGameEndEarly, data)
	e.archiveGame(lobby, internal.WinnerNone, reason, nil)
}

// finishGame ends a game normally and announces the winner.
func (e *Engine) finishGame(lobby *internal.Lobby, winner internal.Winner, votes map[string]string, guess string, guessCorrect *bool) {
	log.Printf("[Engine.finishGame] lobby=%s: winner=%s", lobby.Id, winner)

	e.cancelTurnTimer(lobby)
	e.cancelGuessTimer(lobby)
	e.clearGraceWindows(lobby)

	data := internal.GameEndData{
		Roles:                e.roleReveal(lobby),
		Votes:                votes,
		SecretWord:           lobby.Word,
		Hint:                 lobby.Hint,
		Winner:               winner,
		ImpostorGuess:        guess,
		ImpostorGuessCorrect: guessCorrect,
	}
	lobby.Phase = internal.PhaseResults
	e.broadcastLobby(lobby, internal.EventGameEnd, data)
	e.archiveGame(lobby, winner, "", votes)
}

func (e *Engine) roleReveal(lobby *internal.Lobby) map[string]internal.Role {
	roles := make(map[string]internal.Role)
	for _, p := range lobby.Players {
		if p.Role != internal.RoleNone {
			roles[p.Name] = p.Role
		}
	}
	for _, s := range lobby.Spectators {
		if s.Role != internal.RoleNone {
			roles[s.Name] = s.Role
		}
	}
	return roles
}

// =============================================================================
// RESTART
// =============================================================================

// handleRestart is a ready-up from a player, or a wants-to-join flag from a
// spectator, during the results phase.
func (e *Engine) handleRestart(lobby *internal.Lobby, part *internal.Participant) {
	if lobby.Phase != internal.PhaseResults {
		return
	}
	if part.IsSpectator {
		part.WantsToJoinNextGame = true
		e.broadcastRestartUpdate(lobby)
		return
	}
	if part.Role == internal.RoleNone {
		return
	}
	lobby.RestartReady[part.Id] = true
	e.broadcastRestartUpdate(lobby)
	e.checkRestart(lobby)
}

// checkRestart starts the next game once every connected player who held a
// role has readied up.
func (e *Engine) checkRestart(lobby *internal.Lobby) {
	if lobby.Phase != internal.PhaseResults {
		return
	}
	total := lobby.RoledPlayerCount()
	ready := 0
	for _, p := range lobby.Players {
		if p.Role != internal.RoleNone && p.Connected() && lobby.RestartReady[p.Id] {
			ready++
		}
	}
	if total == 0 || ready < total {
		return
	}

	e.promoteSpectators(lobby)

	if lobby.ConnectedPlayerCount() < internal.MinPlayersToStart {
		// Not enough seats for another game; fall back to the lobby screen.
		log.Printf("[Engine.checkRestart] lobby=%s: not enough players to restart, returning to lobby", lobby.Id)
		lobby.ResetGame()
		lobby.Phase = internal.PhaseLobby
		e.broadcastLobbyUpdate(lobby)
		e.publishDirectoryIfChanged()
		return
	}
	e.beginGame(lobby)
}

// promoteSpectators converts every spectator who flagged wantsToJoinNextGame
// into a player and clears the flags.
func (e *Engine) promoteSpectators(lobby *internal.Lobby) {
	remaining := lobby.Spectators[:0]
	for _, s := range lobby.Spectators {
		if s.WantsToJoinNextGame && len(lobby.Players) < internal.MaxPlayersPerLobby {
			s.WantsToJoinNextGame = false
			s.IsSpectator = false
			s.ResetGameState()
			lobby.Players = append(lobby.Players, s)
			log.Printf("[Engine.promoteSpectators] lobby=%s: %s joins the next game", lobby.Id, s.Name)
			continue
		}
		remaining = append(remaining, s)
	}
	lobby.Spectators = remaining
}

// =============================================================================
// ROSTER CHANGE RECONCILIATION
// =============================================================================

// onRosterChanged re-evaluates phase progress after any connect, disconnect,
// exit, or eviction: completion thresholds shrink and grow with the
// connected-player count, so a departure can finish a round or a vote, and a
// reconnect can resume an abandoned rotation.
func (e *Engine) onRosterChanged(lobby *internal.Lobby, now time.Time) {
	switch lobby.Phase {
	case internal.PhaseRound1, internal.PhaseRound2:
		e.checkGrace(lobby, now)
		if lobby.Phase != internal.PhaseRound1 && lobby.Phase != internal.PhaseRound2 {
			return
		}
		connected := lobby.ConnectedPlayerCount()
		if connected > 0 && len(lobby.CurrentRound()) >= connected {
			e.completeRound(lobby, false)
			return
		}
		e.resumeTurnIfStalled(lobby)
	case internal.PhaseVoting:
		e.checkGrace(lobby, now)
		if lobby.Phase == internal.PhaseVoting {
			e.resolveVotesIfComplete(lobby)
		}
	case internal.PhaseImpostorGuess:
		e.checkGrace(lobby, now)
	case internal.PhaseResults:
		e.broadcastRestartUpdate(lobby)
		e.checkRestart(lobby)
	}
}

// resumeTurnIfStalled reconciles the turn clock with the roster: it re-runs
// an abandoned rotation scan once a player is back, and hands out a fresh
// clock when a removal shifted the awaited seat under a pending timer.
func (e *Engine) resumeTurnIfStalled(lobby *internal.Lobby) {
	if !lobby.TurnDeadline.IsZero() {
		current := lobby.CurrentPlayer()
		if current != nil && current.Id == lobby.TurnPlayerId {
			// The awaited player still holds the seat. A mere disconnect
			// leaves their timer running; expiry skips them.
			return
		}
		// The rotation moved while the old clock was still pending. The new
		// player must not inherit the leaver's deadline, and the stale timer
		// must never skip them.
		e.cancelTurnTimer(lobby)
	}
	idx := lobby.Turn
	if idx >= len(lobby.Players) || !lobby.Players[idx].Connected() {
		idx = lobby.NextConnectedAfter(lobby.Turn)
	}
	if idx == -1 {
		return
	}
	lobby.Turn = idx
	e.armTurnTimer(lobby)
	e.broadcastTurnUpdate(lobby, false)
}
