package game

import (
	"log"
	"strings"

	"github.com/luca-ts/impostor-backend/internal"
)

// =============================================================================
// VOTE COLLECTION & RESOLUTION
// =============================================================================

// handleVote records one player's vote. Self-votes and out-of-phase votes
// are silently ignored.
func (e *Engine) handleVote(lobby *internal.Lobby, part *internal.Participant, target string) {
	if lobby.Phase != internal.PhaseVoting || part.IsSpectator || part.Role == internal.RoleNone {
		return
	}
	voted := lobby.FindPlayerByName(strings.TrimSpace(target))
	if voted == nil {
		return
	}
	if voted.Id == part.Id {
		// A player may not vote for themself.
		return
	}
	part.Vote = voted.Name
	log.Printf("[Engine.handleVote] lobby=%s: %s voted", lobby.Id, part.Name)
	e.resolveVotesIfComplete(lobby)
}

// resolveVotesIfComplete runs the tally the instant every currently
// connected player has a non-empty vote recorded.
func (e *Engine) resolveVotesIfComplete(lobby *internal.Lobby) {
	if lobby.Phase != internal.PhaseVoting || !lobby.EveryConnectedPlayerVoted() {
		return
	}

	votes := e.collectVotes(lobby)
	ejected, ok := ResolveEjection(TallyVotes(votes))
	if !ok {
		// A tie at the maximum nullifies the ejection; the impostor survives.
		log.Printf("[Engine.resolveVotesIfComplete] lobby=%s: vote tied, nobody ejected", lobby.Id)
		e.finishGame(lobby, internal.WinnerImpostor, votes, "", nil)
		return
	}

	lobby.LastEjected = ejected
	target := lobby.FindPlayerByName(ejected)
	if target == nil || target.Role != internal.RoleImpostor {
		log.Printf("[Engine.resolveVotesIfComplete] lobby=%s: %s ejected, impostor survives", lobby.Id, ejected)
		e.finishGame(lobby, internal.WinnerImpostor, votes, "", nil)
		return
	}

	if lobby.ImpostorGuessOption {
		e.enterImpostorGuess(lobby, ejected)
		return
	}
	log.Printf("[Engine.resolveVotesIfComplete] lobby=%s: impostor %s ejected", lobby.Id, ejected)
	e.finishGame(lobby, internal.WinnerCivilians, votes, "", nil)
}

func (e *Engine) collectVotes(lobby *internal.Lobby) map[string]string {
	votes := make(map[string]string)
	for _, p := range lobby.Players {
		if p.Vote != "" {
			votes[p.Name] = p.Vote
		}
	}
	return votes
}

// TallyVotes counts votes per voted-for display name.
func TallyVotes(votes map[string]string) map[string]int {
	tally := make(map[string]int)
	for _, target := range votes {
		tally[target]++
	}
	return tally
}

// ResolveEjection picks the strict plurality winner. Any multi-way tie at
// the maximum count means no one is ejected.
func ResolveEjection(tally map[string]int) (string, bool) {
	best := ""
	max := 0
	tied := false
	for name, count := range tally {
		switch {
		case count > max:
			best, max, tied = name, count, false
		case count == max:
			tied = true
		}
	}
	if best == "" || tied {
		return "", false
	}
	return best, true
}

// =============================================================================
// IMPOSTOR GUESS PHASE
// =============================================================================

// enterImpostorGuess gives the ejected impostor one chance to name the
// secret word within the guess deadline.
func (e *Engine) enterImpostorGuess(lobby *internal.Lobby, ejected string) {
	lobby.Phase = internal.PhaseImpostorGuess
	e.armGuessTimer(lobby)
	log.Printf("[Engine.enterImpostorGuess] lobby=%s: impostor %s may guess the word", lobby.Id, ejected)

	endsAt := lobby.GuessDeadline.UnixMilli()
	for _, p := range append(append([]*internal.Participant{}, lobby.Players...), lobby.Spectators...) {
		e.sendTo(p, internal.EventImpostorGuessPhase, internal.ImpostorGuessPhaseData{
			Ejected:     ejected,
			IsImpostor:  p.Role == internal.RoleImpostor,
			GuessEndsAt: endsAt,
		})
	}
}

// handleImpostorGuess resolves the guess case-insensitively against the
// secret word. Non-impostors are silently ignored.
func (e *Engine) handleImpostorGuess(lobby *internal.Lobby, part *internal.Participant, guess string) {
	if lobby.Phase != internal.PhaseImpostorGuess || part.Role != internal.RoleImpostor {
		return
	}
	guess = strings.TrimSpace(guess)
	correct := strings.EqualFold(guess, lobby.Word)
	winner := internal.WinnerCivilians
	if correct {
		winner = internal.WinnerImpostor
	}
	log.Printf("[Engine.handleImpostorGuess] lobby=%s: guess %q correct=%v", lobby.Id, guess, correct)
	e.finishGame(lobby, winner, e.collectVotes(lobby), guess, &correct)
}

// onGuessTimeout treats a missing guess as wrong; civilians win.
func (e *Engine) onGuessTimeout(lobbyId string, seq int64) {
	lobby := e.registry.Get(lobbyId)
	if lobby == nil || lobby.TimerSeq != seq || lobby.Phase != internal.PhaseImpostorGuess {
		return
	}
	log.Printf("[Engine.onGuessTimeout] lobby=%s: no guess before the deadline", lobby.Id)
	e.finishGame(lobby, internal.WinnerCivilians, e.collectVotes(lobby), "", nil)
}
