package internal

import (
	"strings"
	"time"
)

// Methods (Lobby struct)

// FindParticipant looks up a participant by id among players and spectators.
func (l *Lobby) FindParticipant(id string) *Participant {
	for _, p := range l.Players {
		if p.Id == id {
			return p
		}
	}
	for _, s := range l.Spectators {
		if s.Id == id {
			return s
		}
	}
	return nil
}

// FindPlayerByName matches a player by display name, case-insensitively.
func (l *Lobby) FindPlayerByName(name string) *Participant {
	for _, p := range l.Players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// NameTaken reports whether any participant already uses the display name.
func (l *Lobby) NameTaken(name string) bool {
	for _, p := range l.Players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	for _, s := range l.Spectators {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

func (l *Lobby) ConnectedPlayerCount() int {
	count := 0
	for _, p := range l.Players {
		if p.Connected() {
			count++
		}
	}
	return count
}

func (l *Lobby) SpectatorCount() int {
	return len(l.Spectators)
}

func (l *Lobby) IsEmpty() bool {
	return len(l.Players) == 0 && len(l.Spectators) == 0
}

func (l *Lobby) Owner() *Participant {
	if l.OwnerId == "" {
		return nil
	}
	return l.FindParticipant(l.OwnerId)
}

// CurrentPlayer returns the player whose submission is awaited, or nil
// outside round1/round2.
func (l *Lobby) CurrentPlayer() *Participant {
	if l.Phase != PhaseRound1 && l.Phase != PhaseRound2 {
		return nil
	}
	if l.Turn < 0 || l.Turn >= len(l.Players) {
		return nil
	}
	return l.Players[l.Turn]
}

// FirstConnectedPlayer returns the index of the first connected player in
// rotation order, or -1 when nobody is connected.
func (l *Lobby) FirstConnectedPlayer() int {
	for i, p := range l.Players {
		if p.Connected() {
			return i
		}
	}
	return -1
}

// NextConnectedAfter scans circularly from (from+1) for a connected player.
// Returns -1 after a full fruitless cycle; the caller abandons the advance
// and a later trigger retries it.
func (l *Lobby) NextConnectedAfter(from int) int {
	n := len(l.Players)
	if n == 0 {
		return -1
	}
	for step := 1; step <= n; step++ {
		idx := (from + step) % n
		if l.Players[idx].Connected() {
			return idx
		}
	}
	return -1
}

// CurrentRound returns the submission list being filled, or nil outside
// the two word rounds.
func (l *Lobby) CurrentRound() []SubmissionEntry {
	switch l.Phase {
	case PhaseRound1:
		return l.Round1
	case PhaseRound2:
		return l.Round2
	}
	return nil
}

func (l *Lobby) Impostor() *Participant {
	for _, p := range l.Players {
		if p.Role == RoleImpostor {
			return p
		}
	}
	for _, s := range l.Spectators {
		if s.Role == RoleImpostor {
			return s
		}
	}
	return nil
}

// RoledPlayerCount counts players who took part in the last game; this is
// the restart ready-up denominator, restricted to connected seats.
func (l *Lobby) RoledPlayerCount() int {
	count := 0
	for _, p := range l.Players {
		if p.Role != RoleNone && p.Connected() {
			count++
		}
	}
	return count
}

// EveryConnectedPlayerVoted reports whether vote resolution should trigger.
func (l *Lobby) EveryConnectedPlayerVoted() bool {
	voters := 0
	for _, p := range l.Players {
		if !p.Connected() {
			continue
		}
		voters++
		if p.Vote == "" {
			return false
		}
	}
	return voters > 0
}

// RemovePlayer drops a player from the roster, keeping the turn index
// pointed at the same seat where possible.
func (l *Lobby) RemovePlayer(id string) {
	for i, p := range l.Players {
		if p.Id != id {
			continue
		}
		l.Players = append(l.Players[:i], l.Players[i+1:]...)
		if l.Turn > i {
			l.Turn--
		} else if l.Turn >= len(l.Players) {
			l.Turn = 0
		}
		return
	}
}

func (l *Lobby) RemoveSpectator(id string) {
	for i, s := range l.Spectators {
		if s.Id == id {
			l.Spectators = append(l.Spectators[:i], l.Spectators[i+1:]...)
			return
		}
	}
}

// ResetGame returns the lobby to a no-game state, clearing per-game fields
// on every participant. Pool state is kept: no word repeats until exhausted.
func (l *Lobby) ResetGame() {
	l.Word = ""
	l.Hint = ""
	l.Turn = 0
	l.Round1 = nil
	l.Round2 = nil
	l.RestartReady = make(map[string]bool)
	l.LastEjected = ""
	l.ImpostorMissingSince = time.Time{}
	l.BelowMinSince = time.Time{}
	for _, p := range l.Players {
		p.ResetGameState()
	}
	for _, s := range l.Spectators {
		s.ResetGameState()
	}
}
