package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-ts/impostor-backend/internal"
)

func TestStartGameRequiresOwnerAndEnoughPlayers(t *testing.T) {
	e := NewEngine(testWords, nil)
	c1 := joinPlayer(t, e, "GAME", "p1", "alice")
	c2 := joinPlayer(t, e, "GAME", "p2", "bob")
	lobby := e.registry.Get("GAME")

	// Non-owner start is ignored.
	e.dispatch(c2, internal.Inbound{Type: internal.ActionStartGame})
	assert.Equal(t, internal.PhaseLobby, lobby.Phase)

	// Owner start with two players is rejected with an error.
	e.dispatch(c1, internal.Inbound{Type: internal.ActionStartGame})
	assert.Equal(t, internal.PhaseLobby, lobby.Phase)
	errEvent := c1.lastEvent(internal.EventError)
	require.NotNil(t, errEvent)

	joinPlayer(t, e, "GAME", "p3", "carol")
	e.dispatch(c1, internal.Inbound{Type: internal.ActionStartGame})
	assert.Equal(t, internal.PhaseRound1, lobby.Phase)
}

func TestGameStartRoleViews(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	impostor := lobby.Impostor()
	require.NotNil(t, impostor)

	for _, p := range lobby.Players {
		start := conns[p.Id].lastEvent(internal.EventGameStart)
		require.NotNil(t, start)
		data := start.Data.(internal.GameStartData)
		if p.Id == impostor.Id {
			assert.Equal(t, internal.RoleImpostor, data.Role)
			assert.Empty(t, data.Word)
			assert.Equal(t, lobby.Hint, data.Hint)
		} else {
			assert.Equal(t, internal.RoleCivilian, data.Role)
			assert.Equal(t, lobby.Word, data.Word)
			assert.Empty(t, data.Hint)
		}
	}
}

func TestTurnRotationAndRoundProgress(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	require.Equal(t, 0, lobby.Turn)
	require.False(t, lobby.TurnDeadline.IsZero())

	submitCurrent(t, e, lobby, conns, "lava")
	assert.Equal(t, 1, lobby.Turn)
	assert.Len(t, lobby.Round1, 1)
	assert.Equal(t, internal.SubmissionEntry{PlayerName: "alice", Word: "lava"}, lobby.Round1[0])

	submitCurrent(t, e, lobby, conns, "ash")
	submitCurrent(t, e, lobby, conns, "crater")
	assert.Equal(t, internal.PhaseRound2, lobby.Phase)
	assert.Len(t, lobby.Round1, 3)
	assert.Equal(t, 0, lobby.Turn)

	submitCurrent(t, e, lobby, conns, "magma")
	submitCurrent(t, e, lobby, conns, "smoke")
	submitCurrent(t, e, lobby, conns, "eruption")
	assert.Equal(t, internal.PhaseVoting, lobby.Phase)
}

func TestSubmitWordFromWrongPlayerIgnored(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	require.Equal(t, "p1", lobby.CurrentPlayer().Id)
	e.dispatch(conns["p2"], internal.Inbound{Type: internal.ActionSubmitWord, Word: "sneaky"})
	assert.Empty(t, lobby.Round1)
	assert.Equal(t, 0, lobby.Turn)
}

func TestTurnTimeoutSkipsPlayerWithEmptySubmission(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	e.onTurnTimeout(lobby.Id, lobby.TimerSeq)

	require.Len(t, lobby.Round1, 1)
	assert.Equal(t, internal.SubmissionEntry{PlayerName: "alice", Word: ""}, lobby.Round1[0])
	assert.Equal(t, 1, lobby.Turn)

	update := conns["p2"].lastEvent(internal.EventTurnUpdate)
	require.NotNil(t, update)
	data := update.Data.(internal.TurnUpdateData)
	assert.True(t, data.TimeoutOccurred)
	assert.Equal(t, "bob", data.CurrentPlayer)
}

func TestStaleTimerCallbackIsIgnored(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	staleSeq := lobby.TimerSeq
	submitCurrent(t, e, lobby, conns, "lava")

	e.onTurnTimeout(lobby.Id, staleSeq)
	assert.Len(t, lobby.Round1, 1)
}

func TestDisconnectedPlayerIsSkippedInRotation(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	// Bob drops mid-round; alice's submission must rotate past him.
	e.handleDisconnect(conns["p2"])
	require.False(t, lobby.Players[1].Connected())

	submitCurrent(t, e, lobby, conns, "lava")
	assert.Equal(t, "carol", lobby.CurrentPlayer().Name)
}

func TestCurrentPlayerExitingHandsTurnOverWithFreshClock(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	require.Equal(t, "alice", lobby.CurrentPlayer().Name)
	staleSeq := lobby.TimerSeq
	staleDeadline := lobby.TurnDeadline
	updatesBefore := conns["p2"].countEvents(internal.EventTurnUpdate)

	e.dispatch(conns["p1"], internal.Inbound{Type: internal.ActionExitLobby})

	// The seat moved to bob with his own clock and an announcement.
	require.Equal(t, "bob", lobby.CurrentPlayer().Name)
	assert.Equal(t, "p2", lobby.TurnPlayerId)
	require.False(t, lobby.TurnDeadline.IsZero())
	assert.False(t, lobby.TurnDeadline.Before(staleDeadline))
	assert.NotEqual(t, staleSeq, lobby.TimerSeq)

	assert.Greater(t, conns["p2"].countEvents(internal.EventTurnUpdate), updatesBefore)
	update := conns["p2"].lastEvent(internal.EventTurnUpdate)
	require.NotNil(t, update)
	data := update.Data.(internal.TurnUpdateData)
	assert.Equal(t, "bob", data.CurrentPlayer)
	assert.Equal(t, lobby.TurnDeadline.UnixMilli(), data.TurnEndsAt)

	// The leaver's timer is dead: firing it must not skip bob.
	e.onTurnTimeout(lobby.Id, staleSeq)
	assert.Empty(t, lobby.Round1)
}

func TestCurrentPlayerEvictionHandsTurnOver(t *testing.T) {
	e := NewEngine(testWords, nil)
	conns := map[string]*fakeConn{
		"p1": joinPlayer(t, e, "GAME", "p1", "alice"),
		"p2": joinPlayer(t, e, "GAME", "p2", "bob"),
		"p3": joinPlayer(t, e, "GAME", "p3", "carol"),
		"p4": joinPlayer(t, e, "GAME", "p4", "dave"),
	}
	lobby := e.registry.Get("GAME")
	e.dispatch(conns["p1"], internal.Inbound{Type: internal.ActionStartGame})
	require.Equal(t, internal.PhaseRound1, lobby.Phase)

	// Pin the impostor away from the seat being evicted so neither grace
	// window can end the game underneath the rotation.
	for _, p := range lobby.Players {
		p.Role = internal.RoleCivilian
	}
	lobby.FindParticipant("p4").Role = internal.RoleImpostor

	staleSeq := lobby.TimerSeq
	e.handleDisconnect(conns["p1"])
	e.sweep(time.Now().Add(internal.EvictAfter + time.Second))

	require.Nil(t, lobby.FindParticipant("p1"))
	require.Equal(t, internal.PhaseRound1, lobby.Phase)
	require.Equal(t, "bob", lobby.CurrentPlayer().Name)
	assert.Equal(t, "p2", lobby.TurnPlayerId)
	assert.False(t, lobby.TurnDeadline.IsZero())

	e.onTurnTimeout(lobby.Id, staleSeq)
	assert.Empty(t, lobby.Round1)
}

func TestRoundCompletesAtConnectedCount(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	submitCurrent(t, e, lobby, conns, "lava")
	submitCurrent(t, e, lobby, conns, "ash")
	// With two entries in, carol's departure shrinks the completion
	// threshold to two and finishes the round on the spot.
	e.handleDisconnect(conns["p3"])

	assert.Equal(t, internal.PhaseRound2, lobby.Phase)
	assert.Len(t, lobby.Round1, 2)
}

func TestImpostorLeavingEndsGameAfterGrace(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	impostor := lobby.Impostor()
	e.handleDisconnect(conns[impostor.Id])
	require.False(t, lobby.ImpostorMissingSince.IsZero())

	// Inside the grace window nothing happens.
	e.checkGrace(lobby, time.Now())
	assert.True(t, lobby.Phase.InGame())

	// Past the window the game ends early with no winner.
	e.checkGrace(lobby, time.Now().Add(internal.DisconnectGrace+time.Second))
	require.Equal(t, internal.PhaseResults, lobby.Phase)

	end := conns["p1"].lastEvent(internal.EventGameEndEarly)
	require.NotNil(t, end)
	data := end.Data.(internal.GameEndEarlyData)
	assert.Equal(t, internal.ReasonImpostorLeft, data.Reason)
	assert.Equal(t, internal.WinnerNone, data.Winner)
	assert.Equal(t, lobby.Word, data.SecretWord)
}

func TestImpostorReturningCancelsGrace(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	impostor := lobby.Impostor()
	e.handleDisconnect(conns[impostor.Id])
	require.False(t, lobby.ImpostorMissingSince.IsZero())

	joinPlayer(t, e, "GAME", impostor.Id, impostor.Name)
	assert.True(t, lobby.ImpostorMissingSince.IsZero())
	assert.True(t, lobby.Phase.InGame())
}

func TestBelowMinimumEndsGameAfterGrace(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	civilian := ""
	for _, p := range lobby.Players {
		if p.Role == internal.RoleCivilian {
			civilian = p.Id
			break
		}
	}
	e.handleDisconnect(conns[civilian])
	require.False(t, lobby.BelowMinSince.IsZero())

	e.checkGrace(lobby, time.Now().Add(internal.DisconnectGrace+time.Second))
	require.Equal(t, internal.PhaseResults, lobby.Phase)

	end := conns["p1"].lastEvent(internal.EventGameEndEarly)
	require.NotNil(t, end)
	assert.Equal(t, internal.ReasonNotEnoughPlayers, end.Data.(internal.GameEndEarlyData).Reason)
}

func TestReconnectMidGameKeepsSeatAndRole(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	before := lobby.Players[1]
	role := before.Role
	epoch := before.Epoch

	e.handleDisconnect(conns["p2"])
	fresh := joinPlayer(t, e, "GAME", "p2", "bob")

	after := lobby.FindParticipant("p2")
	require.Same(t, before, after)
	assert.Equal(t, role, after.Role)
	assert.Equal(t, epoch+1, after.Epoch)
	assert.True(t, after.Connected())

	// The fresh socket got a state snapshot for the running game.
	require.NotNil(t, fresh.lastEvent(internal.EventGameStart))
	require.NotNil(t, fresh.lastEvent(internal.EventTurnUpdate))
}

func TestStaleSocketMessagesDropped(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)

	old := conns["p1"]
	// p1 opens a second socket; the first one is superseded, not closed
	// server-side until Attach does it.
	joinPlayer(t, e, "GAME", "p1", "alice")

	e.dispatch(old, internal.Inbound{Type: internal.ActionSubmitWord, Word: "lava"})
	assert.Empty(t, lobby.Round1)
}

func TestUnknownIdJoiningRunningGameBecomesSpectator(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, _ := startThreePlayerGame(t, e)

	watcher := joinPlayer(t, e, "GAME", "p9", "dave")

	require.Len(t, lobby.Spectators, 1)
	assigned := watcher.lastEvent(internal.EventLobbyAssigned)
	require.NotNil(t, assigned)
	assert.True(t, assigned.Data.(internal.LobbyAssignedData).IsSpectator)

	// Spectators see the word, not the hint.
	start := watcher.lastEvent(internal.EventGameStart)
	require.NotNil(t, start)
	assert.Equal(t, lobby.Word, start.Data.(internal.GameStartData).Word)
}

func TestRestartReadyUpStartsNextGame(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)
	firstWord := lobby.Word
	playBothRounds(t, e, lobby, conns)

	e.dispatch(conns["p1"], internal.Inbound{Type: internal.ActionVote, Vote: "bob"})
	e.dispatch(conns["p2"], internal.Inbound{Type: internal.ActionVote, Vote: "carol"})
	e.dispatch(conns["p3"], internal.Inbound{Type: internal.ActionVote, Vote: "alice"})
	require.Equal(t, internal.PhaseResults, lobby.Phase)

	e.dispatch(conns["p1"], internal.Inbound{Type: internal.ActionRestart})
	e.dispatch(conns["p2"], internal.Inbound{Type: internal.ActionRestart})
	assert.Equal(t, internal.PhaseResults, lobby.Phase)

	update := conns["p3"].lastEvent(internal.EventRestartUpdate)
	require.NotNil(t, update)
	data := update.Data.(internal.RestartUpdateData)
	assert.Equal(t, 2, data.ReadyCount)
	assert.Equal(t, 3, data.TotalPlayers)

	e.dispatch(conns["p3"], internal.Inbound{Type: internal.ActionRestart})
	require.Equal(t, internal.PhaseRound1, lobby.Phase)
	assert.NotEqual(t, firstWord, lobby.Word)
	assert.Empty(t, lobby.Round1)
}

func TestSpectatorJoinsNextGameOnRestart(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, conns := startThreePlayerGame(t, e)
	playBothRounds(t, e, lobby, conns)

	watcher := joinPlayer(t, e, "GAME", "p9", "dave")

	e.dispatch(conns["p1"], internal.Inbound{Type: internal.ActionVote, Vote: "bob"})
	e.dispatch(conns["p2"], internal.Inbound{Type: internal.ActionVote, Vote: "carol"})
	e.dispatch(conns["p3"], internal.Inbound{Type: internal.ActionVote, Vote: "alice"})
	require.Equal(t, internal.PhaseResults, lobby.Phase)

	e.dispatch(watcher, internal.Inbound{Type: internal.ActionRestart})
	update := watcher.lastEvent(internal.EventRestartUpdate)
	require.NotNil(t, update)
	assert.Equal(t, 1, update.Data.(internal.RestartUpdateData).SpectatorsWantingToJoin)

	e.dispatch(conns["p1"], internal.Inbound{Type: internal.ActionRestart})
	e.dispatch(conns["p2"], internal.Inbound{Type: internal.ActionRestart})
	e.dispatch(conns["p3"], internal.Inbound{Type: internal.ActionRestart})

	require.Equal(t, internal.PhaseRound1, lobby.Phase)
	assert.Len(t, lobby.Players, 4)
	assert.Empty(t, lobby.Spectators)
	dave := lobby.FindParticipant("p9")
	require.NotNil(t, dave)
	assert.False(t, dave.IsSpectator)
	assert.NotEqual(t, internal.RoleNone, dave.Role)
}

func TestWordPoolDoesNotRepeatAcrossRestarts(t *testing.T) {
	e := NewEngine(testWords, nil)
	lobby, _ := startThreePlayerGame(t, e)

	seen := map[string]bool{lobby.Word: true}
	for i := 0; i < len(testWords)-1; i++ {
		e.beginGame(lobby)
		assert.False(t, seen[lobby.Word], "word %q repeated before pool exhaustion", lobby.Word)
		seen[lobby.Word] = true
	}
	assert.Len(t, seen, len(testWords))
}
