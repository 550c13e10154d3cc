package internal

import (
	"time"
)

const (
	TurnDuration          = 30 * time.Second
	ImpostorGuessDuration = 30 * time.Second
	DisconnectGrace       = 30 * time.Second
	EvictAfter            = 60 * time.Second
	SweepInterval         = 15 * time.Second

	MinPlayersToStart  = 3
	MaxPlayersPerLobby = 15

	MaxWordLength = 50
	MaxNameLength = 20
)

type GamePhase string

const (
	PhaseLobby         GamePhase = "lobby"
	PhaseRound1        GamePhase = "round1"
	PhaseRound2        GamePhase = "round2"
	PhaseVoting        GamePhase = "voting"
	PhaseImpostorGuess GamePhase = "impostorGuess"
	PhaseResults       GamePhase = "results"
)

// InGame reports whether a game is running (roles assigned, word active).
func (p GamePhase) InGame() bool {
	switch p {
	case PhaseRound1, PhaseRound2, PhaseVoting, PhaseImpostorGuess:
		return true
	}
	return false
}

type Role string

const (
	RoleImpostor Role = "impostor"
	RoleCivilian Role = "civilian"
	RoleNone     Role = ""
)

type Winner string

const (
	WinnerImpostor  Winner = "Impostor"
	WinnerCivilians Winner = "Civilians"
	WinnerNone      Winner = ""
)

type EndReason string

const (
	ReasonImpostorLeft     EndReason = "impostor_left"
	ReasonNotEnoughPlayers EndReason = "not_enough_players"
)

// ConnStatus is the explicit tri-state liveness of a participant's socket.
type ConnStatus string

const (
	StatusConnected           ConnStatus = "connected"
	StatusDisconnectedPending ConnStatus = "disconnected-pending"
	StatusEvicted             ConnStatus = "evicted"
)

// Conn is what the engine needs from the transport: deliver an outbound
// message and report liveness. Send failures are swallowed by callers; a
// broken socket surfaces as a disconnect from the transport instead.
type Conn interface {
	Send(v any) error
	Open() bool
	Close()
}

// WordPair is one secret word with the hint shown to the impostor.
type WordPair struct {
	Word string `json:"word"`
	Hint string `json:"hint"`
}

// SubmissionEntry is one word given during round1/round2, append-only
// within a round. Word is empty when the turn timed out.
type SubmissionEntry struct {
	PlayerName string `json:"playerName"`
	Word       string `json:"word"`
}

type Participant struct {
	Id   string
	Name string

	Conn   Conn
	Status ConnStatus

	// Epoch increments on every successful (re)attachment. Messages tagged
	// with an older epoch come from a superseded socket and are dropped.
	Epoch int64

	Role        Role
	IsSpectator bool

	LastDisconnect time.Time
	JoinedAt       time.Time

	Vote                string
	WantsToJoinNextGame bool
}

// Connected reports whether the participant has a live, current socket.
func (p *Participant) Connected() bool {
	return p.Status == StatusConnected && p.Conn != nil && p.Conn.Open()
}

// Attach binds a new socket, superseding any previous one.
func (p *Participant) Attach(conn Conn) int64 {
	if p.Conn != nil && p.Conn != conn {
		p.Conn.Close()
	}
	p.Conn = conn
	p.Status = StatusConnected
	p.Epoch++
	p.LastDisconnect = time.Time{}
	return p.Epoch
}

// MarkDisconnected records connection loss without giving up the seat.
func (p *Participant) MarkDisconnected(now time.Time) {
	p.Conn = nil
	p.Status = StatusDisconnectedPending
	p.LastDisconnect = now
}

func (p *Participant) ResetGameState() {
	p.Role = RoleNone
	p.Vote = ""
}

type Lobby struct {
	Id        string
	Phase     GamePhase
	CreatedAt time.Time

	// Players in turn-rotation order; insertion order survives reconnects.
	Players    []*Participant
	Spectators []*Participant
	OwnerId    string

	// Turn indexes Players during round1/round2.
	Turn int

	Word string
	Hint string

	Round1 []SubmissionEntry
	Round2 []SubmissionEntry

	RestartReady map[string]bool

	Pool WordPool

	ImpostorGuessOption bool

	// Timer bookkeeping. Deadlines are absolute so reconnecting clients can
	// compute remaining time themselves. Seq invalidates callbacks from a
	// timer that was replaced before firing.
	TurnTimer     TimerHandle
	TurnDeadline  time.Time
	TurnPlayerId  string
	GuessTimer    TimerHandle
	GuessDeadline time.Time
	TimerSeq      int64

	// Grace windows: zero means the condition is not currently observed.
	ImpostorMissingSince time.Time
	BelowMinSince        time.Time

	// Name of the participant ejected by the last vote, if any.
	LastEjected string
}

// TimerHandle is the cancellable half of a pending timer (*time.Timer fits).
type TimerHandle interface {
	Stop() bool
}

func NewLobby(id string, now time.Time) *Lobby {
	return &Lobby{
		Id:           id,
		Phase:        PhaseLobby,
		CreatedAt:    now,
		Players:      make([]*Participant, 0),
		Spectators:   make([]*Participant, 0),
		RestartReady: make(map[string]bool),
	}
}
