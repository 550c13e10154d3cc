package internal

// Message is the outbound envelope written to every socket.
type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data,omitempty"`
}

// Inbound action types. Unrecognized types are rejected at the boundary.
const (
	ActionJoinLobby           = "joinLobby"
	ActionJoinSpectator       = "joinSpectator"
	ActionExitLobby           = "exitLobby"
	ActionToggleImpostorGuess = "toggleImpostorGuess"
	ActionStartGame           = "startGame"
	ActionSubmitWord          = "submitWord"
	ActionVote                = "vote"
	ActionImpostorGuess       = "impostorGuess"
	ActionRestart             = "restart"
	ActionGetLobbyList        = "getLobbyList"
	ActionPing                = "ping"
)

// Outbound event types.
const (
	EventServerHello        = "serverHello"
	EventLobbyList          = "lobbyList"
	EventLobbyAssigned      = "lobbyAssigned"
	EventLobbyUpdate        = "lobbyUpdate"
	EventGameStart          = "gameStart"
	EventTurnUpdate         = "turnUpdate"
	EventStartVoting        = "startVoting"
	EventImpostorGuessPhase = "impostorGuessPhase"
	EventGameEnd            = "gameEnd"
	EventGameEndEarly       = "gameEndEarly"
	EventRestartUpdate      = "restartUpdate"
	EventLobbyExited        = "lobbyExited"
	EventLobbyClosed        = "lobbyClosed"
	EventError              = "error"
	EventPong               = "pong"
)

// Inbound is the closed union of client actions. One flat field set; which
// fields are meaningful depends on Type.
type Inbound struct {
	Type     string `json:"type"`
	PlayerId string `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`
	LobbyId  string `json:"lobbyId,omitempty"`
	Enabled  bool   `json:"enabled,omitempty"`
	Word     string `json:"word,omitempty"`
	Vote     string `json:"vote,omitempty"`
	Guess    string `json:"guess,omitempty"`
}

type ServerHelloData struct {
	ServerId string `json:"serverId"`
}

type LobbySummary struct {
	Id                  string    `json:"id"`
	Host                string    `json:"host"`
	PlayerCount         int       `json:"playerCount"`
	SpectatorCount      int       `json:"spectatorCount"`
	MaxPlayers          int       `json:"maxPlayers"`
	Phase               GamePhase `json:"phase"`
	CreatedAt           int64     `json:"createdAt"`
	ImpostorGuessOption bool      `json:"impostorGuessOption"`
}

type LobbyListData struct {
	Lobbies []LobbySummary `json:"lobbies"`
}

type LobbyAssignedData struct {
	LobbyId             string `json:"lobbyId"`
	IsSpectator         bool   `json:"isSpectator"`
	PlayerName          string `json:"playerName"`
	IsOwner             bool   `json:"isOwner"`
	ImpostorGuessOption bool   `json:"impostorGuessOption"`
}

type ParticipantSummary struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

type LobbyUpdateData struct {
	Players             []ParticipantSummary `json:"players"`
	Spectators          []ParticipantSummary `json:"spectators"`
	Owner               string               `json:"owner"`
	Phase               GamePhase            `json:"phase"`
	ImpostorGuessOption bool                 `json:"impostorGuessOption"`
}

// GameStartData is per-participant: civilians get the word, the impostor
// gets the hint only.
type GameStartData struct {
	Role       Role   `json:"role"`
	Word       string `json:"word,omitempty"`
	Hint       string `json:"hint,omitempty"`
	PlayerName string `json:"playerName"`
}

type TurnUpdateData struct {
	Phase           GamePhase         `json:"phase"`
	Round1          []SubmissionEntry `json:"round1"`
	Round2          []SubmissionEntry `json:"round2"`
	CurrentPlayer   string            `json:"currentPlayer"`
	TurnEndsAt      int64             `json:"turnEndsAt"`
	TimeoutOccurred bool              `json:"timeoutOccurred,omitempty"`
}

type StartVotingData struct {
	Players []string `json:"players"`
}

type ImpostorGuessPhaseData struct {
	Ejected     string `json:"ejected,omitempty"`
	IsImpostor  bool   `json:"isImpostor"`
	GuessEndsAt int64  `json:"guessEndsAt"`
}

type GameEndData struct {
	Roles                map[string]Role   `json:"roles"`
	Votes                map[string]string `json:"votes,omitempty"`
	SecretWord           string            `json:"secretWord"`
	Hint                 string            `json:"hint"`
	Winner               Winner            `json:"winner"`
	ImpostorGuess        string            `json:"impostorGuess,omitempty"`
	ImpostorGuessCorrect *bool             `json:"impostorGuessCorrect,omitempty"`
}

type GameEndEarlyData struct {
	Roles      map[string]Role `json:"roles"`
	SecretWord string          `json:"secretWord"`
	Hint       string          `json:"hint"`
	Winner     Winner          `json:"winner"`
	Reason     EndReason       `json:"reason"`
}

type RestartUpdateData struct {
	ReadyCount              int `json:"readyCount"`
	TotalPlayers            int `json:"totalPlayers"`
	SpectatorsWantingToJoin int `json:"spectatorsWantingToJoin"`
}

type LobbyClosedData struct {
	Message string `json:"message"`
}

type ErrorData struct {
	Message string `json:"message"`
}
