package protocol

import (
	"skemino-client/pkg/board"
	"skemino-client/pkg/deck"
	"skemino-client/pkg/gamestate"
)

// server to client keys
const (
	KeyGameState            = "gameState"
	KeyPlayers              = "players"
	KeyMoveApplied          = "moveApplied"
	KeyTimeUpdate           = "timeUpdate"
	KeyGameOver             = "gameOver"
	KeyDrawOffered          = "drawOffered"
	KeyGameError            = "gameError"
	KeyMatchmakingQueued    = "matchmakingQueued"
	KeyMatchFound           = "matchFound"
	KeyDistributionStart    = "distributionStart"
	KeyDistributionPhase    = "distributionPhase"
	KeyCardDealt            = "cardDealt"
	KeyDistributionComplete = "distributionComplete"
	KeyStatus               = "status"
	KeyError                = "error"
)

// client to server actions
const (
	ActionMakeMove             = "makeMove"
	ActionResign               = "resign"
	ActionOfferDraw            = "offerDraw"
	ActionRespondDraw          = "respondDraw"
	ActionJoinRoom             = "joinRoom"
	ActionLeaveRoom            = "leaveRoom"
	ActionJoinMatchmaking      = "joinMatchmaking"
	ActionJoinGuestMatchmaking = "joinGuestMatchmaking"
	ActionLeaveMatchmaking     = "leaveMatchmaking"
)

// additional data keys
const (
	DataCell   = "cell"
	DataAccept = "accept"
)

// Players is the data of KeyPlayers and KeyMatchFound
// Current is the receiving player
type Players struct {
	GameID   string            `json:"gameId,omitempty"`
	Current  *gamestate.Player `json:"current"`
	Opponent *gamestate.Player `json:"opponent"`
}

// MoveApplied is the data of KeyMoveApplied
type MoveApplied struct {
	Player   board.Color `json:"player"`
	Card     deck.Card   `json:"card"`
	To       board.Cell  `json:"to"`
	Captured *deck.Card  `json:"capturedCard,omitempty"`
	Notation string      `json:"notation"`
}

// TimeUpdate is the data of KeyTimeUpdate, remaining seconds per color
type TimeUpdate struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// GameOver is the data of KeyGameOver
// Winner is nil on a draw
type GameOver struct {
	Winner *board.Color `json:"winner,omitempty"`
	Reason string       `json:"reason"`
}

// DrawOffered is the data of KeyDrawOffered
type DrawOffered struct {
	From board.Color `json:"from"`
}

// GameError is the data of KeyGameError, sent when the server rejects an action
type GameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (g GameError) Error() string {
	if g.Code == "" {
		return g.Message
	}

	return g.Code + ": " + g.Message
}

// MatchmakingQueued is the data of KeyMatchmakingQueued
type MatchmakingQueued struct {
	Position int `json:"position"`
}

// DistributionStart is the data of KeyDistributionStart
type DistributionStart struct {
	TotalCards int `json:"totalCards"`
}

// DistributionPhase is the data of KeyDistributionPhase
type DistributionPhase struct {
	Phase   gamestate.Phase `json:"phase"`
	Message string          `json:"message,omitempty"`
}

// CardDealt is the data of KeyCardDealt
// The card is only revealed to its owner.
type CardDealt struct {
	CardNumber int         `json:"cardNumber"`
	TotalCards int         `json:"totalCards"`
	To         board.Color `json:"to"`
	Card       *deck.Card  `json:"card,omitempty"`
}

// DistributionComplete is the data of KeyDistributionComplete
type DistributionComplete struct {
	Game *gamestate.GameState `json:"game"`
}
