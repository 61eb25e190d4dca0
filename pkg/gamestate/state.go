package gamestate

import (
	"fmt"
	"time"

	"skemino-client/pkg/board"
	"skemino-client/pkg/deck"
)

// Status is the lifecycle status of a game
type Status string

// status constants
const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// GameState is the authoritative game snapshot as pushed by the server
// Seq is a monotonic sequence number assigned by the server. Zero means unsequenced.
type GameState struct {
	ID          string                    `json:"id"`
	Seq         uint64                    `json:"seq"`
	Board       board.Board               `json:"board"`
	Hands       map[board.Color]deck.Hand `json:"hands"`
	CurrentTurn board.Color               `json:"currentTurn"`
	Clocks      map[board.Color]int       `json:"clocks"`
	MoveHistory []Move                    `json:"moveHistory"`
	Status      Status                    `json:"status"`
	Winner      *board.Color              `json:"winner,omitempty"`
}

// NewGameState returns a waiting game with an empty board, white to move
func NewGameState(id string) *GameState {
	return &GameState{
		ID:          id,
		Board:       board.New(),
		Hands:       map[board.Color]deck.Hand{board.White: {}, board.Black: {}},
		CurrentTurn: board.White,
		Clocks:      map[board.Color]int{board.White: 0, board.Black: 0},
		MoveHistory: []Move{},
		Status:      StatusWaiting,
	}
}

// Clone returns a deep copy of the game state
// Missing maps are initialized so the copy is always safe to mutate.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}

	cp := *g
	if g.Board == nil {
		cp.Board = board.New()
	} else {
		cp.Board = g.Board.Clone()
	}

	cp.Hands = make(map[board.Color]deck.Hand, 2)
	for color, hand := range g.Hands {
		cp.Hands[color] = hand.Clone()
	}

	cp.Clocks = make(map[board.Color]int, 2)
	for color, seconds := range g.Clocks {
		cp.Clocks[color] = seconds
	}

	cp.MoveHistory = make([]Move, len(g.MoveHistory))
	copy(cp.MoveHistory, g.MoveHistory)

	if g.Winner != nil {
		winner := *g.Winner
		cp.Winner = &winner
	}

	if cp.CurrentTurn == "" {
		cp.CurrentTurn = board.White
	}

	return &cp
}

// Player is a participant in the game
type Player struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Color    board.Color `json:"color"`
	Rating   int         `json:"rating"`
	IsGuest  bool        `json:"isGuest"`
}

// Move is an applied move. Once in the move history it is never mutated.
// Pending moves are local predictions awaiting the next authoritative snapshot.
type Move struct {
	ID        string      `json:"id"`
	Player    board.Color `json:"player"`
	Card      deck.Card   `json:"card"`
	To        board.Cell  `json:"to"`
	Captured  *deck.Card  `json:"capturedCard,omitempty"`
	Notation  string      `json:"notation"`
	Timestamp time.Time   `json:"timestamp"`
	Pending   bool        `json:"pending,omitempty"`
	LocalSeq  uint64      `json:"localSeq,omitempty"`
}

// Notation returns the human-readable notation of a move, e.g. P7:a1, or P7:a1* on capture
func Notation(card deck.Card, to board.Cell, capture bool) string {
	n := fmt.Sprintf("%s:%s", card.Code(), to)
	if capture {
		n += "*"
	}

	return n
}

// DrawOffer is an opponent's pending draw offer
type DrawOffer struct {
	From       board.Color `json:"from"`
	ReceivedAt time.Time   `json:"receivedAt"`
}
