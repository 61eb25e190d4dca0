package board

import (
	"errors"
	"fmt"

	"skemino-client/pkg/deck"
)

// ErrInvalidCell is returned when a cell code is not on the board
var ErrInvalidCell = errors.New("invalid cell")

// board dimensions
const (
	Files = "abcdef"
	Ranks = 6
	Size  = len(Files) * Ranks
)

// Color is a player color
type Color string

// color constants
const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other color
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}

	return White
}

// Valid returns true if the color is white or black
func (c Color) Valid() bool {
	return c == White || c == Black
}

// Cell is a board cell identifier in the format of {file}{rank} (e.g., a1, f6)
type Cell string

// vertex cells
const (
	A1 Cell = "a1"
	F1 Cell = "f1"
	A6 Cell = "a6"
	F6 Cell = "f6"
)

// Vertices returns the four vertex cells
func Vertices() []Cell {
	return []Cell{A1, F1, A6, F6}
}

// ParseCell validates a cell code
func ParseCell(s string) (Cell, error) {
	c := Cell(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCell, s)
	}

	return c, nil
}

// Valid returns true if the cell is on the board
func (c Cell) Valid() bool {
	if len(c) != 2 {
		return false
	}

	return c[0] >= 'a' && c[0] <= 'f' && c[1] >= '1' && c[1] <= '6'
}

// IsVertex returns true for a1, f1, a6 and f6
func (c Cell) IsVertex() bool {
	switch c {
	case A1, F1, A6, F6:
		return true
	}

	return false
}

func (c Cell) String() string {
	return string(c)
}

// Cells returns all 36 cells, rank by rank (a1, b1, ..., f6)
func Cells() []Cell {
	cells := make([]Cell, 0, Size)
	for rank := 1; rank <= Ranks; rank++ {
		for _, file := range Files {
			cells = append(cells, Cell(fmt.Sprintf("%c%d", file, rank)))
		}
	}

	return cells
}

// Position is the contents of a single cell
type Position struct {
	Card        *deck.Card `json:"card,omitempty"`
	Owner       Color      `json:"owner,omitempty"`
	IsVertex    bool       `json:"isVertex"`
	IsHole      bool       `json:"isHole"`
	Highlighted bool       `json:"highlighted"`
}

// Occupied returns true if a card is on the cell
func (p Position) Occupied() bool {
	return p.Card != nil
}

// PositionUpdate is a partial position. Nil fields are left untouched.
// IsVertex is fixed at board creation and cannot be updated.
type PositionUpdate struct {
	Card        *deck.Card `json:"card,omitempty"`
	Owner       *Color     `json:"owner,omitempty"`
	IsHole      *bool      `json:"isHole,omitempty"`
	Highlighted *bool      `json:"highlighted,omitempty"`
	// ClearCard removes the card and owner from the cell
	ClearCard bool `json:"clearCard,omitempty"`
}

// Board is the 6x6 grid
type Board map[Cell]Position

// New returns an empty board with the vertices flagged
func New() Board {
	b := make(Board, Size)
	for _, cell := range Cells() {
		b[cell] = Position{IsVertex: cell.IsVertex()}
	}

	return b
}

// Clone returns a copy of the board
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}

	b2 := make(Board, len(b))
	for cell, pos := range b {
		b2[cell] = pos
	}

	return b2
}

// Empty returns true if no card is on the board
func (b Board) Empty() bool {
	for _, pos := range b {
		if pos.Occupied() {
			return false
		}
	}

	return true
}

// Place puts a card owned by color on the cell and returns the card it replaced, if any
func (b Board) Place(cell Cell, card deck.Card, owner Color) *deck.Card {
	pos := b[cell]
	previous := pos.Card
	pos.Card = &card
	pos.Owner = owner
	pos.IsVertex = cell.IsVertex()
	b[cell] = pos

	return previous
}

// Merge applies a partial update to a cell
func (b Board) Merge(cell Cell, update PositionUpdate) {
	pos, ok := b[cell]
	if !ok {
		pos = Position{IsVertex: cell.IsVertex()}
	}

	if update.ClearCard {
		pos.Card = nil
		pos.Owner = ""
	}

	if update.Card != nil {
		card := *update.Card
		pos.Card = &card
	}

	if update.Owner != nil {
		pos.Owner = *update.Owner
	}

	if update.IsHole != nil {
		pos.IsHole = *update.IsHole
	}

	if update.Highlighted != nil {
		pos.Highlighted = *update.Highlighted
	}

	b[cell] = pos
}

// Count returns how many cells each color owns
func (b Board) Count() map[Color]int {
	counts := map[Color]int{White: 0, Black: 0}
	for _, pos := range b {
		if pos.Occupied() && pos.Owner.Valid() {
			counts[pos.Owner]++
		}
	}

	return counts
}
