package board

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"skemino-client/pkg/deck"
	"skemino-client/pkg/snapshot"
)

func TestColor_Opponent(t *testing.T) {
	assert.Equal(t, Black, White.Opponent())
	assert.Equal(t, White, Black.Opponent())
	assert.False(t, Color("red").Valid())
}

func TestParseCell(t *testing.T) {
	for _, s := range []string{"a1", "f6", "c4"} {
		cell, err := ParseCell(s)
		assert.NoError(t, err)
		assert.Equal(t, Cell(s), cell)
	}

	for _, s := range []string{"", "a", "g1", "a0", "a7", "A1", "a10", "1a"} {
		_, err := ParseCell(s)
		assert.ErrorIs(t, err, ErrInvalidCell, s)
	}
}

func TestNew(t *testing.T) {
	a := assert.New(t)
	b := New()
	a.Equal(36, len(b))
	a.True(b.Empty())

	vertices := 0
	for cell, pos := range b {
		if pos.IsVertex {
			vertices++
			a.Contains(Vertices(), cell)
		}
		a.Nil(pos.Card)
		a.False(pos.IsHole)
		a.False(pos.Highlighted)
	}
	a.Equal(4, vertices)

	cells := Cells()
	a.Equal(Size, len(cells))
	a.Equal(Cell("a1"), cells[0])
	a.Equal(Cell("f1"), cells[5])
	a.Equal(Cell("f6"), cells[35])
}

func TestBoard_Place(t *testing.T) {
	a := assert.New(t)
	b := New()

	prev := b.Place("a1", deck.MustParse("P7"), White)
	a.Nil(prev)
	a.Equal("P7", b["a1"].Card.Code())
	a.Equal(White, b["a1"].Owner)
	a.True(b["a1"].IsVertex)

	prev = b.Place("a1", deck.MustParse("C2"), Black)
	a.Equal("P7", prev.Code())
	a.Equal(map[Color]int{White: 0, Black: 1}, b.Count())
	a.False(b.Empty())
}

func TestBoard_Merge(t *testing.T) {
	a := assert.New(t)
	b := New()

	card := deck.MustParse("F3")
	owner := Black
	hole := true
	b.Merge("c3", PositionUpdate{Card: &card, Owner: &owner})
	a.Equal("F3", b["c3"].Card.Code())
	a.Equal(Black, b["c3"].Owner)

	b.Merge("c3", PositionUpdate{IsHole: &hole})
	a.True(b["c3"].IsHole)
	a.Equal("F3", b["c3"].Card.Code(), "card is left untouched")

	b.Merge("c3", PositionUpdate{ClearCard: true})
	a.False(b["c3"].Occupied())
	a.Equal(Color(""), b["c3"].Owner)
}

func TestBoard_Clone(t *testing.T) {
	b := New()
	c := b.Clone()
	c.Place("b2", deck.MustParse("P1"), White)

	assert.True(t, b.Empty())
	assert.False(t, c.Empty())
}

func TestBoard_JSON(t *testing.T) {
	b := New()
	b.Place("a1", deck.MustParse("P7"), White)

	data, err := json.Marshal(b)
	assert.NoError(t, err)

	var decoded Board
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b, decoded)

	snapshot.ValidateSnapshot(t, b, 0)
}
