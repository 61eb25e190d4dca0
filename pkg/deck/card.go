package deck

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidCardCode is returned when a card code cannot be parsed
var ErrInvalidCardCode = errors.New("invalid card code")

// ErrInvalidSuit is returned when a suit is not one of the three known suits
var ErrInvalidSuit = errors.New("invalid suit")

// ErrInvalidValue is returned when a value is not between 1 and 13
var ErrInvalidValue = errors.New("invalid value")

// Suit represents a card suit
type Suit string

// suit constants
const (
	Stone    Suit = "P"
	Scissors Suit = "F"
	Paper    Suit = "C"
)

// Suits is every suit in catalogue order
var Suits = []Suit{Stone, Scissors, Paper}

// value constants
const (
	Ace   = 1
	Jack  = 11
	Queen = 12
	King  = 13

	MinValue = Ace
	MaxValue = King
)

// CardCount is the number of distinct cards
const CardCount = 39

// Name returns the English name of the suit
func (s Suit) Name() string {
	switch s {
	case Stone:
		return "Stone"
	case Scissors:
		return "Scissors"
	case Paper:
		return "Paper"
	}

	return "Unknown"
}

// Valid returns true if the suit is one of the three known suits
func (s Suit) Valid() bool {
	return s == Stone || s == Scissors || s == Paper
}

// beats maps each suit to the suit it dominates
var beats = map[Suit]Suit{
	Stone:    Scissors,
	Scissors: Paper,
	Paper:    Stone,
}

// SuitBeats returns true if suit a dominates suit b
func SuitBeats(a, b Suit) bool {
	target, ok := beats[a]
	return ok && target == b
}

// Card is an individual Skèmino card
// Cards are immutable values and are encoded as their code (e.g., P7) in JSON
type Card struct {
	Suit  Suit
	Value int
}

var cardRx = regexp.MustCompile(`^([PFC])([1-9]|1[0-3])\z`)

// Parse returns a Card from the code.
// The code must be in the format of <suit><value> where suit in [PFC] and 1 <= value <= 13, without leading zeros
func Parse(code string) (Card, error) {
	match := cardRx.FindStringSubmatch(code)
	if match == nil {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCardCode, code)
	}

	value, err := strconv.Atoi(match[2])
	if err != nil {
		// should never be hit due to the regexp
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCardCode, code)
	}

	return Card{Suit: Suit(match[1]), Value: value}, nil
}

// MustParse is like Parse, but panics on an invalid code
func MustParse(code string) Card {
	card, err := Parse(code)
	if err != nil {
		panic(err)
	}

	return card
}

// Create returns the code for the suit and value
func Create(suit Suit, value int) (string, error) {
	if !suit.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSuit, string(suit))
	}

	if value < MinValue || value > MaxValue {
		return "", fmt.Errorf("%w: %d", ErrInvalidValue, value)
	}

	return string(suit) + strconv.Itoa(value), nil
}

// IsValidCode returns true if the code can be parsed
func IsValidCode(code string) bool {
	return cardRx.MatchString(code)
}

// Code returns the canonical code of the card
func (c Card) Code() string {
	return string(c.Suit) + strconv.Itoa(c.Value)
}

func (c Card) String() string {
	return c.Code()
}

// Display returns the card as shown to a player, e.g. "Q Paper"
func (c Card) Display() string {
	return fmt.Sprintf("%s %s", DisplayValue(c.Value), c.Suit.Name())
}

// MarshalText implements encoding.TextMarshaler
func (c Card) MarshalText() ([]byte, error) {
	code, err := Create(c.Suit, c.Value)
	if err != nil {
		return nil, err
	}

	return []byte(code), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Card) UnmarshalText(text []byte) error {
	card, err := Parse(string(text))
	if err != nil {
		return err
	}

	*c = card
	return nil
}

// DisplayValue maps a value to its face: A, 2..10, J, Q, K
func DisplayValue(value int) string {
	switch value {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}

	return strconv.Itoa(value)
}

var valueNames = [...]string{
	"Ace", "Two", "Three", "Four", "Five", "Six", "Seven",
	"Eight", "Nine", "Ten", "Jack", "Queen", "King",
}

// ValueName returns the full English name of the value ("Ace".."King")
func ValueName(value int) string {
	if value < MinValue || value > MaxValue {
		return strconv.Itoa(value)
	}

	return valueNames[value-1]
}

// Reason explains how a comparison was decided
type Reason string

// comparison reasons
const (
	ReasonSuit  Reason = "suit"
	ReasonValue Reason = "value"
	ReasonTie   Reason = "tie"
)

// Comparison is the result of Compare
// Winner is nil on a tie
type Comparison struct {
	Winner *Card  `json:"winner"`
	Reason Reason `json:"reason"`
}

// Compare decides which card wins.
// Suit dominance wins regardless of value, value only breaks ties between equal suits.
func Compare(a, b Card) Comparison {
	if SuitBeats(a.Suit, b.Suit) {
		return Comparison{Winner: &a, Reason: ReasonSuit}
	}

	if SuitBeats(b.Suit, a.Suit) {
		return Comparison{Winner: &b, Reason: ReasonSuit}
	}

	switch {
	case a.Value > b.Value:
		return Comparison{Winner: &a, Reason: ReasonValue}
	case b.Value > a.Value:
		return Comparison{Winner: &b, Reason: ReasonValue}
	}

	return Comparison{Reason: ReasonTie}
}

// CompareCodes parses both codes and compares them
func CompareCodes(a, b string) (Comparison, error) {
	cardA, err := Parse(a)
	if err != nil {
		return Comparison{}, err
	}

	cardB, err := Parse(b)
	if err != nil {
		return Comparison{}, err
	}

	return Compare(cardA, cardB), nil
}
