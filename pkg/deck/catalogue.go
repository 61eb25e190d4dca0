package deck

import (
	"fmt"
	"strings"
)

// imagePathFormat is where card artwork is served from
const imagePathFormat = "/cards/%s.webp"

// CardInfo is a card with its display metadata
type CardInfo struct {
	Card         Card   `json:"code"`
	Suit         Suit   `json:"suit"`
	SuitName     string `json:"suitName"`
	Value        int    `json:"value"`
	DisplayValue string `json:"displayValue"`
	ValueName    string `json:"valueName"`
	ImagePath    string `json:"imagePath"`
}

// AllCards returns the 39 cards ordered by suit (Stone, Scissors, Paper) then value
func AllCards() []Card {
	cards := make([]Card, 0, CardCount)
	for _, suit := range Suits {
		for value := MinValue; value <= MaxValue; value++ {
			cards = append(cards, Card{Suit: suit, Value: value})
		}
	}

	return cards
}

// AllCodes returns the codes of all 39 cards
func AllCodes() []string {
	cards := AllCards()
	codes := make([]string, len(cards))
	for i, card := range cards {
		codes[i] = card.Code()
	}

	return codes
}

// CodesForSuit returns the 13 codes of a suit, or an error if the suit is unknown
func CodesForSuit(suit Suit) ([]string, error) {
	codes := make([]string, 0, MaxValue)
	for value := MinValue; value <= MaxValue; value++ {
		code, err := Create(suit, value)
		if err != nil {
			return nil, err
		}

		codes = append(codes, code)
	}

	return codes, nil
}

// ImagePath returns the artwork path of a card code
func ImagePath(code string) (string, error) {
	card, err := Parse(code)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(imagePathFormat, card.Code()), nil
}

// Info returns the display metadata of the card
func (c Card) Info() CardInfo {
	return CardInfo{
		Card:         c,
		Suit:         c.Suit,
		SuitName:     c.Suit.Name(),
		Value:        c.Value,
		DisplayValue: DisplayValue(c.Value),
		ValueName:    ValueName(c.Value),
		ImagePath:    fmt.Sprintf(imagePathFormat, c.Code()),
	}
}

// Catalogue returns the full 39-card catalogue
func Catalogue() []CardInfo {
	cards := AllCards()
	infos := make([]CardInfo, len(cards))
	for i, card := range cards {
		infos[i] = card.Info()
	}

	return infos
}

// CardsFromString parses a comma separated list of codes (e.g., P1,F13,C10)
func CardsFromString(s string) ([]Card, error) {
	if s == "" {
		return []Card{}, nil
	}

	codes := strings.Split(s, ",")
	cards := make([]Card, len(codes))
	for i, code := range codes {
		card, err := Parse(strings.TrimSpace(code))
		if err != nil {
			return nil, err
		}

		cards[i] = card
	}

	return cards, nil
}

// CardsToString converts a slice of cards to a string in the format of P1,F13,C10
func CardsToString(cards []Card) string {
	c := make([]string, len(cards))
	for i, card := range cards {
		c[i] = card.Code()
	}

	return strings.Join(c, ",")
}
