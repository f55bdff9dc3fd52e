// Package deck provides immutable playing cards and a shuffled deck with
// a lossless serialization so a mid-hand snapshot resumes dealing from
// the identical deck state.
package deck

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit, serialized as its letter ("h","d","c","s").
type Suit byte

const (
	Hearts   Suit = 'h'
	Diamonds Suit = 'd'
	Clubs    Suit = 'c'
	Spades   Suit = 's'
)

// Suits lists all four suits in deck construction order.
var Suits = [4]Suit{Hearts, Diamonds, Clubs, Spades}

// String returns the suit letter
func (s Suit) String() string {
	return string(rune(s))
}

// Symbol returns the suit glyph for display (e.g. "♥")
func (s Suit) Symbol() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

func (s Suit) valid() bool {
	switch s {
	case Hearts, Diamonds, Clubs, Spades:
		return true
	}
	return false
}

// MarshalJSON encodes the suit as its letter.
func (s Suit) MarshalJSON() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("invalid suit %q", string(rune(s)))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a suit letter.
func (s *Suit) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 || !Suit(raw[0]).valid() {
		return fmt.Errorf("invalid suit %q", raw)
	}
	*s = Suit(raw[0])
	return nil
}

// Rank represents a card rank, 2 through 14 (Ace high).
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the short rank symbol ("2".."9", "T", "J", "Q", "K", "A")
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Name returns the singular rank name ("Two".."Ace")
func (r Rank) Name() string {
	switch r {
	case Two:
		return "Two"
	case Three:
		return "Three"
	case Four:
		return "Four"
	case Five:
		return "Five"
	case Six:
		return "Six"
	case Seven:
		return "Seven"
	case Eight:
		return "Eight"
	case Nine:
		return "Nine"
	case Ten:
		return "Ten"
	case Jack:
		return "Jack"
	case Queen:
		return "Queen"
	case King:
		return "King"
	case Ace:
		return "Ace"
	default:
		return "?"
	}
}

// Plural returns the plural rank name used in hand descriptions
// ("Kings", "Sixes").
func (r Rank) Plural() string {
	switch r {
	case Six:
		return "Sixes"
	default:
		return r.Name() + "s"
	}
}

func (r Rank) valid() bool {
	return r >= Two && r <= Ace
}

// Card is an immutable playing card. JSON form: {"rank":14,"suit":"s"}.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// NewCard creates a card.
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the compact form, e.g. "Ks" for the king of spades.
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Display returns the glyph form for terminals, e.g. "K♠".
func (c Card) Display() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// Valid reports whether rank and suit are in range.
func (c Card) Valid() bool {
	return c.Rank.valid() && c.Suit.valid()
}

// ParseCard parses the compact form produced by String ("Ks", "Th", "9d").
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	var rank Rank
	switch s[0] {
	case 'T':
		rank = Ten
	case 'J':
		rank = Jack
	case 'Q':
		rank = Queen
	case 'K':
		rank = King
	case 'A':
		rank = Ace
	default:
		if s[0] < '2' || s[0] > '9' {
			return Card{}, fmt.Errorf("invalid rank in %q", s)
		}
		rank = Rank(s[0] - '0')
	}
	suit := Suit(s[1])
	if !suit.valid() {
		return Card{}, fmt.Errorf("invalid suit in %q", s)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// MustParseCard is ParseCard for fixtures and tests; it panics on
// malformed input.
func MustParseCard(s string) Card {
	c, err := ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCards parses a concatenated card string like "AsKsQsJsTs".
// Parsing is case-insensitive.
func ParseCards(s string) ([]Card, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length card string %q", s)
	}
	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		c, err := ParseCard(normalizeCardPair(s[i], s[i+1]))
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards is ParseCards that panics on malformed input.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

func normalizeCardPair(rank, suit byte) string {
	if rank >= 'a' && rank <= 'z' {
		rank -= 'a' - 'A'
	}
	if suit >= 'A' && suit <= 'Z' {
		suit += 'a' - 'A'
	}
	return string([]byte{rank, suit})
}
