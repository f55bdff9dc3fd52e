package deck

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	mrand "math/rand"
)

// Deck is an ordered sequence of unique cards. Deal removes from the
// front so serializing the remaining cards preserves deal order exactly.
type Deck struct {
	cards []Card
}

// New creates a full 52-card deck shuffled with the given generator.
func New(rng *mrand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	d.shuffle(rng)
	return d
}

// NewShuffled creates a full deck shuffled with a cryptographically
// seeded generator.
func NewShuffled() *Deck {
	return New(CryptoSeeded())
}

// FromCards builds a deck that deals the given cards front to back.
// Used to rig deals in tests.
func FromCards(cards []Card) *Deck {
	return &Deck{cards: append([]Card{}, cards...)}
}

// CryptoSeeded returns a math/rand generator seeded from crypto/rand.
func CryptoSeeded() *mrand.Rand {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("deck: reading crypto seed: " + err.Error())
	}
	return mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
}

// shuffle runs Fisher-Yates over the remaining cards.
func (d *Deck) shuffle(rng *mrand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the first n cards.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("deal %d cards", n)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("deal %d cards with %d remaining", n, len(d.cards))
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// MarshalJSON serializes the remaining cards in order.
func (d *Deck) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.cards)
}

// UnmarshalJSON restores a deck from its serialized remaining cards.
func (d *Deck) UnmarshalJSON(data []byte) error {
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return err
	}
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("invalid card %v in deck", c)
		}
	}
	d.cards = cards
	return nil
}
