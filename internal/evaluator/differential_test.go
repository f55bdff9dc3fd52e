package evaluator

import (
	"math/rand"
	"testing"

	chp "github.com/chehsunliu/poker"
	"github.com/stretchr/testify/require"

	"github.com/jdstemmler/poker/internal/deck"
)

// toReference converts cards to the chehsunliu/poker representation.
// Its compact string format matches ours ("As", "Td").
func toReference(cards []deck.Card) []chp.Card {
	out := make([]chp.Card, len(cards))
	for i, c := range cards {
		out[i] = chp.NewCard(c.String())
	}
	return out
}

// TestDifferentialAgainstReference draws random 7-card hands and checks
// that our ordering agrees with the chehsunliu/poker evaluator, where a
// lower int32 rank is a stronger hand.
func TestDifferentialAgainstReference(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(20240817))

	draw := func() []deck.Card {
		d := deck.New(rng)
		cards, err := d.Deal(7)
		require.NoError(t, err)
		return cards
	}

	for i := 0; i < 500; i++ {
		a, b := draw(), draw()

		ourA, ourB := MustEvaluate(a), MustEvaluate(b)
		refA := chp.Evaluate(toReference(a))
		refB := chp.Evaluate(toReference(b))

		ours := ourA.Compare(ourB)
		var ref int
		switch {
		case refA < refB:
			ref = 1
		case refA > refB:
			ref = -1
		}

		require.Equal(t, ref, ours,
			"disagree on %v (%s) vs %v (%s)", a, ourA.Describe(), b, ourB.Describe())
	}
}

// TestDifferentialFiveCard covers the direct 5-card path.
func TestDifferentialFiveCard(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		d := deck.New(rng)
		cards, err := d.Deal(10)
		require.NoError(t, err)
		a, b := cards[:5], cards[5:]

		ours := MustEvaluate(a).Compare(MustEvaluate(b))
		refA := chp.Evaluate(toReference(a))
		refB := chp.Evaluate(toReference(b))

		var ref int
		switch {
		case refA < refB:
			ref = 1
		case refA > refB:
			ref = -1
		}
		require.Equal(t, ref, ours, "disagree on %v vs %v", a, b)
	}
}
