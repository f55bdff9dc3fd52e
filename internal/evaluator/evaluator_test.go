package evaluator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdstemmler/poker/internal/deck"
)

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cards    string
		category Category
		describe string
	}{
		{"royal flush", "AsKsQsJsTs", RoyalFlush, "Royal Flush"},
		{"straight flush", "9h8h7h6h5h", StraightFlush, "Straight Flush (Nine High)"},
		{"four of a kind", "AsAhAdAc2s", FourOfAKind, "Four of a Kind (Aces)"},
		{"full house", "KsKhKd2s2h", FullHouse, "Full House (Kings over Twos)"},
		{"flush", "AsJs9s5s3s", Flush, "Flush (Ace High)"},
		{"straight", "9s8h7d6c5s", Straight, "Straight (Nine High)"},
		{"wheel", "As2h3d4c5s", Straight, "Straight (Five High)"},
		{"three of a kind", "QsQhQd8c2s", ThreeOfAKind, "Three of a Kind (Queens)"},
		{"two pair", "AsAhKdKc2s", TwoPair, "Two Pair (Aces and Kings)"},
		{"one pair", "KsKc7h2d5c", OnePair, "One Pair (Kings)"},
		{"high card", "AsJh9d5c3h", HighCard, "High Card (Ace)"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rank, err := Evaluate(deck.MustParseCards(tc.cards))
			require.NoError(t, err)
			assert.Equal(t, tc.category, rank.Category)
			assert.Equal(t, tc.describe, rank.Describe())
			assert.Len(t, rank.Best, 5)
		})
	}
}

func TestEvaluateBestOfSeven(t *testing.T) {
	t.Parallel()

	// Hole KsKc on a 7h2d5c9s3d board: one pair of kings.
	rank, err := Evaluate(deck.MustParseCards("KsKc7h2d5c9s3d"))
	require.NoError(t, err)
	assert.Equal(t, OnePair, rank.Category)
	assert.Equal(t, "One Pair (Kings)", rank.Describe())

	// Flush hides inside seven cards.
	rank, err = Evaluate(deck.MustParseCards("As2s9s5cKs3sQd"))
	require.NoError(t, err)
	assert.Equal(t, Flush, rank.Category)
}

func TestEvaluateArgumentErrors(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(deck.MustParseCards("AsKs"))
	assert.Error(t, err)

	_, err = Evaluate(deck.MustParseCards("As2s3s4s5s6s7s8s"))
	assert.Error(t, err)
}

func TestWheelRanksBelowSixHighStraight(t *testing.T) {
	t.Parallel()

	wheel := MustEvaluate(deck.MustParseCards("As2h3d4c5s"))
	sixHigh := MustEvaluate(deck.MustParseCards("2h3d4c5s6h"))

	assert.Equal(t, Straight, wheel.Category)
	assert.Equal(t, Straight, sixHigh.Category)
	assert.Equal(t, -1, wheel.Compare(sixHigh))
	assert.Equal(t, 1, sixHigh.Compare(wheel))
}

func TestCompareKickers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   string
		result int
	}{
		{"pair beats high card", "KsKc7h2d5c", "AsJh9d5c3h", 1},
		{"higher pair wins", "KsKc7h2d5c", "QsQc7h2d5c", 1},
		{"kicker decides", "KsKcAh2d5c", "KdKh7h2s5d", 1},
		{"exact tie splits", "KsKc9h5d2c", "KdKh9s5c2d", 0},
		{"two pair kicker", "AsAhKdKcQs", "AdAcKsKh2s", 1},
		{"full house trips first", "KsKhKd2s2h", "QsQhQdAsAh", 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a := MustEvaluate(deck.MustParseCards(tc.a))
			b := MustEvaluate(deck.MustParseCards(tc.b))
			assert.Equal(t, tc.result, a.Compare(b))
			assert.Equal(t, -tc.result, b.Compare(a))
		})
	}
}

func TestEvaluatePermutationInvariant(t *testing.T) {
	t.Parallel()

	cards := deck.MustParseCards("KsKc7h2d5c9s3d")
	want := MustEvaluate(cards)

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		shuffled := make([]deck.Card, len(cards))
		copy(shuffled, cards)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := MustEvaluate(shuffled)
		assert.Equal(t, want.Category, got.Category)
		assert.Equal(t, want.Tiebreaks, got.Tiebreaks)
		assert.Zero(t, want.Compare(got))
	}
}

func TestStraightFlushNotDilutedByPair(t *testing.T) {
	t.Parallel()

	// 6h6s alongside 5h4h3h2h: the straight flush must win out over
	// the pair-heavy combinations.
	rank := MustEvaluate(deck.MustParseCards("6h6s5h4h3h2h9c"))
	assert.Equal(t, StraightFlush, rank.Category)
	assert.Equal(t, []deck.Rank{deck.Six}, rank.Tiebreaks)
}
