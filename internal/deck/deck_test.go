package deck

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	t.Parallel()

	d := NewShuffled()
	require.Equal(t, 52, d.Remaining())

	cards, err := d.Deal(52)
	require.NoError(t, err)

	seen := make(map[Card]bool)
	for _, c := range cards {
		assert.True(t, c.Valid())
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestDealRemovesFromFront(t *testing.T) {
	t.Parallel()

	d := New(rand.New(rand.NewSource(42)))
	first, err := d.Deal(2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 50, d.Remaining())

	// Identical seed deals the identical sequence.
	d2 := New(rand.New(rand.NewSource(42)))
	again, err := d2.Deal(2)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestDealTooMany(t *testing.T) {
	t.Parallel()

	d := NewShuffled()
	_, err := d.Deal(50)
	require.NoError(t, err)

	_, err = d.Deal(3)
	assert.Error(t, err)

	_, err = d.Deal(-1)
	assert.Error(t, err)
}

func TestDeckRoundTripResumesDealing(t *testing.T) {
	t.Parallel()

	d := New(rand.New(rand.NewSource(7)))
	_, err := d.Deal(9)
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var restored Deck
	require.NoError(t, json.Unmarshal(data, &restored))
	require.Equal(t, d.Remaining(), restored.Remaining())

	want, err := d.Deal(5)
	require.NoError(t, err)
	got, err := restored.Deal(5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDeckUnmarshalRejectsInvalidCard(t *testing.T) {
	t.Parallel()

	var d Deck
	err := json.Unmarshal([]byte(`[{"rank":99,"suit":"s"}]`), &d)
	assert.Error(t, err)
}

func TestShuffleIsUnbiasedEnough(t *testing.T) {
	t.Parallel()

	// Count how often each of four sample cards lands in the top five
	// positions. With a fair shuffle each card appears there ~5/52 of
	// the time; a positional bias shows up as a gross deviation.
	const trials = 2000
	counts := make(map[Card]int)
	samples := MustParseCards("As2hKdTc")

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < trials; i++ {
		d := New(rng)
		top, err := d.Deal(5)
		require.NoError(t, err)
		for _, c := range top {
			for _, s := range samples {
				if c == s {
					counts[s]++
				}
			}
		}
	}

	expected := trials * 5 / 52
	for _, s := range samples {
		assert.InDelta(t, expected, counts[s], float64(expected)*0.5, "card %s", s)
	}
}
