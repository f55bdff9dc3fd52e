// Package evaluator ranks Texas Hold'em hands. Evaluate finds the best
// five-card hand among 5-7 cards and returns a totally ordered HandRank
// so winners fall out of a single comparison.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/jdstemmler/poker/internal/deck"
)

// Category is the hand class, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the category display name.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// HandRank is a comparable hand ranking: category first, then tiebreak
// ranks in descending significance. Best holds the five cards that make
// the hand, for display at showdown.
type HandRank struct {
	Category  Category    `json:"category"`
	Tiebreaks []deck.Rank `json:"tiebreaks"`
	Best      []deck.Card `json:"best"`
}

// Compare returns -1 if h loses to other, 0 on a tie, 1 if h wins.
// Best cards do not participate: two hands with equal category and
// tiebreaks split the pot.
func (h HandRank) Compare(other HandRank) int {
	if h.Category != other.Category {
		if h.Category < other.Category {
			return -1
		}
		return 1
	}
	n := len(h.Tiebreaks)
	if len(other.Tiebreaks) < n {
		n = len(other.Tiebreaks)
	}
	for i := 0; i < n; i++ {
		if h.Tiebreaks[i] != other.Tiebreaks[i] {
			if h.Tiebreaks[i] < other.Tiebreaks[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Describe returns the display name with the deciding rank spelled out,
// e.g. "One Pair (Kings)" or "Straight (Nine High)".
func (h HandRank) Describe() string {
	switch h.Category {
	case HighCard:
		return fmt.Sprintf("High Card (%s)", h.Tiebreaks[0].Name())
	case OnePair:
		return fmt.Sprintf("One Pair (%s)", h.Tiebreaks[0].Plural())
	case TwoPair:
		return fmt.Sprintf("Two Pair (%s and %s)", h.Tiebreaks[0].Plural(), h.Tiebreaks[1].Plural())
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind (%s)", h.Tiebreaks[0].Plural())
	case Straight:
		return fmt.Sprintf("Straight (%s High)", h.Tiebreaks[0].Name())
	case Flush:
		return fmt.Sprintf("Flush (%s High)", h.Tiebreaks[0].Name())
	case FullHouse:
		return fmt.Sprintf("Full House (%s over %s)", h.Tiebreaks[0].Plural(), h.Tiebreaks[1].Plural())
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind (%s)", h.Tiebreaks[0].Plural())
	case StraightFlush:
		return fmt.Sprintf("Straight Flush (%s High)", h.Tiebreaks[0].Name())
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Evaluate returns the best five-card hand among 5 to 7 cards.
func Evaluate(cards []deck.Card) (HandRank, error) {
	if len(cards) < 5 {
		return HandRank{}, fmt.Errorf("evaluate needs at least 5 cards, got %d", len(cards))
	}
	if len(cards) > 7 {
		return HandRank{}, fmt.Errorf("evaluate takes at most 7 cards, got %d", len(cards))
	}

	var best HandRank
	first := true
	forEachFive(cards, func(five [5]deck.Card) {
		r := rankFive(five)
		if first || r.Compare(best) > 0 {
			best = r
			first = false
		}
	})
	return best, nil
}

// MustEvaluate is Evaluate for fixtures; it panics on bad input.
func MustEvaluate(cards []deck.Card) HandRank {
	r, err := Evaluate(cards)
	if err != nil {
		panic(err)
	}
	return r
}

// forEachFive visits every 5-card combination of cards (5 ≤ len ≤ 7).
func forEachFive(cards []deck.Card, visit func([5]deck.Card)) {
	n := len(cards)
	idx := [5]int{}
	var rec func(start, depth int)
	var five [5]deck.Card
	rec = func(start, depth int) {
		if depth == 5 {
			for i, j := range idx {
				five[i] = cards[j]
			}
			visit(five)
			return
		}
		for i := start; i <= n-(5-depth); i++ {
			idx[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

// rankFive ranks exactly five cards.
func rankFive(cards [5]deck.Card) HandRank {
	ranks := make([]deck.Rank, 5)
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })

	flush := true
	for i := 1; i < 5; i++ {
		if cards[i].Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	straight, straightHigh := straightHighCard(ranks)

	best := make([]deck.Card, 5)
	copy(best, cards[:])

	if straight && flush {
		if straightHigh == deck.Ace {
			return HandRank{Category: RoyalFlush, Tiebreaks: []deck.Rank{deck.Ace}, Best: best}
		}
		return HandRank{Category: StraightFlush, Tiebreaks: []deck.Rank{straightHigh}, Best: best}
	}

	// Group ranks by multiplicity, strongest group first.
	counts := make(map[deck.Rank]int)
	for _, r := range ranks {
		counts[r]++
	}
	type group struct {
		rank  deck.Rank
		count int
	}
	groups := make([]group, 0, 5)
	for r, c := range counts {
		groups = append(groups, group{r, c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	grouped := make([]deck.Rank, 0, 5)
	for _, g := range groups {
		grouped = append(grouped, g.rank)
	}

	switch {
	case groups[0].count == 4:
		return HandRank{Category: FourOfAKind, Tiebreaks: grouped, Best: best}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandRank{Category: FullHouse, Tiebreaks: grouped, Best: best}
	case flush:
		return HandRank{Category: Flush, Tiebreaks: ranks, Best: best}
	case straight:
		return HandRank{Category: Straight, Tiebreaks: []deck.Rank{straightHigh}, Best: best}
	case groups[0].count == 3:
		return HandRank{Category: ThreeOfAKind, Tiebreaks: grouped, Best: best}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandRank{Category: TwoPair, Tiebreaks: grouped, Best: best}
	case groups[0].count == 2:
		return HandRank{Category: OnePair, Tiebreaks: grouped, Best: best}
	default:
		return HandRank{Category: HighCard, Tiebreaks: ranks, Best: best}
	}
}

// straightHighCard reports whether the sorted-descending ranks form a
// straight and its high card. The wheel A-2-3-4-5 reports a 5 high.
func straightHighCard(sorted []deck.Rank) (bool, deck.Rank) {
	for i := 1; i < 5; i++ {
		if sorted[i] == sorted[i-1] {
			return false, 0
		}
	}
	if sorted[0]-sorted[4] == 4 {
		return true, sorted[0]
	}
	if sorted[0] == deck.Ace && sorted[1] == deck.Five && sorted[1]-sorted[4] == 3 {
		return true, deck.Five
	}
	return false, 0
}
