package engine

import (
	"fmt"

	"github.com/jdstemmler/poker/internal/deck"
	"github.com/jdstemmler/poker/internal/errs"
	"github.com/jdstemmler/poker/internal/evaluator"
)

// SidePot is one layer of the pot at showdown. Eligible players are the
// non-folded contributors to the layer.
type SidePot struct {
	Amount   int      `json:"amount"`
	Eligible []string `json:"eligible_players"`
}

// showdown refunds any uncalled excess, peels the bets into side pots,
// and awards each pot to its best hand.
func (e *Engine) showdown() error {
	e.Street = StreetShowdown

	refunds := e.refundUncalledExcess()
	pots := e.peelSidePots()

	// Rank every contesting hand once.
	ranks := make(map[string]evaluator.HandRank)
	for _, i := range e.seatsInHand() {
		s := e.Seats[i]
		cards := append(append([]deck.Card{}, s.HoleCards...), e.CommunityCards...)
		rank, err := evaluator.Evaluate(cards)
		if err != nil {
			return errs.Wrap(errs.Internal, err, "evaluating showdown hand")
		}
		ranks[s.PlayerID] = rank
	}

	totalPot := 0
	for _, p := range pots {
		totalPot += p.Amount
	}

	won := make(map[string]int)
	for _, pot := range pots {
		e.awardPot(pot, ranks, won)
	}

	// Result winners in seat order from first-to-act.
	var winners []HandWinner
	for _, i := range e.seatOrderFromFirstToAct() {
		s := e.Seats[i]
		amount, ok := won[s.PlayerID]
		if !ok {
			continue
		}
		name := "Uncontested"
		if r, ok := ranks[s.PlayerID]; ok {
			name = r.Describe()
		}
		winners = append(winners, HandWinner{
			PlayerID: s.PlayerID,
			Name:     s.Name,
			Amount:   amount,
			HandName: name,
		})
	}

	playerHands := make(map[string]ShownHand)
	for _, i := range e.seatsInHand() {
		s := e.Seats[i]
		playerHands[s.PlayerID] = ShownHand{
			Cards:    append([]deck.Card{}, s.HoleCards...),
			HandName: ranks[s.PlayerID].Describe(),
		}
	}
	e.addVoluntaryReveals(playerHands)

	e.LastHandResult = &HandResult{
		Winners:        winners,
		Pot:            totalPot,
		CommunityCards: append([]deck.Card{}, e.CommunityCards...),
		PlayerHands:    playerHands,
		Refunds:        refunds,
	}
	if len(winners) > 0 {
		e.Message = winners[0].Name + " wins with " + winners[0].HandName
	}

	e.Pot = 0
	e.finishHand()
	return nil
}

// refundUncalledExcess returns the part of the highest bet nobody could
// match. Recorded as a refund, not a win.
func (e *Engine) refundUncalledExcess() map[string]int {
	high, second := -1, 0
	for i, s := range e.Seats {
		if high < 0 || s.BetThisHand > e.Seats[high].BetThisHand {
			if high >= 0 && e.Seats[high].BetThisHand > second {
				second = e.Seats[high].BetThisHand
			}
			high = i
		} else if s.BetThisHand > second {
			second = s.BetThisHand
		}
	}
	if high < 0 {
		return nil
	}
	excess := e.Seats[high].BetThisHand - second
	if excess <= 0 {
		return nil
	}
	s := e.Seats[high]
	s.BetThisHand -= excess
	s.Chips += excess
	e.Pot -= excess
	return map[string]int{s.PlayerID: excess}
}

// peelSidePots layers the per-hand bets into ordered pots: repeatedly
// take the smallest outstanding contribution, collect it from every
// contributor, and mark the non-folded contributors eligible. Each
// pot's eligible set is a strict subset of the previous one's.
func (e *Engine) peelSidePots() []SidePot {
	remaining := make([]int, len(e.Seats))
	for i, s := range e.Seats {
		remaining[i] = s.BetThisHand
	}

	var pots []SidePot
	for {
		min := 0
		for _, r := range remaining {
			if r > 0 && (min == 0 || r < min) {
				min = r
			}
		}
		if min == 0 {
			break
		}

		pot := SidePot{}
		for i, s := range e.Seats {
			if remaining[i] <= 0 {
				continue
			}
			pot.Amount += min
			remaining[i] -= min
			if s.inHand() {
				pot.Eligible = append(pot.Eligible, s.PlayerID)
			}
		}
		pots = append(pots, pot)
	}
	return pots
}

// awardPot pays one pot to the best eligible hand(s). Split pots divide
// evenly; the remainder goes to the earliest winner in seat order from
// first-to-act.
func (e *Engine) awardPot(pot SidePot, ranks map[string]evaluator.HandRank, won map[string]int) {
	var winners []string
	for _, i := range e.seatOrderFromFirstToAct() {
		pid := e.Seats[i].PlayerID
		if !contains(pot.Eligible, pid) {
			continue
		}
		rank, ok := ranks[pid]
		if !ok {
			continue
		}
		if len(winners) == 0 {
			winners = append(winners, pid)
			continue
		}
		switch rank.Compare(ranks[winners[0]]) {
		case 1:
			winners = []string{pid}
		case 0:
			winners = append(winners, pid)
		}
	}
	if len(winners) == 0 {
		// All contributors folded; the pot goes to the eligible-less
		// layer's sole live claimant, which cannot happen after the
		// refund step. Guard anyway.
		return
	}

	share := pot.Amount / len(winners)
	remainder := pot.Amount - share*len(winners)
	for i, pid := range winners {
		amount := share
		if i == 0 {
			amount += remainder
		}
		e.Seat(pid).Chips += amount
		won[pid] += amount
	}
}

// seatOrderFromFirstToAct returns all seat indices starting from the
// seat left of the dealer.
func (e *Engine) seatOrderFromFirstToAct() []int {
	n := len(e.Seats)
	order := make([]int, 0, n)
	for offset := 1; offset <= n; offset++ {
		order = append(order, (e.DealerIdx+offset)%n)
	}
	return order
}

// awardToLastStanding gives the pot to the only seat left after
// everyone else folded. No cards are revealed unless a folder already
// chose to show.
func (e *Engine) awardToLastStanding(idx int) {
	winner := e.Seats[idx]
	pot := e.Pot
	winner.Chips += pot
	winner.LastAction = ""

	playerHands := make(map[string]ShownHand)
	e.addVoluntaryReveals(playerHands)

	e.LastHandResult = &HandResult{
		Winners: []HandWinner{{
			PlayerID: winner.PlayerID,
			Name:     winner.Name,
			Amount:   pot,
			HandName: "Last player standing",
		}},
		Pot:            pot,
		CommunityCards: append([]deck.Card{}, e.CommunityCards...),
		PlayerHands:    playerHands,
	}
	e.Message = fmt.Sprintf("%s wins %d", winner.Name, pot)

	e.Pot = 0
	e.finishHand()
}

// addVoluntaryReveals merges folders who chose to show into a result's
// player hands.
func (e *Engine) addVoluntaryReveals(playerHands map[string]ShownHand) {
	for _, s := range e.Seats {
		if !s.HasShownCards || len(s.HoleCards) != 2 {
			continue
		}
		if _, ok := playerHands[s.PlayerID]; ok {
			continue
		}
		name := ""
		if all := append(append([]deck.Card{}, s.HoleCards...), e.CommunityCards...); len(all) >= 5 {
			name = mustDescribe(all)
		}
		playerHands[s.PlayerID] = ShownHand{
			Cards:    append([]deck.Card{}, s.HoleCards...),
			HandName: name,
		}
	}
}

func mustDescribe(cards []deck.Card) string {
	rank, err := evaluator.Evaluate(cards)
	if err != nil {
		return ""
	}
	return rank.Describe()
}

