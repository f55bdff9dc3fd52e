package engine

import (
	"fmt"
	"time"

	"github.com/jdstemmler/poker/internal/errs"
)

// autoDealDelay is the pause between a finished hand and the automatic
// next deal, long enough to read the result.
const autoDealDelay = 8 * time.Second

// StartHand deals the next hand: fulfills queued rebuys, rotates the
// dealer, posts blinds and deals hole cards.
func (e *Engine) StartHand() error {
	if e.GameOver {
		return errs.New(errs.InvalidState, "game is over")
	}
	if e.HandActive {
		return errs.New(errs.InvalidState, "hand already in progress")
	}
	if e.Paused {
		return errs.New(errs.InvalidState, "game is paused")
	}

	for _, s := range e.Seats {
		if s.RebuyQueued {
			if e.CanRebuy(s) {
				e.fulfillRebuy(s)
			} else {
				s.RebuyQueued = false
			}
		}
	}

	var eligible []int
	for i, s := range e.Seats {
		if !s.SittingOut && s.Chips > 0 {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) < 2 {
		return errs.New(errs.InvalidState, "not enough players to deal")
	}

	// Track blind level before dealing so the hand uses current blinds.
	e.syncBlindLevel()

	e.HandNumber++
	if e.HandNumber > 1 {
		e.DealerIdx = e.nextEligibleSeat(e.DealerIdx)
	} else if !e.Seats[e.DealerIdx].canStartHand() {
		e.DealerIdx = e.nextEligibleSeat(e.DealerIdx)
	}

	for _, s := range e.Seats {
		if s.canStartHand() {
			s.resetForNewHand()
			continue
		}
		// A seat skipped by this deal holds no cards; stale holdings
		// must not be shown against a later board.
		s.HoleCards = nil
	}

	e.Deck = e.buildDeck()
	e.CommunityCards = nil
	e.Street = StreetPreflop
	e.Pot = 0
	e.CurrentBet = 0
	e.MinRaise = e.BigBlind
	e.LastRaiserID = ""
	e.LastHandResult = nil
	e.HandActive = true
	e.AutoDealDeadline = time.Time{}
	e.Message = fmt.Sprintf("Hand #%d", e.HandNumber)

	for _, i := range eligible {
		cards, err := e.Deck.Deal(2)
		if err != nil {
			return errs.Wrap(errs.Internal, err, "dealing hole cards")
		}
		e.Seats[i].HoleCards = cards
	}

	e.postBlinds(len(eligible))
	if e.roundComplete() {
		// Both blinds are all-in from the posts: run the board out.
		return e.endBettingRound()
	}
	e.armActionDeadline()
	return nil
}

// canStartHand reports whether a seat takes part in the next deal.
func (s *Seat) canStartHand() bool {
	return !s.SittingOut && s.Chips > 0
}

// nextEligibleSeat finds the next seat after idx with chips that is not
// sitting out.
func (e *Engine) nextEligibleSeat(idx int) int {
	n := len(e.Seats)
	for offset := 1; offset <= n; offset++ {
		i := (idx + offset) % n
		if e.Seats[i].canStartHand() {
			return i
		}
	}
	return idx
}

// postBlinds posts the small and big blind and sets first action.
// Heads-up the dealer posts the small blind and acts first preflop.
func (e *Engine) postBlinds(liveCount int) {
	var sbIdx, bbIdx int
	if liveCount == 2 {
		sbIdx = e.DealerIdx
		bbIdx = e.nextEligibleSeat(e.DealerIdx)
	} else {
		sbIdx = e.nextEligibleSeat(e.DealerIdx)
		bbIdx = e.nextEligibleSeat(sbIdx)
	}

	e.forceBet(sbIdx, e.SmallBlind)
	e.forceBet(bbIdx, e.BigBlind)

	e.CurrentBet = e.BigBlind
	e.MinRaise = e.BigBlind
	e.LastRaiserID = e.Seats[bbIdx].PlayerID

	// First to act is left of the big blind; heads-up that wraps to
	// the dealer.
	e.ActionOnIdx = e.nextSeat(bbIdx, true)
	if !e.Seats[e.ActionOnIdx].canAct() {
		// Both blinds all-in from the posts: nobody acts, run it out.
		e.ActionOnIdx = -1
	}
}

// forceBet posts a blind, short-posting the whole stack if needed.
func (e *Engine) forceBet(idx, amount int) int {
	s := e.Seats[idx]
	actual := amount
	if s.Chips < actual {
		actual = s.Chips
	}
	s.Chips -= actual
	s.BetThisRound += actual
	s.BetThisHand += actual
	e.Pot += actual
	if s.Chips == 0 {
		s.AllIn = true
	}
	return actual
}

// armActionDeadline starts the turn clock for the seat on action.
func (e *Engine) armActionDeadline() {
	if e.Settings.TurnTimeout > 0 && e.HandActive && e.ActionOnIdx >= 0 {
		e.ActionDeadline = e.now().Add(time.Duration(e.Settings.TurnTimeout) * time.Second)
	} else {
		e.ActionDeadline = time.Time{}
	}
}

// finishHand runs post-hand bookkeeping after every award: elimination
// tracking, game-over detection, auto-deal arming.
func (e *Engine) finishHand() {
	e.HandActive = false
	e.Street = StreetBetween
	e.ActionOnIdx = -1
	e.ActionDeadline = time.Time{}
	e.CurrentBet = 0
	e.LastRaiserID = ""

	for _, s := range e.Seats {
		if s.Chips == 0 && !s.SittingOut {
			s.SittingOut = true
			s.EliminatedHand = e.HandNumber
			if !contains(e.EliminationOrder, s.PlayerID) {
				e.EliminationOrder = append(e.EliminationOrder, s.PlayerID)
			}
		}
	}

	var withChips []*Seat
	anyRebuyable := false
	for _, s := range e.Seats {
		if s.Chips > 0 {
			withChips = append(withChips, s)
		} else if e.CanRebuy(s) {
			anyRebuyable = true
		}
	}

	if len(withChips) == 1 && !anyRebuyable {
		e.endGame(withChips[0])
		return
	}

	if e.Settings.AutoDeal && !e.Paused {
		e.AutoDealDeadline = e.now().Add(autoDealDelay)
	}
}

// endGame marks the game over and builds the final standings: winner at
// rank 1, then the elimination order latest-bust first.
func (e *Engine) endGame(winner *Seat) {
	e.GameOver = true
	e.AutoDealDeadline = time.Time{}
	e.Message = fmt.Sprintf("%s wins the game", winner.Name)

	standings := []Standing{{
		Rank:     1,
		PlayerID: winner.PlayerID,
		Name:     winner.Name,
		Chips:    winner.Chips,
	}}
	for i := len(e.EliminationOrder) - 1; i >= 0; i-- {
		s := e.Seat(e.EliminationOrder[i])
		if s == nil {
			continue
		}
		standings = append(standings, Standing{
			Rank:     len(standings) + 1,
			PlayerID: s.PlayerID,
			Name:     s.Name,
			Chips:    s.Chips,
		})
	}
	e.FinalStandings = standings
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
