package engine

import (
	"github.com/jdstemmler/poker/internal/errs"
)

// ProcessAction applies one betting decision for the player on action.
// For raises, amount is the raise-to total for this round (blinds
// included).
func (e *Engine) ProcessAction(playerID string, action Action, amount int) error {
	if !e.HandActive {
		return errs.New(errs.InvalidState, "no hand in progress")
	}
	if e.Paused {
		return errs.New(errs.InvalidState, "game is paused")
	}
	idx := e.findSeat(playerID)
	if idx < 0 {
		return errs.Newf(errs.NotFound, "player %s not at table", playerID)
	}
	if idx != e.ActionOnIdx {
		return errs.New(errs.InvalidState, "not your turn")
	}
	s := e.Seats[idx]
	if !s.canAct() {
		return errs.New(errs.InvalidState, "seat cannot act")
	}

	var err error
	switch action {
	case ActionFold:
		e.doFold(idx)
	case ActionCheck:
		err = e.doCheck(idx)
	case ActionCall:
		err = e.doCall(idx)
	case ActionRaise:
		err = e.doRaise(idx, amount)
	case ActionAllIn:
		err = e.doAllIn(idx)
	default:
		err = errs.Newf(errs.InvalidArgument, "unknown action %q", action)
	}
	if err != nil {
		return err
	}

	if inHand := e.seatsInHand(); len(inHand) == 1 {
		e.awardToLastStanding(inHand[0])
		return nil
	}

	if e.roundComplete() {
		return e.endBettingRound()
	}

	e.ActionOnIdx = e.nextSeat(idx, true)
	e.armActionDeadline()
	return nil
}

func (e *Engine) doFold(idx int) {
	s := e.Seats[idx]
	s.Folded = true
	s.HasActed = true
	s.LastAction = ActionFold
}

func (e *Engine) doCheck(idx int) error {
	s := e.Seats[idx]
	if s.BetThisRound != e.CurrentBet {
		return errs.New(errs.InvalidState, "cannot check facing a bet")
	}
	s.HasActed = true
	s.LastAction = ActionCheck
	return nil
}

func (e *Engine) doCall(idx int) error {
	s := e.Seats[idx]
	gap := e.CurrentBet - s.BetThisRound
	if gap <= 0 {
		return errs.New(errs.InvalidState, "nothing to call")
	}
	actual := gap
	if s.Chips < actual {
		actual = s.Chips
	}
	e.commitChips(s, actual)
	s.HasActed = true
	if s.AllIn {
		s.LastAction = ActionAllIn
	} else {
		s.LastAction = ActionCall
	}
	return nil
}

// doRaise raises to a total for this round. A raise that commits the
// whole stack falls through to the all-in rules, which permit a short
// raise.
func (e *Engine) doRaise(idx, amount int) error {
	s := e.Seats[idx]
	if amount <= e.CurrentBet {
		return errs.Newf(errs.InvalidArgument, "raise must exceed current bet of %d", e.CurrentBet)
	}
	put := amount - s.BetThisRound
	if put <= 0 || put > s.Chips {
		return errs.Newf(errs.InvalidArgument, "raise of %d exceeds stack", amount)
	}
	if s.HasActed {
		// Action was not reopened (a short all-in since their last
		// act): calling or folding are the only options.
		return errs.New(errs.InvalidState, "raising is not allowed, action was not reopened")
	}
	if put == s.Chips {
		return e.doAllIn(idx)
	}
	if amount < e.CurrentBet+e.MinRaise {
		return errs.Newf(errs.InvalidArgument, "raise must be at least %d", e.CurrentBet+e.MinRaise)
	}

	e.commitChips(s, put)
	e.MinRaise = amount - e.CurrentBet
	e.CurrentBet = amount
	e.LastRaiserID = s.PlayerID
	s.HasActed = true
	s.LastAction = ActionRaise
	e.reopenAction(idx)
	return nil
}

func (e *Engine) doAllIn(idx int) error {
	s := e.Seats[idx]
	if s.Chips == 0 {
		return errs.New(errs.InvalidState, "no chips to push")
	}
	total := s.BetThisRound + s.Chips
	if s.HasActed && total > e.CurrentBet {
		return errs.New(errs.InvalidState, "raising is not allowed, action was not reopened")
	}

	raiseSize := total - e.CurrentBet
	e.commitChips(s, s.Chips)
	s.HasActed = true
	s.LastAction = ActionAllIn

	if raiseSize >= e.MinRaise {
		// Full raise: reopens action.
		e.MinRaise = raiseSize
		e.CurrentBet = total
		e.LastRaiserID = s.PlayerID
		e.reopenAction(idx)
	} else if raiseSize > 0 {
		// Short all-in: others must match the extra but cannot
		// re-raise; min_raise is unchanged.
		e.CurrentBet = total
	}
	return nil
}

// commitChips moves chips from the stack into the pot.
func (e *Engine) commitChips(s *Seat, amount int) {
	s.Chips -= amount
	s.BetThisRound += amount
	s.BetThisHand += amount
	e.Pot += amount
	if s.Chips == 0 {
		s.AllIn = true
	}
}

// reopenAction clears has-acted for every other seat that can still
// act, so a full raise gives everyone another decision.
func (e *Engine) reopenAction(raiserIdx int) {
	for i, other := range e.Seats {
		if i != raiserIdx && other.canAct() && other.inHand() {
			other.HasActed = false
		}
	}
}

// roundComplete reports whether every seat that can act has acted and
// matched the current bet.
func (e *Engine) roundComplete() bool {
	actors := e.seatsWhoCanAct()
	if len(actors) == 0 {
		return true
	}
	for _, i := range actors {
		s := e.Seats[i]
		if !s.HasActed {
			return false
		}
		if s.BetThisRound < e.CurrentBet {
			return false
		}
	}
	return true
}

// streetDeals maps each street to its successor and the cards dealt on
// entry.
func nextStreet(s Street) (Street, int) {
	switch s {
	case StreetPreflop:
		return StreetFlop, 3
	case StreetFlop:
		return StreetTurn, 1
	case StreetTurn:
		return StreetRiver, 1
	default:
		return StreetShowdown, 0
	}
}

// endBettingRound advances to the next street, running out the board
// when fewer than two seats can still act.
func (e *Engine) endBettingRound() error {
	for {
		if e.Street == StreetRiver {
			return e.showdown()
		}

		for _, s := range e.Seats {
			s.resetForNewRound()
		}
		e.CurrentBet = 0
		e.MinRaise = e.BigBlind
		e.LastRaiserID = ""

		street, n := nextStreet(e.Street)
		cards, err := e.Deck.Deal(n)
		if err != nil {
			return errs.Wrap(errs.Internal, err, "dealing community cards")
		}
		e.Street = street
		e.CommunityCards = append(e.CommunityCards, cards...)

		if len(e.seatsWhoCanAct()) < 2 {
			continue // all-in runout, no more betting
		}

		e.ActionOnIdx = e.nextSeat(e.DealerIdx, true)
		e.armActionDeadline()
		return nil
	}
}

// TimeoutAction returns the automatic action for the seat on action
// when its turn clock expires: check when legal, otherwise fold.
func (e *Engine) TimeoutAction() (string, Action, bool) {
	if !e.HandActive || e.ActionOnIdx < 0 {
		return "", "", false
	}
	s := e.Seats[e.ActionOnIdx]
	if s.BetThisRound == e.CurrentBet {
		return s.PlayerID, ActionCheck, true
	}
	return s.PlayerID, ActionFold, true
}

// ValidAction describes one legal move for the seat on action.
type ValidAction struct {
	Action    Action `json:"action"`
	Amount    int    `json:"amount,omitempty"`
	MinAmount int    `json:"min_amount,omitempty"`
	MaxAmount int    `json:"max_amount,omitempty"`
}

// ValidActions computes the legal moves for a player; empty unless that
// player is on action.
func (e *Engine) ValidActions(playerID string) []ValidAction {
	if !e.HandActive || e.Paused || e.ActionOnIdx < 0 {
		return nil
	}
	idx := e.findSeat(playerID)
	if idx != e.ActionOnIdx {
		return nil
	}
	s := e.Seats[idx]
	if !s.canAct() {
		return nil
	}

	gap := e.CurrentBet - s.BetThisRound
	actions := []ValidAction{{Action: ActionFold}}

	if gap == 0 {
		actions = append(actions, ValidAction{Action: ActionCheck})
	} else {
		call := gap
		if s.Chips < call {
			call = s.Chips
		}
		actions = append(actions, ValidAction{Action: ActionCall, Amount: call})
	}

	if s.HasActed {
		// Action not reopened: no raising.
		return actions
	}

	allInTotal := s.BetThisRound + s.Chips
	switch {
	case s.Chips > gap && s.Chips >= e.MinRaise+gap:
		actions = append(actions, ValidAction{
			Action:    ActionRaise,
			MinAmount: e.CurrentBet + e.MinRaise,
			MaxAmount: allInTotal,
		})
	case s.Chips > gap:
		// Short stack: the only forward move is all-in, offered as a
		// fixed-size raise.
		actions = append(actions, ValidAction{
			Action:    ActionRaise,
			MinAmount: allInTotal,
			MaxAmount: allInTotal,
		})
	}
	return actions
}
