package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdstemmler/poker/internal/errs"
)

func TestStartHandPreconditions(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob")
	rig(e, "AsKs"+"AdKd"+"2c3c4c5c6c")

	require.NoError(t, e.StartHand())
	err := e.StartHand()
	assert.True(t, errs.IsKind(err, errs.InvalidState), "hand already active")

	e2, _ := newTestEngine(t, testSettings(), "alice", "bob")
	e2.Seat("bob").Chips = 0
	err = e2.StartHand()
	assert.True(t, errs.IsKind(err, errs.InvalidState), "one live player")
}

func TestBlindsThreeHanded(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	// Dealer alice, small blind bob, big blind carol, action on alice.
	assert.Equal(t, 0, e.DealerIdx)
	assert.Equal(t, 10, e.Seat("bob").BetThisRound)
	assert.Equal(t, 20, e.Seat("carol").BetThisRound)
	assert.Equal(t, 20, e.CurrentBet)
	assert.Equal(t, 20, e.MinRaise)
	assert.Equal(t, "carol", e.LastRaiserID)
	assert.Equal(t, "alice", e.Seats[e.ActionOnIdx].PlayerID)
	assert.Equal(t, 30, e.Pot)
}

func TestBlindsHeadsUpDealerPostsSmall(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob")
	rig(e, "AsKs"+"AdKd"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	assert.Equal(t, 10, e.Seat("alice").BetThisRound)
	assert.Equal(t, 20, e.Seat("bob").BetThisRound)
	assert.Equal(t, "alice", e.Seats[e.ActionOnIdx].PlayerID)
}

func TestActionTurnOrderEnforced(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	err := e.ProcessAction("bob", ActionCall, 0)
	assert.True(t, errs.IsKind(err, errs.InvalidState))

	err = e.ProcessAction("mallory", ActionFold, 0)
	assert.True(t, errs.IsKind(err, errs.NotFound))
}

func TestCheckFacingBetRejected(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	err := e.ProcessAction("alice", ActionCheck, 0)
	assert.True(t, errs.IsKind(err, errs.InvalidState))
}

func TestBigBlindOption(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c"+"5h"+"6s")
	require.NoError(t, e.StartHand())

	require.NoError(t, e.ProcessAction("alice", ActionCall, 0))
	require.NoError(t, e.ProcessAction("bob", ActionCall, 0))

	// The big blind still gets to act before the round closes.
	assert.Equal(t, StreetPreflop, e.Street)
	assert.Equal(t, "carol", e.Seats[e.ActionOnIdx].PlayerID)
	require.NoError(t, e.ProcessAction("carol", ActionCheck, 0))
	assert.Equal(t, StreetFlop, e.Street)
	assert.Len(t, e.CommunityCards, 3)
	assert.Equal(t, 0, e.CurrentBet)
	assert.Equal(t, 20, e.MinRaise)
	// Postflop the first live seat left of the dealer acts first.
	assert.Equal(t, "bob", e.Seats[e.ActionOnIdx].PlayerID)
}

func TestRaiseValidation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		amount int
		kind   errs.Kind
	}{
		{"below current bet", 15, errs.InvalidArgument},
		{"below min raise", 30, errs.InvalidArgument},
		{"beyond stack", 1500, errs.InvalidArgument},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
			rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c5c6c")
			require.NoError(t, e.StartHand())

			err := e.ProcessAction("alice", ActionRaise, tc.amount)
			assert.True(t, errs.IsKind(err, tc.kind), "got %v", err)
		})
	}
}

func TestRaiseReopensAction(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	require.NoError(t, e.ProcessAction("alice", ActionRaise, 60))
	assert.Equal(t, 60, e.CurrentBet)
	assert.Equal(t, 40, e.MinRaise)
	assert.Equal(t, "alice", e.LastRaiserID)

	require.NoError(t, e.ProcessAction("bob", ActionRaise, 100))
	assert.Equal(t, 100, e.CurrentBet)
	assert.Equal(t, 40, e.MinRaise)

	// Alice faces the re-raise with a fresh decision.
	require.NoError(t, e.ProcessAction("carol", ActionFold, 0))
	assert.False(t, e.Seat("alice").HasActed)
	require.NoError(t, e.ProcessAction("alice", ActionRaise, 140))
	assert.Equal(t, 140, e.CurrentBet)
}

// A short all-in raises the price to call but does not give players who
// already acted a new raising right.
func TestShortAllInDoesNotReopen(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	e.Seat("bob").Chips = 80
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	require.NoError(t, e.ProcessAction("alice", ActionRaise, 60))
	require.NoError(t, e.ProcessAction("bob", ActionAllIn, 0))
	assert.Equal(t, 80, e.CurrentBet, "price to call rises")
	assert.Equal(t, 40, e.MinRaise, "min raise unchanged")
	assert.Equal(t, "alice", e.LastRaiserID, "not a full raise")
	require.NoError(t, e.ProcessAction("carol", ActionCall, 0))

	// Back on alice: call or fold only.
	require.Equal(t, "alice", e.Seats[e.ActionOnIdx].PlayerID)
	err := e.ProcessAction("alice", ActionRaise, 160)
	assert.True(t, errs.IsKind(err, errs.InvalidState), "got %v", err)
	err = e.ProcessAction("alice", ActionAllIn, 0)
	assert.True(t, errs.IsKind(err, errs.InvalidState), "got %v", err)

	actions := e.ValidActions("alice")
	require.Len(t, actions, 2)
	assert.Equal(t, ActionFold, actions[0].Action)
	assert.Equal(t, ActionCall, actions[1].Action)
	assert.Equal(t, 20, actions[1].Amount)

	require.NoError(t, e.ProcessAction("alice", ActionCall, 0))
	assert.Equal(t, StreetFlop, e.Street)
	assert.Equal(t, 240, e.Pot)
}

func TestFullAllInReopensAction(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	e.Seat("bob").Chips = 200
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	require.NoError(t, e.ProcessAction("alice", ActionRaise, 60))
	require.NoError(t, e.ProcessAction("bob", ActionAllIn, 0))
	assert.Equal(t, 200, e.CurrentBet)
	assert.Equal(t, 140, e.MinRaise)
	assert.Equal(t, "bob", e.LastRaiserID)
	require.NoError(t, e.ProcessAction("carol", ActionFold, 0))

	// Alice may re-raise over a full all-in raise.
	require.NoError(t, e.ProcessAction("alice", ActionRaise, 340))
	assert.Equal(t, 340, e.CurrentBet)
}

func TestCallShortStackBecomesAllIn(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob")
	e.Seat("bob").Chips = 50
	rig(e, "AsKs"+"AdKd"+"2c3c4c"+"5h"+"9s")
	require.NoError(t, e.StartHand())

	require.NoError(t, e.ProcessAction("alice", ActionRaise, 200))
	require.NoError(t, e.ProcessAction("bob", ActionCall, 0))

	bob := e.Seat("bob")
	assert.True(t, bob.AllIn)
	assert.Equal(t, 0, bob.Chips)
	assert.Equal(t, ActionAllIn, bob.LastAction)
	// Uncalled excess is refunded before awards.
	require.NotNil(t, e.LastHandResult)
	assert.Equal(t, 150, e.LastHandResult.Refunds["alice"])
}

func TestValidActions(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	assert.Empty(t, e.ValidActions("bob"), "not on action")
	assert.Empty(t, e.ValidActions("mallory"))

	actions := e.ValidActions("alice")
	require.Len(t, actions, 3)
	assert.Equal(t, ActionFold, actions[0].Action)
	assert.Equal(t, ActionCall, actions[1].Action)
	assert.Equal(t, 20, actions[1].Amount)
	assert.Equal(t, ActionRaise, actions[2].Action)
	assert.Equal(t, 40, actions[2].MinAmount)
	assert.Equal(t, 1000, actions[2].MaxAmount)
}

func TestValidActionsShortStack(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	e.Seat("alice").Chips = 30
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	// 30 chips facing 20: cannot make a full min raise, all-in only.
	actions := e.ValidActions("alice")
	require.Len(t, actions, 3)
	assert.Equal(t, ActionRaise, actions[2].Action)
	assert.Equal(t, 30, actions[2].MinAmount)
	assert.Equal(t, 30, actions[2].MaxAmount)
}

func TestTimeoutAction(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob", "carol")
	rig(e, "AsKs"+"AdKd"+"AcKc"+"2c3c4c"+"5h"+"6s")
	require.NoError(t, e.StartHand())

	pid, action, ok := e.TimeoutAction()
	require.True(t, ok)
	assert.Equal(t, "alice", pid)
	assert.Equal(t, ActionFold, action, "facing the blind")

	require.NoError(t, e.ProcessAction("alice", ActionCall, 0))
	require.NoError(t, e.ProcessAction("bob", ActionCall, 0))
	require.NoError(t, e.ProcessAction("carol", ActionCheck, 0))

	pid, action, ok = e.TimeoutAction()
	require.True(t, ok)
	assert.Equal(t, "bob", pid)
	assert.Equal(t, ActionCheck, action, "no bet to face")
}

func TestActionDeadlineArmed(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.TurnTimeout = 30
	e, clock := newTestEngine(t, settings, "alice", "bob")
	rig(e, "AsKs"+"AdKd"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	require.Equal(t, clock.Now().Add(30*time.Second), e.ActionDeadline)
	clock.Advance(10 * time.Second)
	require.NoError(t, e.ProcessAction("alice", ActionCall, 0))
	assert.Equal(t, clock.Now().Add(30*time.Second), e.ActionDeadline, "deadline re-arms per action")
}

func TestAllInFromBlindsRunsOut(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, testSettings(), "alice", "bob")
	e.Seat("alice").Chips = 10
	e.Seat("bob").Chips = 15
	rig(e, "AsKs"+"AdKd"+"2c3c4c"+"5h"+"9s")
	require.NoError(t, e.StartHand())

	// Both posts were all-in; the board runs out with no betting.
	assert.False(t, e.HandActive)
	require.NotNil(t, e.LastHandResult)
	assert.Len(t, e.LastHandResult.CommunityCards, 5)
}
