package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapBlind(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   float64
		want int
	}{
		{0, 1},
		{1, 1},
		{7, 6},    // equidistant ties go to the smaller entry
		{12, 10},
		{13, 15},
		{70, 60},
		{123, 100},
		{22500, 20000},
		{1e9, 100000}, // clamps to the ladder top
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, snapBlind(tc.in), "snap(%v)", tc.in)
	}
}

func TestBuildBlindScheduleFixed(t *testing.T) {
	t.Parallel()
	schedule := BuildBlindSchedule(testSettings())
	require.Len(t, schedule, 1)
	assert.Equal(t, BlindLevel{Small: 10, Big: 20}, schedule[0])
}

func TestBuildBlindScheduleRamp(t *testing.T) {
	t.Parallel()
	settings := Settings{
		StartingChips:      5000,
		BlindLevelDuration: 20,
		TargetGameMinutes:  240,
	}
	schedule := BuildBlindSchedule(settings)

	require.GreaterOrEqual(t, len(schedule), 12, "12 scheduled levels plus overtime")
	assert.Equal(t, BlindLevel{Small: 25, Big: 50}, schedule[0], "opens at chips/100")

	for i := 1; i < len(schedule); i++ {
		assert.Greater(t, schedule[i].Big, schedule[i-1].Big, "level %d", i)
	}
	for i, lvl := range schedule {
		want := lvl.Big / 2
		if want < 1 {
			want = 1
		}
		assert.Equal(t, want, lvl.Small, "level %d", i)
	}

	last := schedule[len(schedule)-1].Big
	assert.GreaterOrEqual(t, last, 3*settings.StartingChips, "overtime runs until blinds swamp the stacks")
}

// Running past the end of the schedule clamps the read-only level and
// appends a 1.5x level at the next deal.
func TestScheduleExtension(t *testing.T) {
	t.Parallel()
	settings := Settings{
		StartingChips:      5000,
		BlindLevelDuration: 20,
		TargetGameMinutes:  240,
		MaxPlayers:         8,
	}
	e, clock := newTestEngine(t, settings, "alice", "bob")
	k := len(e.BlindSchedule)
	lastBig := e.BlindSchedule[k-1].Big

	clock.Advance(time.Duration(k)*20*time.Minute + 10*time.Minute)

	level, outran := e.currentBlindLevel()
	assert.Equal(t, k-1, level, "read-only view clamps")
	assert.True(t, outran)

	rig(e, "AsKs"+"AdKd"+"2c3c4c5c6c")
	require.NoError(t, e.StartHand())

	require.Len(t, e.BlindSchedule, k+1)
	want := snapBlind(float64(lastBig) * 1.5)
	if want < lastBig {
		want = lastBig
	}
	assert.Equal(t, want, e.BlindSchedule[k].Big)
	assert.Equal(t, k, e.BlindLevel)
	assert.Equal(t, e.BlindSchedule[k].Big, e.BigBlind)
}

func TestBlindsAdvanceBetweenHands(t *testing.T) {
	t.Parallel()
	settings := Settings{
		StartingChips:      1000,
		BlindLevelDuration: 1,
		TargetGameMinutes:  4,
		MaxPlayers:         8,
	}
	e, clock := newTestEngine(t, settings, "alice", "bob")

	rig(e, "AsKs"+"AdKd")
	require.NoError(t, e.StartHand())
	assert.Equal(t, 5, e.SmallBlind)
	assert.Equal(t, 10, e.BigBlind)
	assert.Equal(t, 0, e.BlindLevel)
	require.NoError(t, e.ProcessAction("alice", ActionFold, 0))

	clock.Advance(70 * time.Second)
	rig(e, "AsKs"+"AdKd")
	require.NoError(t, e.StartHand())
	assert.Equal(t, 1, e.BlindLevel)
	assert.Equal(t, 20, e.BigBlind)
	assert.Equal(t, 10, e.Seat("bob").BetThisRound, "dealer bob posts the new small blind")
}

func TestNextBlindChangeAt(t *testing.T) {
	t.Parallel()

	fixed, _ := newTestEngine(t, testSettings(), "alice", "bob")
	assert.True(t, fixed.NextBlindChangeAt().IsZero(), "fixed blinds never change")

	settings := Settings{
		StartingChips:      1000,
		BlindLevelDuration: 20,
		TargetGameMinutes:  240,
		MaxPlayers:         8,
	}
	e, clock := newTestEngine(t, settings, "alice", "bob")
	start := clock.Now()
	assert.Equal(t, start.Add(20*time.Minute), e.NextBlindChangeAt())

	// A pause shifts the change out by the paused duration.
	clock.Advance(5 * time.Minute)
	require.NoError(t, e.SetPaused(true))
	clock.Advance(10 * time.Minute)
	require.NoError(t, e.SetPaused(false))
	assert.Equal(t, start.Add(30*time.Minute), e.NextBlindChangeAt())
}
