package engine

import (
	"math"
	"time"
)

// blindTable is the standard tournament blind ladder. Schedule values
// snap to the nearest entry.
var blindTable = []int{
	1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 25, 30, 40, 50, 60, 80, 100,
	150, 200, 250, 300, 400, 500, 600, 800, 1000, 1500, 2000, 2500,
	3000, 4000, 5000, 6000, 8000, 10000, 15000, 20000, 25000, 30000,
	40000, 50000, 60000, 80000, 100000,
}

// snapBlind rounds a value to the nearest ladder entry, ties toward the
// smaller one. Values beyond the ladder clamp to its top.
func snapBlind(v float64) int {
	if v <= float64(blindTable[0]) {
		return blindTable[0]
	}
	top := blindTable[len(blindTable)-1]
	if v >= float64(top) {
		return top
	}
	best := blindTable[0]
	bestDist := math.Abs(v - float64(best))
	for _, entry := range blindTable[1:] {
		dist := math.Abs(v - float64(entry))
		if dist < bestDist {
			best = entry
			bestDist = dist
		}
	}
	return best
}

// nextLadderEntry returns the smallest ladder entry strictly above v,
// or the top when v is already there.
func nextLadderEntry(v int) int {
	for _, entry := range blindTable {
		if entry > v {
			return entry
		}
	}
	return blindTable[len(blindTable)-1]
}

// levelFor builds a full blind level from a big blind.
func levelFor(bb int) BlindLevel {
	sb := bb / 2
	if sb < 1 {
		sb = 1
	}
	return BlindLevel{Small: sb, Big: bb}
}

// BuildBlindSchedule derives the blind schedule from the game settings.
// Fixed-blind games (level duration 0) get a single configured level.
// Scheduled games ramp from snap(chips/100): a linear phase for the
// first half of the target levels, a geometric fill toward the starting
// stack, then 1.5x overtime levels.
func BuildBlindSchedule(settings Settings) []BlindLevel {
	if settings.BlindLevelDuration <= 0 {
		return []BlindLevel{{Small: settings.SmallBlind, Big: settings.BigBlind}}
	}

	chips := settings.StartingChips
	target := settings.TargetGameMinutes
	if target <= 0 {
		target = 240
	}

	bb0 := snapBlind(float64(chips) / 100)
	total := (target + settings.BlindLevelDuration - 1) / settings.BlindLevelDuration
	if total < 1 {
		total = 1
	}
	linear := (total + 1) / 2

	schedule := []BlindLevel{levelFor(bb0)}
	for i := 2; i <= linear; i++ {
		bb := snapBlind(float64(bb0 * i))
		if bb <= schedule[len(schedule)-1].Big {
			bb = nextLadderEntry(schedule[len(schedule)-1].Big)
		}
		schedule = append(schedule, levelFor(bb))
	}

	if remaining := total - len(schedule); remaining > 0 {
		last := float64(schedule[len(schedule)-1].Big)
		ratio := 1.5
		if last < float64(chips) && remaining > 1 {
			ratio = math.Pow(float64(chips)/last, 1/float64(remaining-1))
		}
		value := last
		for i := 0; i < remaining; i++ {
			value *= ratio
			bb := snapBlind(value)
			if bb <= schedule[len(schedule)-1].Big {
				bb = nextLadderEntry(schedule[len(schedule)-1].Big)
			}
			schedule = append(schedule, levelFor(bb))
		}
	}

	// Overtime continuation at 1.5x until the blinds swamp the stacks.
	top := blindTable[len(blindTable)-1]
	for {
		last := schedule[len(schedule)-1].Big
		if last >= 3*chips || last >= top {
			break
		}
		bb := snapBlind(float64(last) * 1.5)
		if bb <= last {
			bb = nextLadderEntry(last)
		}
		schedule = append(schedule, levelFor(bb))
	}
	return schedule
}

// extendSchedule appends 1.5x levels until the schedule covers the
// given level index.
func (e *Engine) extendSchedule(level int) {
	for len(e.BlindSchedule) <= level {
		last := e.BlindSchedule[len(e.BlindSchedule)-1].Big
		bb := snapBlind(float64(last) * 1.5)
		if bb < last {
			bb = last
		}
		e.BlindSchedule = append(e.BlindSchedule, levelFor(bb))
	}
}

// currentBlindLevel computes the schedule level for the effective
// elapsed time without mutating state; the bool reports whether the
// clock has outrun the schedule.
func (e *Engine) currentBlindLevel() (int, bool) {
	if e.Settings.BlindLevelDuration <= 0 || len(e.BlindSchedule) == 0 {
		return 0, false
	}
	levelDuration := time.Duration(e.Settings.BlindLevelDuration) * time.Minute
	level := int(e.effectiveElapsed() / levelDuration)
	if level >= len(e.BlindSchedule) {
		return len(e.BlindSchedule) - 1, true
	}
	return level, false
}

// syncBlindLevel advances the persisted blind level to match the clock,
// extending the schedule when the game has run past its end.
func (e *Engine) syncBlindLevel() {
	if e.Settings.BlindLevelDuration <= 0 {
		e.SmallBlind = e.BlindSchedule[0].Small
		e.BigBlind = e.BlindSchedule[0].Big
		return
	}
	levelDuration := time.Duration(e.Settings.BlindLevelDuration) * time.Minute
	level := int(e.effectiveElapsed() / levelDuration)
	e.extendSchedule(level)
	e.BlindLevel = level
	e.SmallBlind = e.BlindSchedule[level].Small
	e.BigBlind = e.BlindSchedule[level].Big
}

// NextBlindChangeAt returns the wall time the next blind level starts,
// or the zero time for fixed blinds and finished games.
func (e *Engine) NextBlindChangeAt() time.Time {
	if e.GameOver || e.Settings.BlindLevelDuration <= 0 {
		return time.Time{}
	}
	level, _ := e.currentBlindLevel()
	levelDuration := time.Duration(e.Settings.BlindLevelDuration) * time.Minute

	next := e.GameStartedAt.
		Add(time.Duration(e.TotalPausedSeconds) * time.Second).
		Add(time.Duration(level+1) * levelDuration)
	if e.Paused && !e.PauseStartedAt.IsZero() {
		next = next.Add(e.now().Sub(e.PauseStartedAt))
	}
	return next
}
