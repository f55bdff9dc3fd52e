// Package engine implements the authoritative No-Limit Texas Hold'em
// state machine: hand lifecycle, betting, side pots, showdown, the
// blind schedule, rebuys and pause handling. The engine is pure
// in-memory state — it performs no I/O and never blocks, so the session
// coordinator can run it inside a critical section.
package engine

import (
	"time"

	"github.com/coder/quartz"

	"github.com/jdstemmler/poker/internal/deck"
	"github.com/jdstemmler/poker/internal/errs"
)

// Street is the current betting round.
type Street string

const (
	StreetPreflop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
	StreetBetween  Street = "between"
)

// Action is a player's betting decision.
type Action string

const (
	ActionFold  Action = "fold"
	ActionCheck Action = "check"
	ActionCall  Action = "call"
	ActionRaise Action = "raise"
	ActionAllIn Action = "all_in"
)

// ParseAction validates an action tag from the wire.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionFold, ActionCheck, ActionCall, ActionRaise, ActionAllIn:
		return Action(s), nil
	}
	return "", errs.Newf(errs.InvalidArgument, "unknown action %q", s)
}

// Settings are frozen at game creation.
type Settings struct {
	StartingChips      int  `json:"starting_chips"`
	SmallBlind         int  `json:"small_blind"`
	BigBlind           int  `json:"big_blind"`
	AllowRebuys        bool `json:"allow_rebuys"`
	MaxRebuys          int  `json:"max_rebuys"`           // 0 = unlimited
	RebuyCutoffMinutes int  `json:"rebuy_cutoff_minutes"` // 0 = none
	TurnTimeout        int  `json:"turn_timeout"`         // seconds, 0 = off
	BlindLevelDuration int  `json:"blind_level_duration"` // minutes, 0 = fixed blinds
	TargetGameMinutes  int  `json:"target_game_minutes"`  // schedule horizon
	AutoDeal           bool `json:"auto_deal_enabled"`
	MaxPlayers         int  `json:"max_players"`
}

// Seat is the per-player state at the table.
type Seat struct {
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	PINHash   string `json:"pin_hash"`
	IsCreator bool   `json:"is_creator"`

	Chips        int         `json:"chips"`
	HoleCards    []deck.Card `json:"hole_cards"`
	BetThisRound int         `json:"bet_this_round"`
	BetThisHand  int         `json:"bet_this_hand"`

	Folded        bool `json:"folded"`
	AllIn         bool `json:"all_in"`
	HasActed      bool `json:"has_acted"`
	SittingOut    bool `json:"is_sitting_out"`
	RebuyQueued   bool `json:"rebuy_queued"`
	HasShownCards bool `json:"has_shown_cards"`

	LastAction     Action `json:"last_action"`
	RebuyCount     int    `json:"rebuy_count"`
	EliminatedHand int    `json:"eliminated_hand"` // 0 = never eliminated
}

// canAct reports whether the seat can still take a betting decision.
func (s *Seat) canAct() bool {
	return !s.Folded && !s.AllIn && !s.SittingOut && s.Chips > 0
}

// inHand reports whether the seat still contests the pot.
func (s *Seat) inHand() bool {
	return !s.Folded && !s.SittingOut && len(s.HoleCards) == 2
}

func (s *Seat) resetForNewHand() {
	s.HoleCards = nil
	s.BetThisRound = 0
	s.BetThisHand = 0
	s.Folded = false
	s.AllIn = false
	s.HasActed = false
	s.HasShownCards = false
	s.LastAction = ""
}

func (s *Seat) resetForNewRound() {
	s.BetThisRound = 0
	s.HasActed = false
}

// BlindLevel is one step of the blind schedule.
type BlindLevel struct {
	Small int `json:"small_blind"`
	Big   int `json:"big_blind"`
}

// Standing is one row of the final leaderboard.
type Standing struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Chips    int    `json:"chips"`
}

// HandWinner records one pot share in a hand result.
type HandWinner struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Amount   int    `json:"amount"`
	HandName string `json:"hand_name"`
}

// ShownHand is a revealed hand in a result.
type ShownHand struct {
	Cards    []deck.Card `json:"cards"`
	HandName string      `json:"hand_name,omitempty"`
}

// HandResult summarizes the most recently completed hand.
type HandResult struct {
	Winners        []HandWinner         `json:"winners"`
	Pot            int                  `json:"pot"`
	CommunityCards []deck.Card          `json:"community_cards"`
	PlayerHands    map[string]ShownHand `json:"player_hands"`
	Refunds        map[string]int       `json:"refunds,omitempty"`
}

// Engine is the full state of one game. All exported fields serialize
// to JSON for the store; the snapshot round trip is the identity.
type Engine struct {
	GameCode string   `json:"game_code"`
	Settings Settings `json:"settings"`

	Seats     []*Seat `json:"seats"`
	DealerIdx int     `json:"dealer_idx"`

	HandNumber     int         `json:"hand_number"`
	Street         Street      `json:"street"`
	Deck           *deck.Deck  `json:"deck"`
	CommunityCards []deck.Card `json:"community_cards"`
	Pot            int         `json:"pot"`
	CurrentBet     int         `json:"current_bet"`
	MinRaise       int         `json:"min_raise"`
	ActionOnIdx    int         `json:"action_on_idx"` // -1 = nobody
	LastRaiserID   string      `json:"last_raiser_id"`
	HandActive     bool        `json:"hand_active"`

	GameStartedAt      time.Time `json:"game_started_at"`
	Paused             bool      `json:"paused"`
	PauseStartedAt     time.Time `json:"pause_started_at"`
	TotalPausedSeconds int64     `json:"total_paused_seconds"`
	ActionDeadline     time.Time `json:"action_deadline"`
	AutoDealDeadline   time.Time `json:"auto_deal_deadline"`

	BlindLevel       int          `json:"blind_level"`
	BlindSchedule    []BlindLevel `json:"blind_schedule"`
	SmallBlind       int          `json:"small_blind"`
	BigBlind         int          `json:"big_blind"`
	GameOver         bool         `json:"game_over"`
	EliminationOrder []string     `json:"elimination_order"`
	FinalStandings   []Standing   `json:"final_standings,omitempty"`
	LastHandResult   *HandResult  `json:"last_hand_result,omitempty"`
	Message          string       `json:"message"`

	clock       quartz.Clock
	deckFactory func() *deck.Deck
}

// NewSeat describes a player joining a fresh game.
type NewSeat struct {
	PlayerID  string
	Name      string
	PINHash   string
	IsCreator bool
}

// New creates an engine for a freshly started game. Pass nil for clock
// to use real time.
func New(code string, players []NewSeat, settings Settings, clock quartz.Clock) *Engine {
	if clock == nil {
		clock = quartz.NewReal()
	}

	seats := make([]*Seat, 0, len(players))
	for _, p := range players {
		seats = append(seats, &Seat{
			PlayerID:  p.PlayerID,
			Name:      p.Name,
			PINHash:   p.PINHash,
			IsCreator: p.IsCreator,
			Chips:     settings.StartingChips,
		})
	}

	e := &Engine{
		GameCode:      code,
		Settings:      settings,
		Seats:         seats,
		Street:        StreetBetween,
		MinRaise:      settings.BigBlind,
		ActionOnIdx:   -1,
		GameStartedAt: clock.Now(),
		BlindSchedule: BuildBlindSchedule(settings),
		clock:         clock,
	}
	e.SmallBlind = e.BlindSchedule[0].Small
	e.BigBlind = e.BlindSchedule[0].Big
	return e
}

// SetClock injects a clock after rehydration. Restored engines default
// to real time.
func (e *Engine) SetClock(clock quartz.Clock) {
	e.clock = clock
}

// SetDeckFactory overrides how fresh decks are built, so tests can rig
// the deal.
func (e *Engine) SetDeckFactory(f func() *deck.Deck) {
	e.deckFactory = f
}

func (e *Engine) buildDeck() *deck.Deck {
	if e.deckFactory != nil {
		return e.deckFactory()
	}
	return deck.NewShuffled()
}

func (e *Engine) now() time.Time {
	if e.clock == nil {
		e.clock = quartz.NewReal()
	}
	return e.clock.Now()
}

// findSeat returns the seat index for a player id, or -1.
func (e *Engine) findSeat(playerID string) int {
	for i, s := range e.Seats {
		if s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Seat returns the seat for a player id, or nil.
func (e *Engine) Seat(playerID string) *Seat {
	if i := e.findSeat(playerID); i >= 0 {
		return e.Seats[i]
	}
	return nil
}

// nextSeat finds the next seat after idx that is dealt into the hand,
// wrapping around. With onlyCanAct it additionally skips all-in and
// broke seats.
func (e *Engine) nextSeat(idx int, onlyCanAct bool) int {
	n := len(e.Seats)
	for offset := 1; offset <= n; offset++ {
		i := (idx + offset) % n
		s := e.Seats[i]
		if s.SittingOut || s.Folded {
			continue
		}
		if onlyCanAct && !s.canAct() {
			continue
		}
		return i
	}
	return idx
}

// seatsInHand returns indices of non-folded dealt seats.
func (e *Engine) seatsInHand() []int {
	var out []int
	for i, s := range e.Seats {
		if s.inHand() {
			out = append(out, i)
		}
	}
	return out
}

// seatsWhoCanAct returns indices of seats that can still bet.
func (e *Engine) seatsWhoCanAct() []int {
	var out []int
	for i, s := range e.Seats {
		if s.canAct() && s.inHand() {
			out = append(out, i)
		}
	}
	return out
}

// effectiveElapsed is wall time since game start minus paused time. An
// in-progress pause counts as paused time.
func (e *Engine) effectiveElapsed() time.Duration {
	elapsed := e.now().Sub(e.GameStartedAt) - time.Duration(e.TotalPausedSeconds)*time.Second
	if e.Paused && !e.PauseStartedAt.IsZero() {
		elapsed -= e.now().Sub(e.PauseStartedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// SetPaused pauses or resumes the game. Pausing is legal only between
// hands; while paused no deadlines fire and the blind clock stops.
func (e *Engine) SetPaused(paused bool) error {
	if e.GameOver {
		return errs.New(errs.InvalidState, "game is over")
	}
	if paused == e.Paused {
		return nil
	}
	if paused {
		if e.HandActive {
			return errs.New(errs.InvalidState, "cannot pause during a hand")
		}
		e.Paused = true
		e.PauseStartedAt = e.now()
		// Suspend the auto-deal countdown.
		e.AutoDealDeadline = time.Time{}
		e.Message = "Game paused"
		return nil
	}

	span := e.now().Sub(e.PauseStartedAt)
	if span > 0 {
		e.TotalPausedSeconds += int64(span / time.Second)
	}
	e.Paused = false
	e.PauseStartedAt = time.Time{}
	if !e.HandActive && e.Settings.AutoDeal && !e.GameOver {
		e.AutoDealDeadline = e.now().Add(autoDealDelay)
	}
	e.Message = "Game resumed"
	return nil
}

// ArmAutoDeal starts the between-hands countdown when auto-deal is on.
// No-op while a hand is live, the game is paused, or play has ended.
func (e *Engine) ArmAutoDeal() {
	if e.Settings.AutoDeal && !e.HandActive && !e.Paused && !e.GameOver {
		e.AutoDealDeadline = e.now().Add(autoDealDelay)
	}
}

// CanRebuy reports whether the seat satisfies the rebuy predicate right
// now.
func (e *Engine) CanRebuy(s *Seat) bool {
	if !e.Settings.AllowRebuys || s.Chips > 0 {
		return false
	}
	if e.Settings.MaxRebuys > 0 && s.RebuyCount >= e.Settings.MaxRebuys {
		return false
	}
	if cutoff := e.Settings.RebuyCutoffMinutes; cutoff > 0 {
		if e.effectiveElapsed() >= time.Duration(cutoff)*time.Minute {
			return false
		}
	}
	return true
}

// RequestRebuy restores a busted player's stack, or queues the rebuy
// for the next hand when one is in progress.
func (e *Engine) RequestRebuy(playerID string) error {
	if e.GameOver {
		return errs.New(errs.InvalidState, "game is over")
	}
	s := e.Seat(playerID)
	if s == nil {
		return errs.Newf(errs.NotFound, "player %s not at table", playerID)
	}
	if !e.CanRebuy(s) {
		return errs.New(errs.InvalidState, "rebuy not available")
	}
	if e.HandActive {
		s.RebuyQueued = true
		return nil
	}
	e.fulfillRebuy(s)
	return nil
}

// CancelRebuy clears a queued rebuy.
func (e *Engine) CancelRebuy(playerID string) error {
	s := e.Seat(playerID)
	if s == nil {
		return errs.Newf(errs.NotFound, "player %s not at table", playerID)
	}
	s.RebuyQueued = false
	return nil
}

// fulfillRebuy applies a rebuy immediately.
func (e *Engine) fulfillRebuy(s *Seat) {
	s.Chips = e.Settings.StartingChips
	s.SittingOut = false
	s.RebuyQueued = false
	s.RebuyCount++
	s.EliminatedHand = 0
	e.removeFromEliminationOrder(s.PlayerID)
}

func (e *Engine) removeFromEliminationOrder(playerID string) {
	out := e.EliminationOrder[:0]
	for _, id := range e.EliminationOrder {
		if id != playerID {
			out = append(out, id)
		}
	}
	e.EliminationOrder = out
}

// ShowCards voluntarily reveals a player's hole cards. Between hands it
// also merges the hand into the last result so late reveals reach the
// table.
func (e *Engine) ShowCards(playerID string) error {
	s := e.Seat(playerID)
	if s == nil {
		return errs.Newf(errs.NotFound, "player %s not at table", playerID)
	}
	if len(s.HoleCards) != 2 {
		return errs.New(errs.InvalidState, "no cards to show")
	}
	s.HasShownCards = true

	if !e.HandActive && e.LastHandResult != nil {
		if _, ok := e.LastHandResult.PlayerHands[playerID]; !ok {
			name := ""
			if all := append(append([]deck.Card{}, s.HoleCards...), e.LastHandResult.CommunityCards...); len(all) >= 5 {
				name = mustDescribe(all)
			}
			e.LastHandResult.PlayerHands[playerID] = ShownHand{
				Cards:    append([]deck.Card{}, s.HoleCards...),
				HandName: name,
			}
		}
	}
	return nil
}
