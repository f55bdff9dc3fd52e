package engine

import (
	"time"

	"github.com/jdstemmler/poker/internal/deck"
)

// SpectatorID is the pseudo-viewer used for views that must never
// include hole cards.
const SpectatorID = "__spectator__"

// SeatView is the per-seat slice of an EngineView. Hole cards appear
// only under the reveal rules.
type SeatView struct {
	PlayerID       string      `json:"player_id"`
	Name           string      `json:"name"`
	IsCreator      bool        `json:"is_creator"`
	Chips          int         `json:"chips"`
	BetThisRound   int         `json:"bet_this_round"`
	BetThisHand    int         `json:"bet_this_hand"`
	Folded         bool        `json:"folded"`
	AllIn          bool        `json:"all_in"`
	SittingOut     bool        `json:"is_sitting_out"`
	RebuyQueued    bool        `json:"rebuy_queued"`
	HasShownCards  bool        `json:"has_shown_cards"`
	LastAction     Action      `json:"last_action"`
	RebuyCount     int         `json:"rebuy_count"`
	EliminatedHand int         `json:"eliminated_hand,omitempty"`
	CanRebuy       bool        `json:"can_rebuy"`
	HoleCards      []deck.Card `json:"hole_cards,omitempty"`
}

// EngineView is the authoritative state as one viewer sees it.
type EngineView struct {
	GameCode       string      `json:"game_code"`
	HandNumber     int         `json:"hand_number"`
	Street         Street      `json:"street"`
	Pot            int         `json:"pot"`
	CommunityCards []deck.Card `json:"community_cards"`
	DealerPlayerID string      `json:"dealer_player_id"`
	ActionOn       string      `json:"action_on"`
	CurrentBet     int         `json:"current_bet"`
	MinRaise       int         `json:"min_raise"`
	HandActive     bool        `json:"hand_active"`
	GameOver       bool        `json:"game_over"`
	Paused         bool        `json:"paused"`
	Message        string      `json:"message"`
	LastHandResult *HandResult `json:"last_hand_result"`

	Players      []SeatView    `json:"players"`
	MyCards      []deck.Card   `json:"my_cards"`
	ValidActions []ValidAction `json:"valid_actions"`

	TurnTimeout        int   `json:"turn_timeout"`
	ActionDeadline     int64 `json:"action_deadline"`
	AutoDealDeadline   int64 `json:"auto_deal_deadline"`
	GameStartedAt      int64 `json:"game_started_at"`
	TotalPausedSeconds int64 `json:"total_paused_seconds"`

	SmallBlind         int          `json:"small_blind"`
	BigBlind           int          `json:"big_blind"`
	BlindLevel         int          `json:"blind_level"`
	BlindLevelDuration int          `json:"blind_level_duration"`
	BlindSchedule      []BlindLevel `json:"blind_schedule"`
	NextBlindChangeAt  int64        `json:"next_blind_change_at"`

	AllowRebuys        bool `json:"allow_rebuys"`
	MaxRebuys          int  `json:"max_rebuys"`
	RebuyCutoffMinutes int  `json:"rebuy_cutoff_minutes"`

	FinalStandings []Standing `json:"final_standings"`
}

// unixMillis converts a deadline to wire form; zero times become 0.
func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// View builds the state as seen by one player. Pass SpectatorID (or
// any unknown id) for the spectator view: no own cards, no valid
// actions.
func (e *Engine) View(viewerID string) EngineView {
	actionOn := ""
	if e.HandActive && e.ActionOnIdx >= 0 {
		actionOn = e.Seats[e.ActionOnIdx].PlayerID
	}

	level, _ := e.currentBlindLevel()

	v := EngineView{
		GameCode:       e.GameCode,
		HandNumber:     e.HandNumber,
		Street:         e.Street,
		Pot:            e.Pot,
		CommunityCards: append([]deck.Card{}, e.CommunityCards...),
		DealerPlayerID: e.Seats[e.DealerIdx].PlayerID,
		ActionOn:       actionOn,
		CurrentBet:     e.CurrentBet,
		MinRaise:       e.MinRaise,
		HandActive:     e.HandActive,
		GameOver:       e.GameOver,
		Paused:         e.Paused,
		Message:        e.Message,
		LastHandResult: e.LastHandResult,

		MyCards:      []deck.Card{},
		ValidActions: e.ValidActions(viewerID),

		TurnTimeout:        e.Settings.TurnTimeout,
		ActionDeadline:     unixMillis(e.ActionDeadline),
		AutoDealDeadline:   unixMillis(e.AutoDealDeadline),
		GameStartedAt:      unixMillis(e.GameStartedAt),
		TotalPausedSeconds: e.TotalPausedSeconds,

		SmallBlind:         e.SmallBlind,
		BigBlind:           e.BigBlind,
		BlindLevel:         level,
		BlindLevelDuration: e.Settings.BlindLevelDuration,
		BlindSchedule:      e.BlindSchedule,
		NextBlindChangeAt:  unixMillis(e.NextBlindChangeAt()),

		AllowRebuys:        e.Settings.AllowRebuys,
		MaxRebuys:          e.Settings.MaxRebuys,
		RebuyCutoffMinutes: e.Settings.RebuyCutoffMinutes,

		FinalStandings: e.FinalStandings,
	}

	for _, s := range e.Seats {
		sv := SeatView{
			PlayerID:       s.PlayerID,
			Name:           s.Name,
			IsCreator:      s.IsCreator,
			Chips:          s.Chips,
			BetThisRound:   s.BetThisRound,
			BetThisHand:    s.BetThisHand,
			Folded:         s.Folded,
			AllIn:          s.AllIn,
			SittingOut:     s.SittingOut,
			RebuyQueued:    s.RebuyQueued,
			HasShownCards:  s.HasShownCards,
			LastAction:     s.LastAction,
			RebuyCount:     s.RebuyCount,
			EliminatedHand: s.EliminatedHand,
			CanRebuy:       e.CanRebuy(s),
		}
		// Another seat's hole cards are visible only at showdown, for
		// players who stayed in and chose to show. The viewer's own
		// cards travel in my_cards.
		if s.PlayerID != viewerID &&
			e.Street == StreetShowdown && !s.Folded && s.HasShownCards {
			sv.HoleCards = append([]deck.Card{}, s.HoleCards...)
		}
		v.Players = append(v.Players, sv)

		if s.PlayerID == viewerID && viewerID != SpectatorID {
			v.MyCards = append([]deck.Card{}, s.HoleCards...)
		}
	}
	return v
}

// SpectatorView is View for a viewer with no seat.
func (e *Engine) SpectatorView() EngineView {
	return e.View(SpectatorID)
}
