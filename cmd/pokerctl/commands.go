package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jdstemmler/poker/internal/engine"
)

var (
	codeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7D7D"))
	headStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// CreateCmd creates a game and prints the room code to share.
type CreateCmd struct {
	Name string `kong:"required,help='Your display name'"`
	PIN  string `kong:"required,name='pin',help='4-digit PIN protecting your seat'"`

	Chips        int  `kong:"default='1000',help='Starting chips'"`
	SmallBlind   int  `kong:"default='10',help='Small blind (fixed-blind games)'"`
	BigBlind     int  `kong:"default='20',help='Big blind (fixed-blind games)'"`
	MaxPlayers   int  `kong:"default='8',help='Table size'"`
	TurnTimeout  int  `kong:"default='0',help='Turn clock in seconds, 0 disables'"`
	LevelMinutes int  `kong:"default='0',help='Blind level duration in minutes, 0 keeps blinds fixed'"`
	GameMinutes  int  `kong:"default='240',help='Target game length for the blind ramp'"`
	Rebuys       bool `kong:"help='Allow rebuys'"`
	MaxRebuys    int  `kong:"default='0',help='Rebuy limit per player, 0 is unlimited'"`
	RebuyCutoff  int  `kong:"default='0',help='Rebuy cutoff in minutes, 0 disables'"`
	AutoDeal     bool `kong:"help='Deal the next hand automatically'"`
}

func (c *CreateCmd) Run(cli *CLI) error {
	client := newClient(cli)
	created, err := client.create(c.Name, c.PIN, engine.Settings{
		StartingChips:      c.Chips,
		SmallBlind:         c.SmallBlind,
		BigBlind:           c.BigBlind,
		AllowRebuys:        c.Rebuys,
		MaxRebuys:          c.MaxRebuys,
		RebuyCutoffMinutes: c.RebuyCutoff,
		TurnTimeout:        c.TurnTimeout,
		BlindLevelDuration: c.LevelMinutes,
		TargetGameMinutes:  c.GameMinutes,
		AutoDeal:           c.AutoDeal,
		MaxPlayers:         c.MaxPlayers,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  %s %s\n", labelStyle.Render("room code"), codeStyle.Render(created.Code))
	fmt.Printf("  %s %s\n", labelStyle.Render("player id"), created.PlayerID)
	fmt.Println()
	fmt.Printf("  share the code; friends join with: pokerctl join %s --name <name> --pin <pin>\n", created.Code)
	return nil
}

// JoinCmd takes a seat (or reclaims one) in an existing game.
type JoinCmd struct {
	Code string `kong:"arg,required,help='Room code'"`
	Name string `kong:"required,help='Your display name'"`
	PIN  string `kong:"required,name='pin',help='4-digit PIN'"`
}

func (c *JoinCmd) Run(cli *CLI) error {
	client := newClient(cli)
	joined, err := client.join(c.Code, c.Name, c.PIN)
	if err != nil {
		return err
	}
	if joined.Reconnected {
		fmt.Printf("reconnected to %s as %s\n", codeStyle.Render(joined.Lobby.Code), c.Name)
	} else {
		fmt.Printf("joined %s as %s\n", codeStyle.Render(joined.Lobby.Code), c.Name)
	}
	fmt.Printf("  %s %s\n", labelStyle.Render("player id"), joined.PlayerID)
	fmt.Printf("  %s %d\n", labelStyle.Render("players"), len(joined.Lobby.Players))
	return nil
}

// ListCmd prints every game the daemon knows about.
type ListCmd struct{}

func (c *ListCmd) Run(cli *CLI) error {
	client := newClient(cli)
	games, err := client.list()
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Println("no games")
		return nil
	}

	fmt.Println(headStyle.Render(fmt.Sprintf("%-8s %-8s %8s  %s", "CODE", "STATUS", "PLAYERS", "CREATED")))
	for _, g := range games {
		fmt.Printf("%-8s %-8s %8d  %s\n",
			g.Code, g.Status, g.Players,
			time.Unix(g.CreatedAt, 0).Format("2006-01-02 15:04"))
	}
	return nil
}

// MetricsCmd prints created/completed/cleaned counts per window.
type MetricsCmd struct{}

func (c *MetricsCmd) Run(cli *CLI) error {
	client := newClient(cli)
	summary, err := client.metrics()
	if err != nil {
		return err
	}

	windows := []string{"24h", "7d", "30d"}
	fmt.Println(headStyle.Render(fmt.Sprintf("%-10s %8s %8s %8s", "METRIC", "24H", "7D", "30D")))
	for _, row := range []struct {
		name   string
		counts map[string]int64
	}{
		{"created", summary.Created},
		{"completed", summary.Completed},
		{"cleaned", summary.Cleaned},
	} {
		fmt.Printf("%-10s", row.name)
		for _, w := range windows {
			fmt.Printf(" %8d", row.counts[w])
		}
		fmt.Println()
	}
	return nil
}
