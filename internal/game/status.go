package game

import (
	"fmt"

	"github.com/ballparklive/ballpark/internal/mlb"
)

// LiveStatus is a derived scoreboard snapshot, recomputed per play and never
// persisted.
type LiveStatus struct {
	Type           string     `json:"type"`
	Inning         string     `json:"inning"`
	AwayTeam       TeamStatus `json:"awayTeam"`
	HomeTeam       TeamStatus `json:"homeTeam"`
	CurrentPitcher string     `json:"currentPitcher"`
	PitchCount     int        `json:"pitchCount"`
}

type TeamStatus struct {
	Name   string `json:"name"`
	Record string `json:"record"`
	Score  int    `json:"score"`
}

// BuildLiveStatus derives a scoreboard snapshot for one play. Team names and
// records always come from the feed document itself.
func BuildLiveStatus(feed *mlb.GameFeed, play *mlb.Play, awayScore, homeScore int) LiveStatus {
	status := LiveStatus{
		Type:   "MLB • LIVE",
		Inning: InningLabel(play.About.IsTopInning, play.About.Inning),
	}

	away := feed.GameData.Teams.Away
	status.AwayTeam = TeamStatus{
		Name:   away.Name,
		Record: fmt.Sprintf("%d-%d", away.Record.Wins, away.Record.Losses),
		Score:  awayScore,
	}

	home := feed.GameData.Teams.Home
	status.HomeTeam = TeamStatus{
		Name:   home.Name,
		Record: fmt.Sprintf("%d-%d", home.Record.Wins, home.Record.Losses),
		Score:  homeScore,
	}

	if play.Matchup != nil && play.Matchup.Pitcher != nil {
		status.CurrentPitcher = play.Matchup.Pitcher.FullName
	}
	if play.Count != nil {
		status.PitchCount = play.Count.Pitches
	}

	return status
}

// InningLabel formats an inning for display, e.g. "Top 7th".
func InningLabel(topInning bool, inning int) string {
	half := "Bottom"
	if topInning {
		half = "Top"
	}
	return fmt.Sprintf("%s %s", half, ordinal(inning))
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
