package game

import (
	"strings"

	"github.com/ballparklive/ballpark/internal/mlb"
)

// Event types that carry extra validity requirements.
const (
	TypeAdvisory = "game_advisory"
	TypeStatus   = "GAME_STATUS"
)

// Event is one discrete play extracted from an upstream feed snapshot.
// Description is replaced by generated commentary during enrichment;
// the event is treated as immutable after that.
type Event struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Inning      int    `json:"inning"`
	TopInning   bool   `json:"topInning"`
	BatterName  string `json:"batterName,omitempty"`
	PitcherName string `json:"pitcherName,omitempty"`
	Result      string `json:"result"`
	HomeTeam    string `json:"homeTeam,omitempty"`
	AwayTeam    string `json:"awayTeam,omitempty"`
	HomeScore   int    `json:"homeScore"`
	AwayScore   int    `json:"awayScore"`
	Balls       int    `json:"balls"`
	Strikes     int    `json:"strikes"`
	Outs        int    `json:"outs"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// EventFromPlay converts one upstream play record into an Event. Plays with
// no upstream event type are classified as advisories.
func EventFromPlay(play mlb.Play) Event {
	eventType := TypeAdvisory
	if play.Result.EventType != "" {
		eventType = strings.ToLower(play.Result.EventType)
	}

	event := Event{
		Type:        eventType,
		Description: play.Result.Description,
		Inning:      play.About.Inning,
		TopInning:   play.About.IsTopInning,
		Result:      play.Result.Event,
	}

	if play.Matchup != nil {
		if play.Matchup.Batter != nil {
			event.BatterName = play.Matchup.Batter.FullName
		}
		if play.Matchup.Pitcher != nil {
			event.PitcherName = play.Matchup.Pitcher.FullName
		}
	}

	if play.Count != nil {
		event.Balls = play.Count.Balls
		event.Strikes = play.Count.Strikes
		event.Outs = play.Count.Outs
	}

	if play.Result.HomeScore != nil {
		event.HomeScore = *play.Result.HomeScore
	}
	if play.Result.AwayScore != nil {
		event.AwayScore = *play.Result.AwayScore
	}

	return event
}

// Valid reports whether an extracted event carries enough information to be
// delivered. Invalid events are filtered silently, never surfaced.
func Valid(event Event) bool {
	if event.Type == "" {
		return false
	}
	if event.Type == TypeAdvisory && event.Description == "" {
		return false
	}
	if event.Type == TypeStatus && (event.HomeTeam == "" || event.AwayTeam == "") {
		return false
	}
	return true
}
