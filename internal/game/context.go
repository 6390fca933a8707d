package game

import "github.com/ballparklive/ballpark/internal/mlb"

// LiveContext assembles the commentary-call payload for one live-feed play.
// Inning and score come from the snapshot's linescore; pitcher and batter
// hands are included when the feed carries them.
func LiveContext(feed *mlb.GameFeed, play mlb.Play) map[string]any {
	linescore := feed.LiveData.Linescore

	context := map[string]any{
		"currentInning": linescore.CurrentInning,
		"inningState":   inningState(play.About.IsTopInning),
		"isTopInning":   play.About.IsTopInning,
		"score": map[string]int{
			"away": linescore.Teams.Away.Runs,
			"home": linescore.Teams.Home.Runs,
		},
		"awayTeam":        feed.GameData.Teams.Away.Name,
		"homeTeam":        feed.GameData.Teams.Home.Name,
		"playEvent":       play.Result.Event,
		"playDescription": play.Result.Description,
	}

	if linescore.Defense != nil && linescore.Defense.Pitcher != nil {
		context["currentPitcher"] = linescore.Defense.Pitcher.FullName
		if linescore.Defense.Pitcher.PitchHand != nil {
			context["pitcherHand"] = linescore.Defense.Pitcher.PitchHand.Description
		}
	}

	if linescore.Offense != nil && linescore.Offense.Batter != nil {
		context["currentBatter"] = linescore.Offense.Batter.FullName
		if play.Matchup != nil && play.Matchup.Batter != nil && play.Matchup.Batter.BatSide != nil {
			context["batterSide"] = play.Matchup.Batter.BatSide.Description
		}
	}

	if play.Count != nil {
		context["count"] = map[string]int{
			"balls":   play.Count.Balls,
			"strikes": play.Count.Strikes,
			"outs":    play.Count.Outs,
		}
	}

	return context
}

// ReplayContext assembles the commentary-call payload for one replayed play.
// Scores are the running totals maintained by the replay walk, and the
// user's active prediction rides along verbatim when one exists.
func ReplayContext(feed *mlb.GameFeed, play mlb.Play, prediction string, awayScore, homeScore int) map[string]any {
	context := map[string]any{
		"currentInning": play.About.Inning,
		"isTopInning":   play.About.IsTopInning,
		"currentScore": map[string]int{
			"away": awayScore,
			"home": homeScore,
		},
		"awayTeam":        feed.GameData.Teams.Away.Name,
		"homeTeam":        feed.GameData.Teams.Home.Name,
		"playEvent":       play.Result.Event,
		"playDescription": play.Result.Description,
	}

	if prediction != "" {
		context["userPrediction"] = prediction
	}

	return context
}

func inningState(topInning bool) string {
	if topInning {
		return "Top"
	}
	return "Bottom"
}
