package game

import (
	"testing"

	"github.com/ballparklive/ballpark/internal/mlb"
)

func intp(n int) *int { return &n }

func TestEventFromPlay_FullPlay(t *testing.T) {
	play := mlb.Play{
		Result: mlb.Result{
			Description: "Pete Crow-Armstrong homers (18) on a fly ball to right field.",
			Event:       "Home Run",
			EventType:   "HOME_RUN",
			HomeScore:   intp(3),
			AwayScore:   intp(1),
		},
		About: mlb.About{Inning: 4, IsTopInning: false},
		Matchup: &mlb.Matchup{
			Batter:  &mlb.Player{FullName: "Pete Crow-Armstrong"},
			Pitcher: &mlb.Player{FullName: "Logan Webb"},
		},
		Count: &mlb.Count{Balls: 2, Strikes: 1, Outs: 1},
	}

	event := EventFromPlay(play)

	if event.Type != "home_run" {
		t.Errorf("expected type home_run, got %s", event.Type)
	}
	if event.Result != "Home Run" {
		t.Errorf("expected result Home Run, got %s", event.Result)
	}
	if event.Inning != 4 || event.TopInning {
		t.Errorf("unexpected inning state: %d top=%v", event.Inning, event.TopInning)
	}
	if event.BatterName != "Pete Crow-Armstrong" || event.PitcherName != "Logan Webb" {
		t.Errorf("unexpected matchup: %s vs %s", event.BatterName, event.PitcherName)
	}
	if event.HomeScore != 3 || event.AwayScore != 1 {
		t.Errorf("unexpected score: %d-%d", event.AwayScore, event.HomeScore)
	}
	if event.Balls != 2 || event.Strikes != 1 || event.Outs != 1 {
		t.Errorf("unexpected count: %d-%d, %d outs", event.Balls, event.Strikes, event.Outs)
	}
}

func TestEventFromPlay_DefaultsToAdvisory(t *testing.T) {
	play := mlb.Play{
		Result: mlb.Result{Description: "Mound visit."},
		About:  mlb.About{Inning: 7, IsTopInning: true},
	}

	event := EventFromPlay(play)

	if event.Type != TypeAdvisory {
		t.Errorf("expected advisory type, got %s", event.Type)
	}
	if event.HomeScore != 0 || event.AwayScore != 0 {
		t.Errorf("expected zero scores for scoreless play, got %d-%d", event.AwayScore, event.HomeScore)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{
			name:  "typed event",
			event: Event{Type: "strikeout"},
			want:  true,
		},
		{
			name:  "missing type",
			event: Event{Description: "something happened"},
			want:  false,
		},
		{
			name:  "advisory with description",
			event: Event{Type: TypeAdvisory, Description: "Rain delay."},
			want:  true,
		},
		{
			name:  "advisory without description",
			event: Event{Type: TypeAdvisory},
			want:  false,
		},
		{
			name:  "status with both teams",
			event: Event{Type: TypeStatus, HomeTeam: "Cubs", AwayTeam: "Giants"},
			want:  true,
		},
		{
			name:  "status missing a team",
			event: Event{Type: TypeStatus, HomeTeam: "Cubs"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.event); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildLiveStatus(t *testing.T) {
	feed := &mlb.GameFeed{
		GameData: mlb.GameData{
			Teams: mlb.Teams{
				Away: mlb.Team{Name: "San Francisco Giants", Record: mlb.TeamRecord{Wins: 52, Losses: 38}},
				Home: mlb.Team{Name: "Chicago Cubs", Record: mlb.TeamRecord{Wins: 55, Losses: 36}},
			},
		},
	}
	play := &mlb.Play{
		About:   mlb.About{Inning: 3, IsTopInning: true},
		Matchup: &mlb.Matchup{Pitcher: &mlb.Player{FullName: "Shota Imanaga"}},
		Count:   &mlb.Count{Pitches: 42},
	}

	status := BuildLiveStatus(feed, play, 1, 4)

	if status.Type != "MLB • LIVE" {
		t.Errorf("unexpected type: %s", status.Type)
	}
	if status.Inning != "Top 3rd" {
		t.Errorf("unexpected inning label: %s", status.Inning)
	}
	if status.AwayTeam.Name != "San Francisco Giants" || status.AwayTeam.Record != "52-38" || status.AwayTeam.Score != 1 {
		t.Errorf("unexpected away team: %+v", status.AwayTeam)
	}
	if status.HomeTeam.Score != 4 {
		t.Errorf("unexpected home score: %d", status.HomeTeam.Score)
	}
	if status.CurrentPitcher != "Shota Imanaga" {
		t.Errorf("unexpected pitcher: %s", status.CurrentPitcher)
	}
	if status.PitchCount != 42 {
		t.Errorf("unexpected pitch count: %d", status.PitchCount)
	}
}

func TestInningLabel(t *testing.T) {
	tests := []struct {
		top    bool
		inning int
		want   string
	}{
		{true, 1, "Top 1st"},
		{false, 2, "Bottom 2nd"},
		{true, 3, "Top 3rd"},
		{false, 4, "Bottom 4th"},
		{true, 11, "Top 11th"},
		{false, 12, "Bottom 12th"},
	}

	for _, tt := range tests {
		if got := InningLabel(tt.top, tt.inning); got != tt.want {
			t.Errorf("InningLabel(%v, %d) = %s, want %s", tt.top, tt.inning, got, tt.want)
		}
	}
}
