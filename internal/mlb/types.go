package mlb

// GameFeed is the full game-feed document returned by the stats API for a
// single timecode (or for "now" when no timecode is given).
type GameFeed struct {
	GameData GameData `json:"gameData"`
	LiveData LiveData `json:"liveData"`
}

type GameData struct {
	Teams Teams    `json:"teams"`
	Game  GameInfo `json:"game"`
}

type Teams struct {
	Away Team `json:"away"`
	Home Team `json:"home"`
}

type Team struct {
	Name   string     `json:"name"`
	Record TeamRecord `json:"record"`
}

type TeamRecord struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

type GameInfo struct {
	GameDate string `json:"gameDate"`
	Pk       int64  `json:"pk"`
}

type LiveData struct {
	Plays     Plays     `json:"plays"`
	Linescore Linescore `json:"linescore"`
}

type Plays struct {
	AllPlays    []Play `json:"allPlays"`
	CurrentPlay *Play  `json:"currentPlay"`
}

// Play is one entry of the play-by-play list.
type Play struct {
	Result  Result   `json:"result"`
	About   About    `json:"about"`
	Matchup *Matchup `json:"matchup"`
	Count   *Count   `json:"count"`
}

type Result struct {
	Description string `json:"description"`
	Event       string `json:"event"`
	EventType   string `json:"eventType"`
	// Scores are pointers: plenty of plays carry no score fields at all.
	HomeScore *int `json:"homeScore"`
	AwayScore *int `json:"awayScore"`
}

type About struct {
	Inning      int  `json:"inning"`
	IsTopInning bool `json:"isTopInning"`
}

type Matchup struct {
	Batter  *Player `json:"batter"`
	Pitcher *Player `json:"pitcher"`
}

type Player struct {
	FullName  string `json:"fullName"`
	PitchHand *Hand  `json:"pitchHand"`
	BatSide   *Hand  `json:"batSide"`
}

type Hand struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type Count struct {
	Balls   int `json:"balls"`
	Strikes int `json:"strikes"`
	Outs    int `json:"outs"`
	Pitches int `json:"pitches"`
}

type Linescore struct {
	CurrentInning int            `json:"currentInning"`
	InningState   string         `json:"inningState"`
	IsTopInning   bool           `json:"isTopInning"`
	Teams         LinescoreTeams `json:"teams"`
	Defense       *Defense       `json:"defense"`
	Offense       *Offense       `json:"offense"`
}

type LinescoreTeams struct {
	Home TeamScore `json:"home"`
	Away TeamScore `json:"away"`
}

type TeamScore struct {
	Runs int `json:"runs"`
}

type Defense struct {
	Pitcher *Player `json:"pitcher"`
}

type Offense struct {
	Batter *Player `json:"batter"`
}

// Schedule is the response of the schedule endpoint.
type Schedule struct {
	TotalItems           int            `json:"totalItems"`
	TotalGames           int            `json:"totalGames"`
	TotalGamesInProgress int            `json:"totalGamesInProgress"`
	Dates                []ScheduleDate `json:"dates"`
}

type ScheduleDate struct {
	Date                 string         `json:"date"`
	TotalGames           int            `json:"totalGames"`
	TotalGamesInProgress int            `json:"totalGamesInProgress"`
	Games                []ScheduleGame `json:"games"`
}

type ScheduleGame struct {
	GamePk       int64         `json:"gamePk"`
	GameGUID     string        `json:"gameGuid"`
	GameType     string        `json:"gameType"`
	Season       string        `json:"season"`
	GameDate     string        `json:"gameDate"`
	OfficialDate string        `json:"officialDate"`
	Status       GameStatus    `json:"status"`
	Teams        ScheduleTeams `json:"teams"`
	Venue        Venue         `json:"venue"`
	DayNight     string        `json:"dayNight"`
	SeriesGame   int           `json:"seriesGameNumber"`
}

type GameStatus struct {
	AbstractGameState string `json:"abstractGameState"`
	DetailedState     string `json:"detailedState"`
	StatusCode        string `json:"statusCode"`
}

type ScheduleTeams struct {
	Away ScheduleTeam `json:"away"`
	Home ScheduleTeam `json:"home"`
}

type ScheduleTeam struct {
	LeagueRecord TeamRecord `json:"leagueRecord"`
	Score        int        `json:"score"`
	Team         TeamRef    `json:"team"`
	IsWinner     bool       `json:"isWinner"`
}

type TeamRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Venue struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
