package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ballparklive/ballpark/internal/feed"
	"github.com/ballparklive/ballpark/internal/mlb"
	"github.com/ballparklive/ballpark/internal/replay"
)

func intp(n int) *int { return &n }

type fakeClient struct {
	mu         sync.Mutex
	timestamps []string
	feed       *mlb.GameFeed
	schedule   *mlb.Schedule
	feedErr    error
	schedErr   error
}

func (c *fakeClient) ListTimestamps(ctx context.Context, gameID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.timestamps...), nil
}

func (c *fakeClient) GetFeed(ctx context.Context, gameID string) (*mlb.GameFeed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.feedErr != nil {
		return nil, c.feedErr
	}
	return c.feed, nil
}

func (c *fakeClient) GetFeedAt(ctx context.Context, gameID, timestamp string) (*mlb.GameFeed, error) {
	return c.GetFeed(ctx, gameID)
}

func (c *fakeClient) GetSchedule(ctx context.Context, startDate, endDate string) (*mlb.Schedule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schedErr != nil {
		return nil, c.schedErr
	}
	return c.schedule, nil
}

type fakeCommentator struct{}

func (fakeCommentator) Generate(ctx context.Context, conversationID string, contextJSON []byte) (string, error) {
	return "what a play", nil
}

func gameFeed() *mlb.GameFeed {
	return &mlb.GameFeed{
		GameData: mlb.GameData{
			Teams: mlb.Teams{
				Away: mlb.Team{Name: "San Francisco Giants"},
				Home: mlb.Team{Name: "Chicago Cubs"},
			},
			Game: mlb.GameInfo{GameDate: "2025-07-07T23:05:00Z"},
		},
		LiveData: mlb.LiveData{
			Plays: mlb.Plays{AllPlays: []mlb.Play{
				{
					Result: mlb.Result{
						Event: "Home Run", EventType: "HOME_RUN", Description: "Homers.",
						HomeScore: intp(1), AwayScore: intp(0),
					},
					About: mlb.About{Inning: 1, IsTopInning: false},
				},
			}},
		},
	}
}

func newTestRouter(t *testing.T, client *fakeClient) (http.Handler, context.CancelFunc) {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	ctx, cancel := context.WithCancel(context.Background())
	arena := feed.NewArena(ctx, client, fakeCommentator{}, nil, 10*time.Millisecond, 8, logger)

	store := replay.NewStore()
	replaySvc := replay.NewService(client, fakeCommentator{}, store, nil, 20*time.Millisecond, time.Millisecond, logger)

	srv := NewServer(arena, replaySvc, client, logger)
	return NewRouter(srv, nil, nil, logger), cancel
}

func TestHandleSchedule(t *testing.T) {
	client := &fakeClient{schedule: &mlb.Schedule{TotalGames: 3}}
	router, cancel := newTestRouter(t, client)
	defer cancel()

	req := httptest.NewRequest("GET", "/games/all?startDate=2025-07-01&endDate=2025-07-07", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var sched mlb.Schedule
	if err := json.Unmarshal(rec.Body.Bytes(), &sched); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if sched.TotalGames != 3 {
		t.Errorf("expected 3 games, got %d", sched.TotalGames)
	}
}

func TestHandleSchedule_RequiresDateRange(t *testing.T) {
	router, cancel := newTestRouter(t, &fakeClient{})
	defer cancel()

	req := httptest.NewRequest("GET", "/games/all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSchedule_UpstreamFailure(t *testing.T) {
	client := &fakeClient{schedErr: errors.New("upstream down")}
	router, cancel := newTestRouter(t, client)
	defer cancel()

	req := httptest.NewRequest("GET", "/games/all?startDate=2025-07-01&endDate=2025-07-07", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHandleLiveStatus(t *testing.T) {
	feedDoc := gameFeed()
	feedDoc.LiveData.Plays.CurrentPlay = &feedDoc.LiveData.Plays.AllPlays[0]
	feedDoc.LiveData.Linescore.Teams.Home.Runs = 1

	client := &fakeClient{feed: feedDoc}
	router, cancel := newTestRouter(t, client)
	defer cancel()

	req := httptest.NewRequest("GET", "/games/776423/live/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var status map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if status["type"] != "MLB • LIVE" {
		t.Errorf("unexpected type: %v", status["type"])
	}
	if status["inning"] != "Bottom 1st" {
		t.Errorf("unexpected inning: %v", status["inning"])
	}
}

func TestHandleLiveStatus_NoCurrentPlay(t *testing.T) {
	client := &fakeClient{feed: gameFeed()}
	router, cancel := newTestRouter(t, client)
	defer cancel()

	req := httptest.NewRequest("GET", "/games/776423/live/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleLiveStatus_GameNotFound(t *testing.T) {
	client := &fakeClient{feedErr: mlb.ErrNotFound}
	router, cancel := newTestRouter(t, client)
	defer cancel()

	req := httptest.NewRequest("GET", "/games/999999/live/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandlePredict(t *testing.T) {
	client := &fakeClient{feed: gameFeed()}
	router, cancel := newTestRouter(t, client)
	defer cancel()

	body := strings.NewReader(`{"prediction":"Cubs walk it off"}`)
	req := httptest.NewRequest("POST", "/games/776423/predict?userId=alice", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var saved replay.Prediction
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if saved.Text != "Cubs walk it off" {
		t.Errorf("unexpected prediction: %q", saved.Text)
	}
	if saved.PlayIndex != 0 {
		t.Errorf("unexpected play index: %d", saved.PlayIndex)
	}
}

func TestHandlePredict_Validation(t *testing.T) {
	router, cancel := newTestRouter(t, &fakeClient{feed: gameFeed()})
	defer cancel()

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"missing userId", "/games/776423/predict", `{"prediction":"x"}`},
		{"empty prediction", "/games/776423/predict?userId=alice", `{"prediction":"  "}`},
		{"bad json", "/games/776423/predict?userId=alice", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleReplay_RequiresUserID(t *testing.T) {
	router, cancel := newTestRouter(t, &fakeClient{feed: gameFeed()})
	defer cancel()

	req := httptest.NewRequest("GET", "/games/776423/stream", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleReplay_StreamsFrames(t *testing.T) {
	client := &fakeClient{feed: gameFeed()}
	router, cancel := newTestRouter(t, client)
	defer cancel()

	server := httptest.NewServer(router)
	defer server.Close()

	// Seed a prediction so the replay starts without the prompt wait.
	predictBody := strings.NewReader(`{"prediction":"Cubs win"}`)
	resp, err := http.Post(server.URL+"/games/776423/predict?userId=alice", "application/json", predictBody)
	if err != nil {
		t.Fatalf("seeding prediction: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/games/776423/stream?userId=alice")
	if err != nil {
		t.Fatalf("starting replay: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event-stream content type, got %s", ct)
	}

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
		if len(events) > 0 && events[len(events)-1] == replay.EventComplete {
			break
		}
	}

	want := []string{replay.EventMetadata, replay.EventPlay, replay.EventComplete}
	if len(events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, events)
		}
	}
}

func TestHandleLiveFeed_StreamsEvents(t *testing.T) {
	client := &fakeClient{
		timestamps: []string{"t1"},
		feed:       gameFeed(),
	}
	router, cancel := newTestRouter(t, client)
	defer cancel()

	server := httptest.NewServer(router)
	defer server.Close()

	ctx, reqCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer reqCancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/games/776423/live-feed", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("starting live feed: %v", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var eventName, data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventName = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}

	if eventName != "mlb-update" {
		t.Errorf("expected mlb-update event, got %s", eventName)
	}

	var event map[string]any
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		t.Fatalf("decoding event payload: %v", err)
	}
	if event["type"] != "home_run" {
		t.Errorf("unexpected event type: %v", event["type"])
	}
	if event["description"] != "what a play" {
		t.Errorf("expected generated commentary, got %v", event["description"])
	}
}

func TestHealthz(t *testing.T) {
	router, cancel := newTestRouter(t, &fakeClient{})
	defer cancel()

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, cancel := newTestRouter(t, &fakeClient{})
	defer cancel()

	req := httptest.NewRequest("OPTIONS", "/games/all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", got)
	}
}
