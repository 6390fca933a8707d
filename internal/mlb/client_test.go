package mlb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, baseURL string, retries int) *HTTPClient {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewClient(baseURL, baseURL, 2025, 100, 5*time.Second, time.Millisecond, retries, logger)
}

func TestListTimestamps_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expectedPath := "/game/776423/feed/live/timestamps"
		if r.URL.Path != expectedPath {
			t.Errorf("expected path %s, got %s", expectedPath, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]string{"20250707_010203", "20250707_010233"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)

	timestamps, err := client.ListTimestamps(context.Background(), "776423")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(timestamps) != 2 {
		t.Fatalf("expected 2 timestamps, got %d", len(timestamps))
	}
	if timestamps[0] != "20250707_010203" {
		t.Errorf("unexpected first timestamp: %s", timestamps[0])
	}
}

func TestGetFeedAt_SetsTimecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("timecode"); got != "20250707_010203" {
			t.Errorf("expected timecode 20250707_010203, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(GameFeed{
			GameData: GameData{Teams: Teams{Home: Team{Name: "Chicago Cubs"}}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)

	feed, err := client.GetFeedAt(context.Background(), "776423", "20250707_010203")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed.GameData.Teams.Home.Name != "Chicago Cubs" {
		t.Errorf("unexpected home team: %s", feed.GameData.Teams.Home.Name)
	}
}

func TestGetFeed_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)

	_, err := client.GetFeed(context.Background(), "776423")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]string{"20250707_010203"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)

	timestamps, err := client.ListTimestamps(context.Background(), "776423")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(timestamps) != 1 {
		t.Errorf("expected 1 timestamp, got %d", len(timestamps))
	}
}

func TestGetJSON_ExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)

	_, err := client.ListTimestamps(context.Background(), "776423")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestGetSchedule_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/schedule" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sportId") != "1" {
			t.Errorf("expected sportId=1, got %s", q.Get("sportId"))
		}
		if q.Get("season") != "2025" {
			t.Errorf("expected season=2025, got %s", q.Get("season"))
		}
		if q.Get("startDate") != "2025-07-01" || q.Get("endDate") != "2025-07-07" {
			t.Errorf("unexpected date range: %s..%s", q.Get("startDate"), q.Get("endDate"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Schedule{
			TotalGames: 1,
			Dates: []ScheduleDate{{
				Date:  "2025-07-01",
				Games: []ScheduleGame{{GamePk: 776423}},
			}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)

	sched, err := client.GetSchedule(context.Background(), "2025-07-01", "2025-07-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.TotalGames != 1 {
		t.Errorf("expected 1 game, got %d", sched.TotalGames)
	}
	if sched.Dates[0].Games[0].GamePk != 776423 {
		t.Errorf("unexpected gamePk: %d", sched.Dates[0].Games[0].GamePk)
	}
}

func TestGetJSON_RetriesCountAgainstRateLimit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	// Three tokens and no refill within the test window: the fourth attempt
	// must stop at the limiter instead of hammering the upstream again.
	client.limiter = rate.NewLimiter(rate.Every(time.Hour), 3)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out struct{}
	if err := client.getJSON(ctx, server.URL, &out); err == nil {
		t.Fatal("expected an error")
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("expected the limiter to cap upstream requests at 3, got %d", got)
	}
}
