package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ClientID = "test-client"

	client, err := NewClient(cfg, &StaticTokenSource{Credential: "test-token"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, srv
}

func TestResolveBroadcaster(t *testing.T) {
	var gotQuery, gotAuth, gotClientID string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/channels" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		gotAuth = r.Header.Get("Authorization")
		gotClientID = r.Header.Get("Client-ID")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"id": "123", "broadcaster_login": "k4sen", "display_name": "k4sen"},
			},
		})
	}))

	b, err := client.ResolveBroadcaster(context.Background(), "  k4sen ")
	if err != nil {
		t.Fatalf("ResolveBroadcaster: %v", err)
	}
	if b.ID != "123" || b.Login != "k4sen" {
		t.Errorf("broadcaster = %+v", b)
	}
	if gotQuery != "k4sen" {
		t.Errorf("query = %q, want trimmed k4sen", gotQuery)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotClientID != "test-client" {
		t.Errorf("Client-ID = %q", gotClientID)
	}
}

func TestResolveBroadcasterNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))

	_, err := client.ResolveBroadcaster(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveBroadcasterEmptyQuery(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made for an empty query")
	}))

	_, err := client.ResolveBroadcaster(context.Background(), "   ")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestFetchClipsParams(t *testing.T) {
	start := time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("broadcaster_id") != "123" {
			t.Errorf("broadcaster_id = %q", q.Get("broadcaster_id"))
		}
		if q.Get("first") != "100" {
			t.Errorf("first = %q, want 100", q.Get("first"))
		}
		if q.Get("started_at") != "2025-05-31T12:00:00Z" {
			t.Errorf("started_at = %q", q.Get("started_at"))
		}
		if q.Get("ended_at") != "2025-06-01T12:00:00Z" {
			t.Errorf("ended_at = %q", q.Get("ended_at"))
		}
		if q.Get("after") != "cursor-1" {
			t.Errorf("after = %q", q.Get("after"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "clip-a", "title": "hello", "duration": 28.5, "view_count": 42},
			},
			"pagination": map[string]string{"cursor": "cursor-2"},
		})
	}))

	page, err := client.FetchClips(context.Background(), ClipsParams{
		BroadcasterID: "123",
		StartedAt:     start,
		EndedAt:       end,
		After:         "cursor-1",
	})
	if err != nil {
		t.Fatalf("FetchClips: %v", err)
	}
	if len(page.Clips) != 1 || page.Clips[0].ID != "clip-a" {
		t.Fatalf("clips = %+v", page.Clips)
	}
	if page.Clips[0].Duration != 28.5 || page.Clips[0].ViewCount != 42 {
		t.Errorf("clip fields = %+v", page.Clips[0])
	}
	if page.Cursor != "cursor-2" || !page.HasMore() {
		t.Errorf("cursor = %q", page.Cursor)
	}
}

func TestFetchClipsOmitsEmptyBounds(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Has("started_at") || q.Has("ended_at") || q.Has("after") {
			t.Errorf("unexpected bounds in query: %v", q)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}, "pagination": map[string]string{}})
	}))

	page, err := client.FetchClips(context.Background(), ClipsParams{BroadcasterID: "123"})
	if err != nil {
		t.Fatalf("FetchClips: %v", err)
	}
	if page.HasMore() {
		t.Error("empty cursor should report no more pages")
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{401, ErrReauthRequired},
		{400, ErrInvalidRequest},
		{429, ErrUnavailable},
		{500, ErrUnavailable},
		{503, ErrUnavailable},
	}

	for _, tt := range tests {
		status := tt.status
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{"status": status, "message": "nope"})
		}))

		_, err := client.FetchClips(context.Background(), ClipsParams{BroadcasterID: "123"})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Errorf("status %d: err %v is not an *APIError", tt.status, err)
			continue
		}
		if apiErr.StatusCode != tt.status || apiErr.Message != "nope" {
			t.Errorf("status %d: APIError = %+v", tt.status, apiErr)
		}
	}
}

func TestNoRetryOnFailure(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.FetchClips(context.Background(), ClipsParams{BroadcasterID: "123"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want exactly 1", calls)
	}
}
